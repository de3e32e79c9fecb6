package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/concave-dev/coalesce/internal/batching"
	"github.com/concave-dev/coalesce/internal/validate"
	"gopkg.in/yaml.v3"
)

// RequestSpec is one request in a submit file. Body may be any YAML value and
// is sent as JSON.
type RequestSpec struct {
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Body    any               `yaml:"body"`
	Headers map[string]string `yaml:"headers"`
	BatchAs string            `yaml:"batch_as"`
}

// requestFile is the mapping form of a submit file.
type requestFile struct {
	Requests []RequestSpec `yaml:"requests"`
}

// LoadRequests reads a submit file. The file is YAML (JSON works too) and is
// either a list of requests or a mapping with a "requests" list. Requests
// without a batch_as tag get defaultGroup; an empty defaultGroup leaves them
// unbatched.
func LoadRequests(path, defaultGroup string) ([]*batching.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return ParseRequests(data, defaultGroup)
}

// ParseRequests decodes submit file contents. See LoadRequests.
func ParseRequests(data []byte, defaultGroup string) ([]*batching.Request, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse request file: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("request file is empty")
	}

	var specs []RequestSpec
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&specs); err != nil {
			return nil, fmt.Errorf("failed to decode requests: %w", err)
		}
	case yaml.MappingNode:
		var file requestFile
		if err := doc.Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to decode requests: %w", err)
		}
		specs = file.Requests
	default:
		return nil, fmt.Errorf("request file must be a list or a mapping with a requests list")
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("request file contains no requests")
	}

	requests := make([]*batching.Request, 0, len(specs))
	for i, spec := range specs {
		req, err := spec.toRequest(defaultGroup)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (s RequestSpec) toRequest(defaultGroup string) (*batching.Request, error) {
	method := strings.ToUpper(s.Method)
	if method == "" {
		method = http.MethodPost
	}
	if err := validate.ValidateField(method, "oneof=GET POST PUT PATCH DELETE"); err != nil {
		return nil, fmt.Errorf("unsupported method %q", s.Method)
	}
	if err := validate.RequestPath(s.Path); err != nil {
		return nil, err
	}

	req := &batching.Request{
		Method:  method,
		Path:    s.Path,
		Headers: s.Headers,
		BatchAs: s.BatchAs,
	}
	if req.BatchAs == "" {
		req.BatchAs = defaultGroup
	}

	if s.Body != nil {
		body, err := json.Marshal(s.Body)
		if err != nil {
			return nil, fmt.Errorf("body cannot be encoded as JSON: %w", err)
		}
		req.Body = body
	}
	return req, nil
}

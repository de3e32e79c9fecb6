// Package display provides output formatting for coalescectl.
//
// Every function honours --output: "table" writes aligned columns through
// text/tabwriter, "json" writes indented JSON to stdout.
package display

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/concave-dev/coalesce/cmd/coalescectl/client"
	"github.com/concave-dev/coalesce/cmd/coalescectl/config"
	"github.com/concave-dev/coalesce/cmd/coalescectl/utils"
	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/store"
	internalutils "github.com/concave-dev/coalesce/internal/utils"
	"github.com/dustin/go-humanize"
)

// SubmitResult is the outcome of one submitted request.
type SubmitResult struct {
	Index    int             `json:"index"`
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Group    string          `json:"group,omitempty"`
	Status   int             `json:"status"`
	Body     json.RawMessage `json:"body,omitempty"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration_ns"`
}

func encodeJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		logging.Error("Failed to encode JSON: %v", err)
		fmt.Println("Error encoding JSON output")
	}
}

// statusText renders a response status; 0 means the server skipped the
// request because another request in its batch failed validation.
func statusText(r SubmitResult) string {
	switch {
	case r.Error != "":
		return "error"
	case r.Status == 0:
		return "skipped"
	default:
		return fmt.Sprintf("%d", r.Status)
	}
}

// DisplaySubmitResults prints submit results in submission order.
func DisplaySubmitResults(results []SubmitResult) {
	if config.Global.Output == "json" {
		encodeJSON(results)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if config.Global.Verbose {
		fmt.Fprintln(w, "#\tMETHOD\tPATH\tGROUP\tSTATUS\tBODY\tTOOK\tERROR")
	} else {
		fmt.Fprintln(w, "#\tMETHOD\tPATH\tGROUP\tSTATUS\tBODY")
	}

	for _, r := range results {
		group := r.Group
		if group == "" {
			group = "-"
		}
		size := humanize.Bytes(uint64(len(r.Body)))

		if config.Global.Verbose {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Index, r.Method, r.Path, group, statusText(r), size,
				utils.FormatDuration(r.Duration), r.Error)
		} else {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.Index, r.Method, r.Path, group, statusText(r), size)
		}
	}
}

// DisplayMetrics prints coordinator counters, sorted by name.
func DisplayMetrics(metrics map[string]int64) {
	if config.Global.Output == "json" {
		encodeJSON(metrics)
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nCoordinator metrics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, humanize.Comma(metrics[name]))
	}
}

// DisplayHealth prints the server health report.
func DisplayHealth(health client.Health) {
	if config.Global.Output == "json" {
		encodeJSON(health)
		return
	}

	fmt.Printf("Server Health:\n")
	fmt.Printf("  Status:      %s\n", health.Status)
	fmt.Printf("  Version:     %s\n", health.Version)
	fmt.Printf("  Uptime:      %s\n", health.Uptime)
	fmt.Printf("  Batch path:  %s (max %d requests)\n", health.BatchPath, health.MaxBatchRequests)
	fmt.Printf("  Documents:   %s\n", humanize.Comma(int64(health.Documents)))
}

// DisplayDocuments prints documents, newest first.
func DisplayDocuments(docs []store.Document) {
	if len(docs) == 0 {
		if config.Global.Output == "json" {
			fmt.Println("[]")
		} else {
			fmt.Println("No documents found")
		}
		return
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Created.After(docs[j].Created)
	})

	if config.Global.Output == "json" {
		encodeJSON(docs)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if config.Global.Verbose {
		fmt.Fprintln(w, "ID\tSLUG\tTITLE\tSTATUS\tSIZE\tCREATED\tUPDATED")
	} else {
		fmt.Fprintln(w, "ID\tSLUG\tTITLE\tSTATUS\tUPDATED")
	}

	for _, doc := range docs {
		title := doc.Title
		if r := []rune(title); len(r) > 40 {
			title = string(r[:37]) + "..."
		}
		if config.Global.Verbose {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				internalutils.ShortID(doc.ID), doc.Slug, title, doc.Status,
				humanize.Bytes(uint64(len(doc.Content))),
				humanize.Time(doc.Created), humanize.Time(doc.Updated))
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				internalutils.ShortID(doc.ID), doc.Slug, title, doc.Status, humanize.Time(doc.Updated))
		}
	}
}

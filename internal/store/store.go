// Package store provides the in-memory document store behind the reference
// server's content API. Documents are what the batch coordinator's clients
// create, edit and delete, so every write here may arrive either directly or
// as one sub-request of a combined batch.
//
// All operations are safe for concurrent use. Writes take the store lock for
// their whole duration so a batch executed in order observes each earlier
// sub-request's effect.
package store

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/concave-dev/coalesce/internal/names"
	"github.com/concave-dev/coalesce/internal/utils"
	"github.com/concave-dev/coalesce/internal/validate"
)

// Document statuses
const (
	StatusDraft   = "draft"
	StatusPublish = "publish"
	StatusPrivate = "private"
)

var (
	// ErrNotFound is returned when no document has the requested ID.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when an explicit slug is already in use.
	ErrConflict = errors.New("slug already in use")

	// ErrInvalid wraps document input validation failures.
	ErrInvalid = errors.New("invalid document")
)

// Document is a stored piece of content.
type Document struct {
	ID      string    `json:"id"`
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// DocumentInput is the full representation accepted by create and replace.
type DocumentInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=100000"`
	Status  string `json:"status" validate:"omitempty,oneof=draft publish private"`
	Slug    string `json:"slug" validate:"omitempty,max=100,excludesall=/?#"`
}

// Validate checks the input against its field rules.
func (in *DocumentInput) Validate() error {
	if err := validate.ValidateStruct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DocumentPatch is a partial update; nil fields are left unchanged.
type DocumentPatch struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content,omitempty" validate:"omitempty,max=100000"`
	Status  *string `json:"status,omitempty" validate:"omitempty,oneof=draft publish private"`
}

// Validate checks the set fields against their rules.
func (p *DocumentPatch) Validate() error {
	if err := validate.ValidateStruct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Store is an in-memory, mutex-guarded document collection.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*Document
	slugs map[string]string // slug -> document ID
	now   func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs:  make(map[string]*Document),
		slugs: make(map[string]string),
		now:   time.Now,
	}
}

// Create validates in and stores a new document. A missing status defaults
// to draft and a missing slug is generated.
func (s *Store) Create(in DocumentInput) (*Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, err := utils.GenerateID()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slug, err := s.claimSlugLocked(in.Slug, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc := &Document{
		ID:      id,
		Slug:    slug,
		Title:   in.Title,
		Content: in.Content,
		Status:  statusOrDefault(in.Status),
		Created: now,
		Updated: now,
	}
	s.docs[id] = doc

	copied := *doc
	return &copied, nil
}

// Get returns a copy of the document with the given ID.
func (s *Store) Get(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *doc
	return &copied, nil
}

// List returns all documents, oldest first.
func (s *Store) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	slices.SortFunc(out, func(a, b Document) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Replace overwrites every field of an existing document with in. An empty
// slug keeps the current one.
func (s *Store) Replace(id string, in DocumentInput) (*Document, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if in.Slug != "" && in.Slug != doc.Slug {
		slug, err := s.claimSlugLocked(in.Slug, id)
		if err != nil {
			return nil, err
		}
		delete(s.slugs, doc.Slug)
		doc.Slug = slug
	}

	doc.Title = in.Title
	doc.Content = in.Content
	doc.Status = statusOrDefault(in.Status)
	doc.Updated = s.now()

	copied := *doc
	return &copied, nil
}

// Patch applies the set fields of p to an existing document.
func (s *Store) Patch(id string, p DocumentPatch) (*Document, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Content != nil {
		doc.Content = *p.Content
	}
	if p.Status != nil {
		doc.Status = *p.Status
	}
	doc.Updated = s.now()

	copied := *doc
	return &copied, nil
}

// Delete removes a document and returns its last state.
func (s *Store) Delete(id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.docs, id)
	delete(s.slugs, doc.Slug)

	copied := *doc
	return &copied, nil
}

// claimSlugLocked reserves slug for id. An explicit slug must be free; an
// empty one is generated, falling back to a suffixed slug when the random
// picks keep colliding. Must be called with s.mu held.
func (s *Store) claimSlugLocked(slug, id string) (string, error) {
	if slug != "" {
		if owner, taken := s.slugs[slug]; taken && owner != id {
			return "", fmt.Errorf("%w: %s", ErrConflict, slug)
		}
		s.slugs[slug] = id
		return slug, nil
	}

	for range 5 {
		candidate := names.Generate()
		if _, taken := s.slugs[candidate]; !taken {
			s.slugs[candidate] = id
			return candidate, nil
		}
	}

	candidate := names.Generate() + "-" + utils.ShortID(id)[:6]
	s.slugs[candidate] = id
	return candidate, nil
}

func statusOrDefault(status string) string {
	if status == "" {
		return StatusDraft
	}
	return status
}

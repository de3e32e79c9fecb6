// Package handlers provides HTTP request handlers for the coalesce reference
// server.
//
// This file implements the document endpoints. They are the targets of both
// direct client calls and of the sub-requests inside a combined batch, which
// the batch handler replays through the same router:
//
//   - GET /api/v1/documents: List documents, oldest first
//   - GET /api/v1/documents/:id: Get one document
//   - POST /api/v1/documents: Create a document (201 with Location)
//   - PUT /api/v1/documents/:id: Replace a document
//   - PATCH /api/v1/documents/:id: Update the given fields
//   - DELETE /api/v1/documents/:id: Delete a document
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/concave-dev/coalesce/internal/logging"
	"github.com/concave-dev/coalesce/internal/store"
	"github.com/gin-gonic/gin"
)

// DocumentStore is the storage the document handlers need. Satisfied by
// *store.Store.
type DocumentStore interface {
	Create(in store.DocumentInput) (*store.Document, error)
	Get(id string) (*store.Document, error)
	List() []store.Document
	Replace(id string, in store.DocumentInput) (*store.Document, error)
	Patch(id string, p store.DocumentPatch) (*store.Document, error)
	Delete(id string) (*store.Document, error)
}

// DocumentListResponse is the body of a document listing.
type DocumentListResponse struct {
	Documents []store.Document `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentDeleteResponse is the body of a successful delete.
type DocumentDeleteResponse struct {
	Deleted  bool            `json:"deleted"`
	Previous *store.Document `json:"previous"`
}

// HandleListDocuments returns every document.
func HandleListDocuments(st DocumentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs := st.List()
		c.JSON(http.StatusOK, DocumentListResponse{Documents: docs, Count: len(docs)})
	}
}

// HandleGetDocument returns one document by ID.
func HandleGetDocument(st DocumentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := st.Get(c.Param("id"))
		if err != nil {
			writeStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

// HandleCreateDocument creates a document.
func HandleCreateDocument(st DocumentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in store.DocumentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeBodyError(c, err)
			return
		}

		doc, err := st.Create(in)
		if err != nil {
			writeStoreError(c, err)
			return
		}

		logging.Info("Documents: Created %s (%s)%s", logging.FormatDocumentID(doc.ID), doc.Slug, batchSuffix(c))
		c.Header("Location", c.FullPath()+"/"+doc.ID)
		c.JSON(http.StatusCreated, doc)
	}
}

// HandleReplaceDocument replaces every field of a document.
func HandleReplaceDocument(st DocumentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in store.DocumentInput
		if err := c.ShouldBindJSON(&in); err != nil {
			writeBodyError(c, err)
			return
		}

		doc, err := st.Replace(c.Param("id"), in)
		if err != nil {
			writeStoreError(c, err)
			return
		}

		logging.Info("Documents: Replaced %s%s", logging.FormatDocumentID(doc.ID), batchSuffix(c))
		c.JSON(http.StatusOK, doc)
	}
}

// HandlePatchDocument updates the fields present in the body.
func HandlePatchDocument(st DocumentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p store.DocumentPatch
		if err := c.ShouldBindJSON(&p); err != nil {
			writeBodyError(c, err)
			return
		}

		doc, err := st.Patch(c.Param("id"), p)
		if err != nil {
			writeStoreError(c, err)
			return
		}

		logging.Info("Documents: Patched %s%s", logging.FormatDocumentID(doc.ID), batchSuffix(c))
		c.JSON(http.StatusOK, doc)
	}
}

// HandleDeleteDocument deletes a document and returns its last state.
func HandleDeleteDocument(st DocumentStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := st.Delete(c.Param("id"))
		if err != nil {
			writeStoreError(c, err)
			return
		}

		logging.Info("Documents: Deleted %s%s", logging.FormatDocumentID(doc.ID), batchSuffix(c))
		c.JSON(http.StatusOK, DocumentDeleteResponse{Deleted: true, Previous: doc})
	}
}

// DocumentBatchRoutes returns the document write routes a batch may contain,
// with validators that check a sub-request body without executing it.
func DocumentBatchRoutes(collection string) []BatchRoute {
	item := collection + "/:id"
	return []BatchRoute{
		{Method: http.MethodPost, Pattern: collection, Validate: validateDocumentInput},
		{Method: http.MethodPut, Pattern: item, Validate: validateDocumentInput},
		{Method: http.MethodPatch, Pattern: item, Validate: validateDocumentPatch},
		{Method: http.MethodDelete, Pattern: item},
	}
}

func validateDocumentInput(body json.RawMessage) error {
	var in store.DocumentInput
	if err := decodeBody(body, &in); err != nil {
		return err
	}
	return in.Validate()
}

func validateDocumentPatch(body json.RawMessage) error {
	var p store.DocumentPatch
	if err := decodeBody(body, &p); err != nil {
		return err
	}
	return p.Validate()
}

func decodeBody(body json.RawMessage, out any) error {
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Join(store.ErrInvalid, err)
	}
	return nil
}

// writeBodyError answers a request whose JSON body could not be decoded.
func writeBodyError(c *gin.Context, err error) {
	logging.Warn("Documents: Invalid request body for %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "Document not found"
	case errors.Is(err, store.ErrInvalid):
		status, message = http.StatusBadRequest, "Invalid parameter(s)"
	case errors.Is(err, store.ErrConflict):
		status, message = http.StatusConflict, "Slug already in use"
	default:
		logging.Error("Documents: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

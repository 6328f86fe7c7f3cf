package handler

import (
	"log/slog"
	"net/http"

	"betty/internal/domain/models"
	"betty/internal/httputil"
	"betty/internal/service/document"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	documents *document.Service
	logger    *slog.Logger
}

func NewDocumentHandler(documents *document.Service, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// Create creates a new document
// POST /api/documents
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	doc, err := h.documents.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// List lists the user's documents, newest activity first
// GET /api/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	docType := models.DocumentType(r.URL.Query().Get("type"))
	limit := httputil.QueryInt(r, "limit", 20)
	offset := httputil.QueryInt(r, "offset", 0)

	docs := h.documents.List(r.Context(), userID, docType, limit, offset)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// Search matches documents by title, content or tags
// GET /api/documents/search
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	term := r.URL.Query().Get("q")
	if term == "" {
		httputil.RespondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	docType := models.DocumentType(r.URL.Query().Get("type"))
	limit := httputil.QueryInt(r, "limit", 20)

	docs := h.documents.Search(r.Context(), userID, term, docType, limit)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
		"query":     term,
	})
}

// Get retrieves a single document
// GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	doc, err := h.documents.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Update patches a document
// PATCH /api/documents/{id}
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.documents.Update(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes a document
// DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Duplicate copies a document under a new title
// POST /api/documents/{id}/duplicate
func (h *DocumentHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	// Body is optional; an empty title falls back to "<title> (Copy)".
	_ = httputil.ParseJSON(w, r, &req)

	doc, err := h.documents.Duplicate(r.Context(), userID, r.PathValue("id"), req.Title)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// Export mirrors a document into Google Docs
// POST /api/documents/{id}/export
func (h *DocumentHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := h.documents.Export(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

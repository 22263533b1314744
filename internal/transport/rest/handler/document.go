package handler

import (
	"net/http"

	"docquiz/internal/model"
	"docquiz/internal/service"
	"docquiz/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// DocumentHandler handles document endpoints
type DocumentHandler struct {
	documentSvc *service.DocumentService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentSvc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentSvc: documentSvc}
}

// Create handles POST /api/documents
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDocumentRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	doc, err := h.documentSvc.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, doc)
}

// List handles GET /api/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documentSvc.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, docs)
}

// Get handles GET /api/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documentSvc.GetByID(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, doc)
}

// Delete handles DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.documentSvc.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Document deleted"})
}

package handler

import (
	"net/http"

	"docquiz/internal/model"
	"docquiz/internal/service"
	"docquiz/internal/transport/rest/middleware"
)

// RAGHandler answers questions about a document
type RAGHandler struct {
	ragSvc *service.RAGService
}

// NewRAGHandler creates a new RAG handler
func NewRAGHandler(ragSvc *service.RAGService) *RAGHandler {
	return &RAGHandler{ragSvc: ragSvc}
}

// Ask handles POST /api/rag/ask
func (h *RAGHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req model.AskRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.ragSvc.Ask(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

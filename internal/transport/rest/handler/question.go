package handler

import (
	"net/http"

	"docquiz/internal/model"
	"docquiz/internal/service"
	"docquiz/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// QuestionHandler handles question endpoints
type QuestionHandler struct {
	questionSvc *service.QuestionService
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(questionSvc *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// Generate handles POST /api/questions/generate/{documentId}
func (h *QuestionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var opts model.GenerateOptions
	if r.ContentLength != 0 {
		if err := decode(r, &opts); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	userID := middleware.GetUserID(r.Context())
	res, err := h.questionSvc.Generate(r.Context(), userID, mux.Vars(r)["documentId"], opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    res.Questions,
		"count":   len(res.Questions),
		"preview": res.Preview,
	})
}

// List handles GET /api/questions
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questionSvc.ListAll(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, questions)
}

// ListByDocument handles GET /api/questions/document/{documentId}
func (h *QuestionHandler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questionSvc.ListByDocument(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["documentId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, questions)
}

// Get handles GET /api/questions/{id}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.questionSvc.GetByID(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, q)
}

// ValidateAnswer handles POST /api/questions/{id}/validate
func (h *QuestionHandler) ValidateAnswer(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateAnswerRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.questionSvc.ValidateAnswer(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"], req.UserAnswer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// ValidateExam handles POST /api/questions/validate-exam
func (h *QuestionHandler) ValidateExam(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateExamRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	res, err := h.questionSvc.ValidateExam(r.Context(), middleware.GetUserID(r.Context()), req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, res)
}

// Delete handles DELETE /api/questions/{id}
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.questionSvc.Delete(r.Context(), middleware.GetUserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Question deleted"})
}

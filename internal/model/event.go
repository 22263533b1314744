package model

// Event types pushed to a user's live connections
const (
	EventQuestionsGenerated = "questions.generated"
	EventQuestionDeleted    = "question.deleted"
)

// QuestionsGeneratedPayload is sent after a generation run is stored
type QuestionsGeneratedPayload struct {
	DocumentID string     `json:"documentId"`
	Questions  []Question `json:"questions"`
}

// QuestionDeletedPayload is sent after a question is removed
type QuestionDeletedPayload struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
}

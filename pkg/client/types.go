package client

import "time"

// Question mirrors the server's question payload.
type Question struct {
	ID            string    `json:"_id"`
	DocumentID    string    `json:"documentId"`
	UserID        string    `json:"userId,omitempty"`
	Type          string    `json:"type"`
	Difficulty    string    `json:"difficulty"`
	Question      string    `json:"question"`
	Options       []string  `json:"options,omitempty"`
	CorrectAnswer string    `json:"correctAnswer"`
	Explanation   string    `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GenerateOptions is sent as the body of a generation request. Zero values
// are left for the server to default.
type GenerateOptions struct {
	Count      int    `json:"count,omitempty"`
	Type       string `json:"type,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// ValidationResult is the grading outcome for one answer.
type ValidationResult struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// ExamAnswer is one answer submitted with ValidateExam.
type ExamAnswer struct {
	QuestionID string `json:"questionId"`
	UserAnswer string `json:"userAnswer"`
}

// ExamResult aggregates a graded exam.
type ExamResult struct {
	Total   int                `json:"total"`
	Correct int                `json:"correct"`
	Score   float64            `json:"score"`
	Results []ValidationResult `json:"results"`
}

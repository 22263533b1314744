package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionType defines the type of question
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeTrueFalse      QuestionType = "true-false"
	QuestionTypeShortAnswer    QuestionType = "short-answer"
)

// Difficulty is the requested level for generated questions
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a generated quiz item tied to one document
type Question struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	DocumentID    primitive.ObjectID `json:"documentId" bson:"documentId"`
	UserID        string             `json:"userId" bson:"userId"`
	Type          QuestionType       `json:"type" bson:"type"`
	Difficulty    Difficulty         `json:"difficulty" bson:"difficulty"`
	Question      string             `json:"question" bson:"question"`
	Options       []string           `json:"options,omitempty" bson:"options,omitempty"` // multiple-choice / true-false
	CorrectAnswer string             `json:"correctAnswer" bson:"correctAnswer"`
	Explanation   string             `json:"explanation,omitempty" bson:"explanation,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}

// GenerateOptions is the request body for question generation
type GenerateOptions struct {
	Count      int          `json:"count" validate:"omitempty,min=1,max=50"`
	Type       QuestionType `json:"type" validate:"omitempty,oneof=multiple-choice true-false short-answer"`
	Difficulty Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// WithDefaults fills unset generation options
func (o GenerateOptions) WithDefaults() GenerateOptions {
	if o.Count == 0 {
		o.Count = 5
	}
	if o.Type == "" {
		o.Type = QuestionTypeMultipleChoice
	}
	if o.Difficulty == "" {
		o.Difficulty = DifficultyMedium
	}
	return o
}

// ValidateAnswerRequest is the request body for single answer validation
type ValidateAnswerRequest struct {
	UserAnswer string `json:"userAnswer" validate:"required"`
}

// ValidationResult is the outcome of grading one answer
type ValidationResult struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// ExamAnswer is one submitted answer in an exam
type ExamAnswer struct {
	QuestionID string `json:"questionId" validate:"required"`
	UserAnswer string `json:"userAnswer"`
}

// ValidateExamRequest is the request body for batch validation
type ValidateExamRequest struct {
	Answers []ExamAnswer `json:"answers" validate:"required,min=1,dive"`
}

// ExamResult aggregates graded answers
type ExamResult struct {
	Total   int                `json:"total"`
	Correct int                `json:"correct"`
	Score   float64            `json:"score"` // percent
	Results []ValidationResult `json:"results"`
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is an uploaded source text questions are generated from
type Document struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"userId"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content,omitempty" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateDocumentRequest is the request body for document upload
type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// AskRequest is the request body for a grounded question about a document
type AskRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
	Question   string `json:"question" validate:"required"`
}

// AskResponse carries the grounded answer
type AskResponse struct {
	DocumentID string `json:"documentId"`
	Answer     string `json:"answer"`
	Source     string `json:"source"` // "llm" or "passage"
}

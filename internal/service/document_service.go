package service

import (
	"context"

	"docquiz/internal/cache"
	"docquiz/internal/model"
	"docquiz/internal/repository"

	"go.uber.org/zap"
)

// DocumentService handles document CRUD operations
type DocumentService struct {
	documents repository.DocumentRepo
	questions repository.QuestionRepo
	cache     cache.QuestionCache
	logger    *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(documents repository.DocumentRepo, questions repository.QuestionRepo, questionCache cache.QuestionCache, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents: documents,
		questions: questions,
		cache:     questionCache,
		logger:    logger.With(zap.String("module", "documents")),
	}
}

// Create stores a new document for the user
func (s *DocumentService) Create(ctx context.Context, userID string, req model.CreateDocumentRequest) (*model.Document, error) {
	doc := &model.Document{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	}
	if _, err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByID retrieves an owned document
func (s *DocumentService) GetByID(ctx context.Context, userID, id string) (*model.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != userID {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// List retrieves all documents for a user
func (s *DocumentService) List(ctx context.Context, userID string) ([]*model.Document, error) {
	return s.documents.ListByUser(ctx, userID)
}

// Delete removes an owned document together with its questions
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}
	removed, err := s.questions.DeleteByDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.cache.InvalidateDocument(ctx, userID, id); err != nil {
		s.logger.Warn("question cache invalidation failed", zap.Error(err))
	}

	s.logger.Info("document deleted", zap.String("documentId", id), zap.Int64("questionsRemoved", removed))
	return nil
}

package service

import (
	"context"
	"testing"
	"time"

	"docquiz/internal/cache"
	"docquiz/internal/model"
	"docquiz/internal/repository/repositorytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentDeleteCascadesQuestions(t *testing.T) {
	ctx := context.Background()
	docs := repositorytest.NewDocuments()
	questions := repositorytest.NewQuestions()
	qc := cache.NewMemoryQuestionCache(time.Minute)
	docSvc := NewDocumentService(docs, questions, qc, nil)
	qSvc := NewQuestionService(questions, docs, qc, NewQuestionGenerator(nil, "", nil), nil)

	doc, err := docSvc.Create(ctx, "u1", model.CreateDocumentRequest{Title: "Science", Content: sampleContent})
	require.NoError(t, err)
	docID := doc.ID.Hex()

	_, err = qSvc.Generate(ctx, "u1", docID, model.GenerateOptions{Count: 2})
	require.NoError(t, err)
	warm, err := qSvc.ListByDocument(ctx, "u1", docID)
	require.NoError(t, err)
	require.Len(t, warm, 2)

	assert.ErrorIs(t, docSvc.Delete(ctx, "u2", docID), ErrDocumentNotFound)
	require.NoError(t, docSvc.Delete(ctx, "u1", docID))

	left, err := qSvc.ListByDocument(ctx, "u1", docID)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = docSvc.GetByID(ctx, "u1", docID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentListIsUserScoped(t *testing.T) {
	ctx := context.Background()
	svc := NewDocumentService(repositorytest.NewDocuments(), repositorytest.NewQuestions(), cache.NewMemoryQuestionCache(time.Minute), nil)

	_, err := svc.Create(ctx, "u1", model.CreateDocumentRequest{Title: "A", Content: "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", model.CreateDocumentRequest{Title: "B", Content: "b"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Title)
}

func TestAskFallsBackToBestPassage(t *testing.T) {
	ctx := context.Background()
	docSvc := NewDocumentService(repositorytest.NewDocuments(), repositorytest.NewQuestions(), cache.NewMemoryQuestionCache(time.Minute), nil)
	doc, err := docSvc.Create(ctx, "u1", model.CreateDocumentRequest{Title: "Science", Content: sampleContent})
	require.NoError(t, err)

	rag := NewRAGService(docSvc, nil, "", nil)
	res, err := rag.Ask(ctx, "u1", model.AskRequest{DocumentID: doc.ID.Hex(), Question: "Which planet is the largest?"})
	require.NoError(t, err)

	assert.Equal(t, "passage", res.Source)
	assert.Equal(t, "Jupiter is the largest planet orbiting our Sun.", res.Answer)

	_, err = rag.Ask(ctx, "u2", model.AskRequest{DocumentID: doc.ID.Hex(), Question: "x"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService("secret")

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	token := signToken(t, "secret", "u1", time.Hour)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)

	_, err = svc.ValidateToken(signToken(t, "other", "u1", time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(signToken(t, "secret", "u1", -time.Minute))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(signToken(t, "secret", "", time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

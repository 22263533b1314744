package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docquiz/internal/cache"
	"docquiz/internal/model"
	"docquiz/internal/repository/repositorytest"
	"docquiz/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeDoesNothingInTestEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("MONGODB_URI", "mongodb://127.0.0.1:1")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"serve", "--port", "0"})
	require.NoError(t, cmd.Execute())
}

func TestRootListsCommands(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "serve")
	assert.Contains(t, out.String(), "indexes")
	assert.Contains(t, out.String(), "seed")
}

func TestSeedCreatesDocumentAndQuestions(t *testing.T) {
	docs := repositorytest.NewDocuments()
	questions := repositorytest.NewQuestions()
	qc := cache.NewMemoryQuestionCache(time.Minute)
	documentSvc := service.NewDocumentService(docs, questions, qc, nil)
	questionSvc := service.NewQuestionService(questions, docs, qc, service.NewQuestionGenerator(nil, "", nil), nil)

	var out bytes.Buffer
	require.NoError(t, seed(context.Background(), documentSvc, questionSvc, "user-1", 4, &out))

	list, err := documentSvc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sampleTitle, list[0].Title)

	stored, err := questionSvc.ListByDocument(context.Background(), "user-1", list[0].ID.Hex())
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "document "+list[0].ID.Hex()+": 4 questions", lines[0])
	assert.Len(t, lines, 4)
}

type failingCreator struct{}

func (failingCreator) Create(context.Context, string, model.CreateDocumentRequest) (*model.Document, error) {
	return nil, errors.New("mongo down")
}

func TestSeedReportsCreateFailure(t *testing.T) {
	err := seed(context.Background(), failingCreator{}, nil, "user-1", 3, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create document")
}

package service

import (
	"context"
	"fmt"
	"strings"

	"docquiz/internal/model"

	"go.uber.org/zap"
)

// RAGService answers questions grounded on a single document
type RAGService struct {
	documents *DocumentService
	llm       *LLMClient
	model     string
	logger    *zap.Logger
}

// NewRAGService creates a new RAG service; llm may be nil
func NewRAGService(documents *DocumentService, llm *LLMClient, modelName string, logger *zap.Logger) *RAGService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{
		documents: documents,
		llm:       llm,
		model:     modelName,
		logger:    logger.With(zap.String("module", "rag")),
	}
}

// Ask answers req.Question from the owned document. Without an LLM the most
// relevant passage is returned verbatim.
func (s *RAGService) Ask(ctx context.Context, userID string, req model.AskRequest) (*model.AskResponse, error) {
	doc, err := s.documents.GetByID(ctx, userID, req.DocumentID)
	if err != nil {
		return nil, err
	}

	if s.llm.Enabled() {
		prompt := fmt.Sprintf("Answer the question using only the document below. "+
			"If the document does not contain the answer, say so.\n\nQuestion: %s\n\nDocument (%s):\n%s",
			req.Question, doc.Title, doc.Content)
		answer, err := s.llm.Complete(ctx, s.model, prompt, false)
		if err == nil && strings.TrimSpace(answer) != "" {
			return &model.AskResponse{DocumentID: req.DocumentID, Answer: strings.TrimSpace(answer), Source: "llm"}, nil
		}
		s.logger.Warn("LLM answer failed, using passage match", zap.Error(err))
	}

	return &model.AskResponse{
		DocumentID: req.DocumentID,
		Answer:     bestPassage(doc.Content, req.Question),
		Source:     "passage",
	}, nil
}

// bestPassage returns the sentence sharing the most terms with the query.
func bestPassage(content, query string) string {
	terms := make(map[string]bool)
	for _, w := range strings.Fields(normalize(query)) {
		if w = strings.Trim(w, ".,;:!?\"'()"); len(w) > 2 {
			terms[w] = true
		}
	}

	best, bestScore := "", 0
	for _, sentence := range splitSentences(content) {
		score := 0
		for _, w := range strings.Fields(normalize(sentence)) {
			if terms[strings.Trim(w, ".,;:!?\"'()")] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = sentence, score
		}
	}
	return best
}

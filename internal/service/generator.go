package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"docquiz/internal/model"

	"go.uber.org/zap"
)

var ErrNotEnoughContent = errors.New("document has too little text to generate questions")

// Generator turns a document into quiz questions
type Generator interface {
	Generate(ctx context.Context, doc *model.Document, opts model.GenerateOptions) ([]*model.Question, error)
}

// QuestionGenerator asks the LLM for questions and falls back to extracting
// cloze-style questions from the text when the LLM is unavailable or returns
// something unusable.
type QuestionGenerator struct {
	llm    *LLMClient
	model  string
	logger *zap.Logger
}

// NewQuestionGenerator creates a generator; llm may be nil
func NewQuestionGenerator(llm *LLMClient, modelName string, logger *zap.Logger) *QuestionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionGenerator{
		llm:    llm,
		model:  modelName,
		logger: logger.With(zap.String("module", "generator")),
	}
}

func (g *QuestionGenerator) Generate(ctx context.Context, doc *model.Document, opts model.GenerateOptions) ([]*model.Question, error) {
	opts = opts.WithDefaults()

	if g.llm.Enabled() {
		questions, err := g.generateWithLLM(ctx, doc, opts)
		if err == nil && len(questions) > 0 {
			return g.stamp(doc, opts, questions), nil
		}
		g.logger.Warn("LLM generation failed, using fallback", zap.Error(err), zap.String("documentId", doc.ID.Hex()))
	}

	questions, err := fallbackQuestions(doc.Content, opts)
	if err != nil {
		return nil, err
	}
	return g.stamp(doc, opts, questions), nil
}

type generatedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

func (g *QuestionGenerator) generateWithLLM(ctx context.Context, doc *model.Document, opts model.GenerateOptions) ([]*model.Question, error) {
	response, err := g.llm.Complete(ctx, g.model, buildGenerationPrompt(doc, opts), true)
	if err != nil {
		return nil, err
	}

	var gen struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(response), &gen); err != nil {
		return nil, fmt.Errorf("parse generation response: %w", err)
	}

	var questions []*model.Question
	for _, q := range gen.Questions {
		if q.Question == "" || q.CorrectAnswer == "" {
			continue
		}
		questions = append(questions, &model.Question{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
		if len(questions) == opts.Count {
			break
		}
	}
	return questions, nil
}

func (g *QuestionGenerator) stamp(doc *model.Document, opts model.GenerateOptions, questions []*model.Question) []*model.Question {
	now := time.Now()
	for _, q := range questions {
		q.DocumentID = doc.ID
		q.UserID = doc.UserID
		q.Type = opts.Type
		q.Difficulty = opts.Difficulty
		q.CreatedAt = now
	}
	return questions
}

func buildGenerationPrompt(doc *model.Document, opts model.GenerateOptions) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %d %s %s quiz questions about the document below.\n", opts.Count, opts.Difficulty, opts.Type)
	switch opts.Type {
	case model.QuestionTypeMultipleChoice:
		sb.WriteString("Each question has exactly 4 options; correctAnswer must equal one option verbatim.\n")
	case model.QuestionTypeTrueFalse:
		sb.WriteString(`Options are ["True","False"]; correctAnswer is "True" or "False".` + "\n")
	case model.QuestionTypeShortAnswer:
		sb.WriteString("Omit options; correctAnswer is a short phrase of at most five words.\n")
	}
	sb.WriteString(`Respond with JSON: {"questions":[{"question":"","options":[],"correctAnswer":"","explanation":""}]}` + "\n\n")
	fmt.Fprintf(&sb, "Title: %s\n\n%s", doc.Title, doc.Content)
	return sb.String()
}

type cloze struct {
	sentence string
	answer   string
}

// fallbackQuestions blanks the longest word of informative sentences.
func fallbackQuestions(content string, opts model.GenerateOptions) ([]*model.Question, error) {
	var items []cloze
	for _, s := range splitSentences(content) {
		if len(strings.Fields(s)) < 5 {
			continue
		}
		if word := keyword(s); word != "" {
			items = append(items, cloze{sentence: s, answer: word})
		}
	}
	if len(items) == 0 {
		return nil, ErrNotEnoughContent
	}

	var questions []*model.Question
	for i := 0; i < len(items) && len(questions) < opts.Count; i++ {
		it := items[i]
		blanked := strings.Replace(it.sentence, it.answer, "_____", 1)
		q := &model.Question{Explanation: it.sentence}

		switch opts.Type {
		case model.QuestionTypeTrueFalse:
			q.Question = "True or false: " + it.sentence
			q.Options = []string{"True", "False"}
			q.CorrectAnswer = "True"
		case model.QuestionTypeShortAnswer:
			q.Question = "Fill in the blank: " + blanked
			q.CorrectAnswer = it.answer
		default:
			q.Question = "Which word completes the sentence? " + blanked
			q.Options = mcqOptions(it.answer, i, items)
			q.CorrectAnswer = it.answer
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// mcqOptions picks up to three distractors from other sentences and places
// the answer at a position that rotates with the question index.
func mcqOptions(answer string, index int, items []cloze) []string {
	seen := map[string]bool{strings.ToLower(answer): true}
	var distractors []string
	for j := 1; j < len(items) && len(distractors) < 3; j++ {
		cand := items[(index+j)%len(items)].answer
		if !seen[strings.ToLower(cand)] {
			seen[strings.ToLower(cand)] = true
			distractors = append(distractors, cand)
		}
	}

	pos := index % (len(distractors) + 1)
	options := make([]string, 0, len(distractors)+1)
	options = append(options, distractors[:pos]...)
	options = append(options, answer)
	options = append(options, distractors[pos:]...)
	return options
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(text[start : i+1]); len(s) > 1 {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func keyword(sentence string) string {
	best := ""
	for _, w := range strings.Fields(sentence) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if len([]rune(w)) >= 4 && len(w) > len(best) {
			best = w
		}
	}
	return best
}

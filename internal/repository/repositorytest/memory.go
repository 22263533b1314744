// Package repositorytest provides in-memory repositories for tests that
// exercise services or handlers without MongoDB.
package repositorytest

import (
	"context"
	"sort"
	"sync"

	"docquiz/internal/model"
	"docquiz/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repository.DocumentRepo = (*Documents)(nil)
	_ repository.QuestionRepo = (*Questions)(nil)
)

// Documents is an in-memory repository.DocumentRepo.
type Documents struct {
	mu   sync.Mutex
	docs map[string]*model.Document
}

func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]*model.Document)}
}

func (m *Documents) Create(_ context.Context, doc *model.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	cp := *doc
	m.docs[doc.ID.Hex()] = &cp
	return doc.ID.Hex(), nil
}

func (m *Documents) GetByID(_ context.Context, id string) (*model.Document, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, repository.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *Documents) ListByUser(_ context.Context, userID string) ([]*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Document{}
	for _, d := range m.docs {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (m *Documents) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *Documents) EnsureIndexes(context.Context) error { return nil }

// Questions is an in-memory repository.QuestionRepo that keeps insertion
// order.
type Questions struct {
	mu        sync.Mutex
	questions map[string]*model.Question
	order     []string
	listCalls int
}

func NewQuestions() *Questions {
	return &Questions{questions: make(map[string]*model.Question)}
}

func (m *Questions) CreateMany(_ context.Context, questions []*model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range questions {
		if q.ID.IsZero() {
			q.ID = primitive.NewObjectID()
		}
		cp := *q
		m.questions[q.ID.Hex()] = &cp
		m.order = append(m.order, q.ID.Hex())
	}
	return nil
}

func (m *Questions) GetByID(_ context.Context, id string) (*model.Question, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, repository.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (m *Questions) GetByIDs(_ context.Context, ids []string) ([]*model.Question, error) {
	return m.filter(func(q *model.Question) bool {
		for _, id := range ids {
			if q.ID.Hex() == id {
				return true
			}
		}
		return false
	}), nil
}

func (m *Questions) ListByUser(_ context.Context, userID string) ([]*model.Question, error) {
	return m.filter(func(q *model.Question) bool { return q.UserID == userID }), nil
}

func (m *Questions) ListByDocument(_ context.Context, userID, documentID string) ([]*model.Question, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	return m.filter(func(q *model.Question) bool {
		return q.UserID == userID && q.DocumentID.Hex() == documentID
	}), nil
}

func (m *Questions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.questions, id)
	return nil
}

func (m *Questions) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, q := range m.questions {
		if q.DocumentID.Hex() == documentID {
			delete(m.questions, id)
			n++
		}
	}
	return n, nil
}

func (m *Questions) EnsureIndexes(context.Context) error { return nil }

func (m *Questions) filter(keep func(*model.Question) bool) []*model.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Question{}
	for _, id := range m.order {
		q, ok := m.questions[id]
		if ok && keep(q) {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out
}

// ListByDocumentCalls reports how often ListByDocument reached the store.
func (m *Questions) ListByDocumentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

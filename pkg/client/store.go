// Package client is a session-scoped cache of question data fetched from the
// docquiz API. A Store keeps three views in sync: the latest question list,
// a per-document index and the currently selected question, plus the
// transient grading result, a loading flag and the last error message.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
)

const notLoggedIn = "You must be logged in"

// Default failure messages, used when the server does not supply one.
const (
	msgGenerateFailed       = "Failed to generate questions"
	msgFetchQuestionsFailed = "Failed to fetch questions"
	msgFetchQuestionFailed  = "Failed to fetch question"
	msgValidateFailed       = "Failed to validate answer"
	msgValidateExamFailed   = "Failed to validate exam"
	msgDeleteFailed         = "Failed to delete question"
)

// State is a point-in-time copy of the store.
type State struct {
	Questions         []Question
	DocumentQuestions map[string][]Question
	CurrentQuestion   *Question
	ValidationResult  *ValidationResult
	IsLoading         bool
	Error             string
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) { s.httpClient = hc }
}

// WithNotifier sets where "You must be logged in" and similar messages go.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store caches questions for one session. All methods are safe for
// concurrent use; the lock is never held across network I/O, so concurrent
// operations complete in arrival order and same-key writes are
// last-write-wins.
type Store struct {
	api        *apiClient
	httpClient *http.Client
	tokens     TokenSource
	notifier   Notifier
	logger     *zap.Logger

	mu       sync.Mutex
	state    State
	inFlight int
	subs     map[int]func(State)
	nextSub  int
	watchers map[int]context.CancelFunc
	nextW    int
	closed   bool
}

// New creates an empty store talking to the API at baseURL.
func New(baseURL string, tokens TokenSource, opts ...Option) *Store {
	s := &Store{
		tokens:   tokens,
		notifier: NopNotifier{},
		logger:   zap.NewNop(),
		state:    State{DocumentQuestions: make(map[string][]Question)},
		subs:     make(map[int]func(State)),
		watchers: make(map[int]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		s.tokens = StaticToken("")
	}
	s.logger = s.logger.With(zap.String("module", "questionStore"))
	s.api = newAPIClient(baseURL, s.httpClient)
	return s
}

// GenerateQuestions asks the server to generate questions for documentID and
// stores them under that document.
func (s *Store) GenerateQuestions(ctx context.Context, documentID string, opts GenerateOptions) Result[[]Question] {
	return execute(ctx, s, operation{name: "generateQuestions", fallback: msgGenerateFailed},
		func(ctx context.Context, token string) (envelope[[]Question], error) {
			var env envelope[[]Question]
			err := s.api.send(ctx, http.MethodPost, token, "/api/questions/generate/"+url.PathEscape(documentID), opts, &env)
			return env, err
		},
		func(st *State, env envelope[[]Question]) {
			st.DocumentQuestions[documentID] = cloneQuestions(env.Data)
		})
}

// GetAllQuestions replaces Questions with every question the user owns.
func (s *Store) GetAllQuestions(ctx context.Context) Result[[]Question] {
	return execute(ctx, s, operation{name: "getAllQuestions", fallback: msgFetchQuestionsFailed},
		func(ctx context.Context, token string) (envelope[[]Question], error) {
			var env envelope[[]Question]
			err := s.api.get(ctx, token, "/api/questions", &env)
			return env, err
		},
		func(st *State, env envelope[[]Question]) {
			st.Questions = cloneQuestions(env.Data)
		})
}

// GetQuestionsByDocument sets both DocumentQuestions[documentID] and
// Questions to the document's questions.
func (s *Store) GetQuestionsByDocument(ctx context.Context, documentID string) Result[[]Question] {
	return execute(ctx, s, operation{name: "getQuestionsByDocument", fallback: msgFetchQuestionsFailed},
		func(ctx context.Context, token string) (envelope[[]Question], error) {
			var env envelope[[]Question]
			err := s.api.get(ctx, token, "/api/questions/document/"+url.PathEscape(documentID), &env)
			return env, err
		},
		func(st *State, env envelope[[]Question]) {
			st.DocumentQuestions[documentID] = cloneQuestions(env.Data)
			st.Questions = cloneQuestions(env.Data)
		})
}

// FetchQuestionsByDocument is an alias of GetQuestionsByDocument.
func (s *Store) FetchQuestionsByDocument(ctx context.Context, documentID string) Result[[]Question] {
	return s.GetQuestionsByDocument(ctx, documentID)
}

// GetQuestionByID loads one question into CurrentQuestion.
func (s *Store) GetQuestionByID(ctx context.Context, id string) Result[Question] {
	return execute(ctx, s, operation{name: "getQuestionById", fallback: msgFetchQuestionFailed},
		func(ctx context.Context, token string) (envelope[Question], error) {
			var env envelope[Question]
			err := s.api.get(ctx, token, "/api/questions/"+url.PathEscape(id), &env)
			return env, err
		},
		func(st *State, env envelope[Question]) {
			q := cloneQuestion(env.Data)
			st.CurrentQuestion = &q
		})
}

// ValidateAnswer grades userAnswer and stores the outcome in
// ValidationResult. Any previous result is cleared when the call starts.
func (s *Store) ValidateAnswer(ctx context.Context, questionID, userAnswer string) Result[ValidationResult] {
	return execute(ctx, s, operation{name: "validateAnswer", fallback: msgValidateFailed, clearValidation: true},
		func(ctx context.Context, token string) (envelope[ValidationResult], error) {
			var env envelope[ValidationResult]
			body := map[string]string{"userAnswer": userAnswer}
			err := s.api.send(ctx, http.MethodPost, token, "/api/questions/"+url.PathEscape(questionID)+"/validate", body, &env)
			return env, err
		},
		func(st *State, env envelope[ValidationResult]) {
			r := env.Data
			st.ValidationResult = &r
		})
}

// ValidateExam grades a batch of answers. The result is returned only; no
// view changes.
func (s *Store) ValidateExam(ctx context.Context, answers []ExamAnswer) Result[ExamResult] {
	return execute(ctx, s, operation{name: "validateExam", fallback: msgValidateExamFailed},
		func(ctx context.Context, token string) (envelope[ExamResult], error) {
			var env envelope[ExamResult]
			body := map[string][]ExamAnswer{"answers": answers}
			err := s.api.send(ctx, http.MethodPost, token, "/api/questions/validate-exam", body, &env)
			return env, err
		},
		nil)
}

// DeleteQuestion deletes id on the server and then removes it from Questions
// and from every DocumentQuestions entry at once.
func (s *Store) DeleteQuestion(ctx context.Context, id string) Result[struct{}] {
	return execute(ctx, s, operation{name: "deleteQuestion", fallback: msgDeleteFailed},
		func(ctx context.Context, token string) (envelope[struct{}], error) {
			var env envelope[struct{}]
			err := s.api.send(ctx, http.MethodDelete, token, "/api/questions/"+url.PathEscape(id), nil, nil)
			return env, err
		},
		func(st *State, _ envelope[struct{}]) {
			removeQuestion(st, id)
		})
}

// ClearCurrentQuestion drops CurrentQuestion and ValidationResult.
func (s *Store) ClearCurrentQuestion() {
	s.update(func(st *State) {
		st.CurrentQuestion = nil
		st.ValidationResult = nil
	})
}

// ClearValidationResult drops ValidationResult only.
func (s *Store) ClearValidationResult() {
	s.update(func(st *State) {
		st.ValidationResult = nil
	})
}

// Snapshot returns a copy of the current state that callers may modify.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run with a fresh snapshot after every state
// change. Listeners run on the goroutine that made the change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close ends the session: state is dropped, watchers stop and subscribers
// are removed. Later operations still return results but change nothing.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.state = State{DocumentQuestions: make(map[string][]Question)}
	s.inFlight = 0
	s.subs = make(map[int]func(State))
	watchers := s.watchers
	s.watchers = make(map[int]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range watchers {
		cancel()
	}
}

type operation struct {
	name            string
	fallback        string
	clearValidation bool
}

// execute runs one network operation through the shared lifecycle: token
// check, loading/error bookkeeping, request, merge. It never panics.
func execute[T any](ctx context.Context, s *Store, op operation,
	fetch func(ctx context.Context, token string) (envelope[T], error),
	merge func(*State, envelope[T]),
) (res Result[T]) {
	began, finished := false, false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("operation panicked", zap.String("op", op.name), zap.Any("panic", r))
			if began && !finished {
				s.finish(func(st *State) { st.Error = op.fallback })
			}
			res = failure[T](&Error{Kind: RequestFailed, Message: op.fallback, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	token := s.tokens.Token()
	if token == "" {
		s.notifier.Error(notLoggedIn)
		return failure[T](ErrAuthenticationRequired)
	}

	s.begin(op.clearValidation)
	began = true

	env, err := fetch(ctx, token)
	if err != nil {
		e := requestError(err, op.fallback)
		s.logger.Debug("request failed", zap.String("op", op.name), zap.Error(err))
		finished = true
		s.finish(func(st *State) { st.Error = e.Message })
		return failure[T](e)
	}

	finished = true
	s.finish(func(st *State) {
		if merge != nil {
			merge(st, env)
		}
	})
	return Result[T]{Success: true, Data: env.Data, Count: env.Count, Preview: env.Preview}
}

func requestError(err error, fallback string) *Error {
	e := &Error{Kind: RequestFailed, Message: fallback, Err: err}
	var he *httpError
	if errors.As(err, &he) {
		e.StatusCode = he.StatusCode
		if he.Message != "" {
			e.Message = he.Message
		}
	}
	return e
}

func (s *Store) begin(clearValidation bool) {
	s.update(func(st *State) {
		s.inFlight++
		st.Error = ""
		if clearValidation {
			st.ValidationResult = nil
		}
	})
}

func (s *Store) finish(apply func(*State)) {
	s.update(func(st *State) {
		if s.inFlight > 0 {
			s.inFlight--
		}
		apply(st)
	})
}

// update applies fn under the lock and then notifies subscribers.
func (s *Store) update(fn func(*State)) {
	snap, subs, ok := s.apply(fn)
	if !ok {
		return
	}
	for _, sub := range subs {
		s.notify(sub, snap)
	}
}

// notify runs one listener; a panicking listener is logged and skipped.
func (s *Store) notify(sub func(State), snap State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", zap.Any("panic", r))
		}
	}()
	sub(snap)
}

func (s *Store) apply(fn func(*State)) (State, []func(State), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return State{}, nil, false
	}
	fn(&s.state)
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return s.snapshotLocked(), subs, true
}

func (s *Store) snapshotLocked() State {
	snap := State{
		Questions:         cloneQuestions(s.state.Questions),
		DocumentQuestions: make(map[string][]Question, len(s.state.DocumentQuestions)),
		IsLoading:         s.inFlight > 0,
		Error:             s.state.Error,
	}
	for k, v := range s.state.DocumentQuestions {
		snap.DocumentQuestions[k] = cloneQuestions(v)
	}
	if s.state.CurrentQuestion != nil {
		q := cloneQuestion(*s.state.CurrentQuestion)
		snap.CurrentQuestion = &q
	}
	if s.state.ValidationResult != nil {
		r := *s.state.ValidationResult
		snap.ValidationResult = &r
	}
	return snap
}

func removeQuestion(st *State, id string) {
	st.Questions = without(st.Questions, id)
	for docID, qs := range st.DocumentQuestions {
		st.DocumentQuestions[docID] = without(qs, id)
	}
}

func without(qs []Question, id string) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if q.ID != id {
			out = append(out, q)
		}
	}
	return out
}

func cloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = cloneQuestion(q)
	}
	return out
}

func cloneQuestion(q Question) Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

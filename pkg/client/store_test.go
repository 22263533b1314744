package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docquiz/pkg/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, message)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func newAPI(t *testing.T, h http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func questions(doc string, n int) []client.Question {
	out := make([]client.Question, n)
	for i := range out {
		out[i] = client.Question{
			ID:            fmt.Sprintf("%s-q%d", doc, i+1),
			DocumentID:    doc,
			Type:          "multiple-choice",
			Question:      fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"A", "B"},
			CorrectAnswer: "A",
		}
	}
	return out
}

// routes serves a small in-memory question API.
func routes(t *testing.T, byDoc map[string][]client.Question) http.HandlerFunc {
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/questions", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		var all []client.Question
		for _, d := range []string{"doc1", "doc2"} {
			all = append(all, byDoc[d]...)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": all})
	})
	mux.HandleFunc("GET /api/questions/document/{doc}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": byDoc[r.PathValue("doc")]})
	})
	mux.HandleFunc("GET /api/questions/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		for _, qs := range byDoc {
			for _, q := range qs {
				if q.ID == r.PathValue("id") {
					writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": q})
					return
				}
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "question not found"})
	})
	generate := func(w http.ResponseWriter, r *http.Request, doc string) {
		var opts client.GenerateOptions
		require.NoError(t, json.NewDecoder(r.Body).Decode(&opts))
		qs := questions(doc, opts.Count)
		mu.Lock()
		byDoc[doc] = qs
		mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true, "data": qs, "count": len(qs), "preview": qs[:min(3, len(qs))],
		})
	}
	validate := func(w http.ResponseWriter, r *http.Request, id string) {
		var body struct {
			UserAnswer string `json:"userAnswer"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": client.ValidationResult{
			QuestionID: id, IsCorrect: body.UserAnswer == "A", UserAnswer: body.UserAnswer, CorrectAnswer: "A",
		}})
	}
	// generate/{doc} and {id}/validate share a shape
	mux.HandleFunc("POST /api/questions/{first}/{second}", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.PathValue("first") == "generate":
			generate(w, r, r.PathValue("second"))
		case r.PathValue("second") == "validate":
			validate(w, r, r.PathValue("first"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("POST /api/questions/validate-exam", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Answers []client.ExamAnswer `json:"answers"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": client.ExamResult{
			Total: len(body.Answers), Correct: 1, Score: 50,
		}})
	})
	mux.HandleFunc("DELETE /api/questions/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Question deleted"})
	})
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		mux.ServeHTTP(w, r)
	}
}

func TestOperationsWithoutTokenMakeNoCalls(t *testing.T) {
	srv, hits := newAPI(t, routes(t, map[string][]client.Question{}))
	notifier := &recordingNotifier{}
	store := client.New(srv.URL, client.StaticToken(""), client.WithNotifier(notifier))
	ctx := context.Background()

	errs := []*client.Error{
		store.GenerateQuestions(ctx, "doc1", client.GenerateOptions{Count: 5}).Err,
		store.GetAllQuestions(ctx).Err,
		store.GetQuestionsByDocument(ctx, "doc1").Err,
		store.FetchQuestionsByDocument(ctx, "doc1").Err,
		store.GetQuestionByID(ctx, "q1").Err,
		store.ValidateAnswer(ctx, "q1", "A").Err,
		store.ValidateExam(ctx, []client.ExamAnswer{{QuestionID: "q1", UserAnswer: "A"}}).Err,
		store.DeleteQuestion(ctx, "q1").Err,
	}

	for _, err := range errs {
		require.NotNil(t, err)
		assert.Equal(t, client.AuthenticationRequired, err.Kind)
		assert.Equal(t, "Authentication required", err.Message)
		assert.ErrorIs(t, err, client.ErrAuthenticationRequired)
	}
	assert.Equal(t, int32(0), hits.Load())
	assert.Len(t, notifier.messages(), len(errs))
	assert.Equal(t, "You must be logged in", notifier.messages()[0])

	snap := store.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Questions)
	assert.Empty(t, snap.DocumentQuestions)
}

func TestGenerateQuestionsStoresUnderDocument(t *testing.T) {
	srv, _ := newAPI(t, routes(t, map[string][]client.Question{}))
	store := client.New(srv.URL, client.StaticToken("tok"))

	res := store.GenerateQuestions(context.Background(), "doc1", client.GenerateOptions{Count: 5})
	require.True(t, res.Success)
	assert.Nil(t, res.Err)
	assert.Equal(t, 5, res.Count)
	assert.Len(t, res.Data, 5)
	assert.Len(t, res.Preview, 3)

	snap := store.Snapshot()
	assert.Equal(t, res.Data, snap.DocumentQuestions["doc1"])
	assert.Empty(t, snap.Questions)
	assert.False(t, snap.IsLoading)
}

func TestGetQuestionsByDocumentSetsBothViews(t *testing.T) {
	byDoc := map[string][]client.Question{"doc1": questions("doc1", 3), "doc2": questions("doc2", 2)}
	srv, _ := newAPI(t, routes(t, byDoc))
	store := client.New(srv.URL, client.StaticToken("tok"))
	ctx := context.Background()

	require.True(t, store.GetQuestionsByDocument(ctx, "doc1").Success)
	res := store.FetchQuestionsByDocument(ctx, "doc2")
	require.True(t, res.Success)

	snap := store.Snapshot()
	assert.Equal(t, byDoc["doc2"], snap.Questions)
	assert.Equal(t, byDoc["doc2"], snap.DocumentQuestions["doc2"])
	assert.Equal(t, byDoc["doc1"], snap.DocumentQuestions["doc1"])
}

func TestGetAllAndByID(t *testing.T) {
	byDoc := map[string][]client.Question{"doc1": questions("doc1", 2), "doc2": questions("doc2", 1)}
	srv, _ := newAPI(t, routes(t, byDoc))
	store := client.New(srv.URL, client.StaticToken("tok"))
	ctx := context.Background()

	all := store.GetAllQuestions(ctx)
	require.True(t, all.Success)
	assert.Len(t, all.Data, 3)
	assert.Len(t, store.Snapshot().Questions, 3)
	assert.Empty(t, store.Snapshot().DocumentQuestions)

	one := store.GetQuestionByID(ctx, "doc2-q1")
	require.True(t, one.Success)
	require.NotNil(t, store.Snapshot().CurrentQuestion)
	assert.Equal(t, "doc2-q1", store.Snapshot().CurrentQuestion.ID)

	missing := store.GetQuestionByID(ctx, "nope")
	require.False(t, missing.Success)
	assert.Equal(t, "question not found", missing.Err.Message)
	assert.Equal(t, http.StatusNotFound, missing.Err.StatusCode)
	assert.Equal(t, "doc2-q1", store.Snapshot().CurrentQuestion.ID)
}

func TestDeleteQuestionRemovesEverywhere(t *testing.T) {
	shared := questions("doc1", 3)
	byDoc := map[string][]client.Question{"doc1": shared, "doc2": append(questions("doc2", 1), shared[1])}
	srv, _ := newAPI(t, routes(t, byDoc))
	store := client.New(srv.URL, client.StaticToken("tok"))
	ctx := context.Background()

	require.True(t, store.GetQuestionsByDocument(ctx, "doc2").Success)
	require.True(t, store.GetQuestionsByDocument(ctx, "doc1").Success)
	require.True(t, store.GetQuestionByID(ctx, "doc1-q2").Success)

	target := shared[1].ID
	require.True(t, store.DeleteQuestion(ctx, target).Success)

	snap := store.Snapshot()
	for doc, qs := range snap.DocumentQuestions {
		for _, q := range qs {
			assert.NotEqual(t, target, q.ID, "document %s still holds deleted question", doc)
		}
	}
	for _, q := range snap.Questions {
		assert.NotEqual(t, target, q.ID)
	}
	assert.Len(t, snap.DocumentQuestions["doc1"], 2)
	assert.Len(t, snap.DocumentQuestions["doc2"], 1)
	require.NotNil(t, snap.CurrentQuestion)

	again := store.DeleteQuestion(ctx, target)
	assert.True(t, again.Success)
	assert.Equal(t, snap.DocumentQuestions, store.Snapshot().DocumentQuestions)
	assert.Equal(t, snap.Questions, store.Snapshot().Questions)
}

func TestValidateAnswerAndClears(t *testing.T) {
	byDoc := map[string][]client.Question{"doc1": questions("doc1", 2)}
	srv, _ := newAPI(t, routes(t, byDoc))
	store := client.New(srv.URL, client.StaticToken("tok"))
	ctx := context.Background()

	require.True(t, store.GetQuestionsByDocument(ctx, "doc1").Success)
	require.True(t, store.GetQuestionByID(ctx, "doc1-q1").Success)

	res := store.ValidateAnswer(ctx, "doc1-q1", "A")
	require.True(t, res.Success)
	assert.True(t, res.Data.IsCorrect)
	require.NotNil(t, store.Snapshot().ValidationResult)

	before := store.Snapshot()
	store.ClearValidationResult()
	after := store.Snapshot()
	assert.Nil(t, after.ValidationResult)
	assert.Equal(t, before.CurrentQuestion, after.CurrentQuestion)
	assert.Equal(t, before.Questions, after.Questions)
	assert.Equal(t, before.DocumentQuestions, after.DocumentQuestions)

	require.True(t, store.ValidateAnswer(ctx, "doc1-q1", "B").Success)
	store.ClearCurrentQuestion()
	assert.Nil(t, store.Snapshot().CurrentQuestion)
	assert.Nil(t, store.Snapshot().ValidationResult)

	store.ClearCurrentQuestion()
	assert.Nil(t, store.Snapshot().CurrentQuestion)
}

func TestValidateExamLeavesViewsAlone(t *testing.T) {
	srv, _ := newAPI(t, routes(t, map[string][]client.Question{"doc1": questions("doc1", 2)}))
	store := client.New(srv.URL, client.StaticToken("tok"))
	ctx := context.Background()
	require.True(t, store.GetQuestionsByDocument(ctx, "doc1").Success)
	before := store.Snapshot()

	res := store.ValidateExam(ctx, []client.ExamAnswer{{QuestionID: "doc1-q1", UserAnswer: "A"}, {QuestionID: "doc1-q2", UserAnswer: "B"}})
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Data.Total)
	assert.Equal(t, 50.0, res.Data.Score)
	assert.Equal(t, before, store.Snapshot())
}

type opCase struct {
	name     string
	fallback string
	call     func(context.Context, *client.Store) *client.Error
}

var allOps = []opCase{
	{"generate", "Failed to generate questions", func(ctx context.Context, s *client.Store) *client.Error {
		return s.GenerateQuestions(ctx, "doc1", client.GenerateOptions{Count: 5}).Err
	}},
	{"all", "Failed to fetch questions", func(ctx context.Context, s *client.Store) *client.Error {
		return s.GetAllQuestions(ctx).Err
	}},
	{"byDocument", "Failed to fetch questions", func(ctx context.Context, s *client.Store) *client.Error {
		return s.GetQuestionsByDocument(ctx, "doc1").Err
	}},
	{"byID", "Failed to fetch question", func(ctx context.Context, s *client.Store) *client.Error {
		return s.GetQuestionByID(ctx, "q1").Err
	}},
	{"validate", "Failed to validate answer", func(ctx context.Context, s *client.Store) *client.Error {
		return s.ValidateAnswer(ctx, "q1", "A").Err
	}},
	{"exam", "Failed to validate exam", func(ctx context.Context, s *client.Store) *client.Error {
		return s.ValidateExam(ctx, []client.ExamAnswer{{QuestionID: "q1", UserAnswer: "A"}}).Err
	}},
	{"delete", "Failed to delete question", func(ctx context.Context, s *client.Store) *client.Error {
		return s.DeleteQuestion(ctx, "q1").Err
	}},
}

func TestFailuresUseServerMessageOrFallback(t *testing.T) {
	withMessage, _ := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "server says no"})
	})
	withoutMessage, _ := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	for _, op := range allOps {
		t.Run(op.name, func(t *testing.T) {
			for _, tc := range []struct {
				name string
				url  string
				want string
			}{
				{"server message", withMessage.URL, "server says no"},
				{"no message", withoutMessage.URL, op.fallback},
				{"network error", downURL, op.fallback},
			} {
				t.Run(tc.name, func(t *testing.T) {
					store := client.New(tc.url, client.StaticToken("tok"))
					var loading []bool
					store.Subscribe(func(st client.State) { loading = append(loading, st.IsLoading) })

					err := op.call(context.Background(), store)
					require.NotNil(t, err)
					assert.Equal(t, client.RequestFailed, err.Kind)
					assert.Equal(t, tc.want, err.Message)
					assert.ErrorIs(t, err, client.ErrRequestFailed)

					snap := store.Snapshot()
					assert.Equal(t, tc.want, snap.Error)
					assert.False(t, snap.IsLoading)
					require.NotEmpty(t, loading)
					assert.True(t, loading[0])
					assert.False(t, loading[len(loading)-1])
				})
			}
		})
	}
}

func TestErrorClearedOnNextOperation(t *testing.T) {
	fail := atomic.Bool{}
	fail.Store(true)
	srv, _ := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": []client.Question{}})
	})
	store := client.New(srv.URL, client.StaticToken("tok"))

	store.GetAllQuestions(context.Background())
	assert.Equal(t, "Failed to fetch questions", store.Snapshot().Error)

	fail.Store(false)
	require.True(t, store.GetAllQuestions(context.Background()).Success)
	assert.Empty(t, store.Snapshot().Error)
}

func TestIsLoadingWhileAnyRequestInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	srv, _ := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": questions(r.URL.Path[len("/api/questions/document/"):], 1)})
	})
	store := client.New(srv.URL, client.StaticToken("tok"))

	var wg sync.WaitGroup
	for _, doc := range []string{"doc1", "doc2"} {
		wg.Add(1)
		go func(doc string) {
			defer wg.Done()
			store.GetQuestionsByDocument(context.Background(), doc)
		}(doc)
	}
	<-entered
	<-entered
	assert.True(t, store.Snapshot().IsLoading)

	close(release)
	wg.Wait()

	snap := store.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Len(t, snap.DocumentQuestions["doc1"], 1)
	assert.Len(t, snap.DocumentQuestions["doc2"], 1)
}

func TestIdenticalConcurrentReadsShareOneRequest(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	srv, hits := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": questions("doc1", 2)})
	})
	store := client.New(srv.URL, client.StaticToken("tok"))

	var wg sync.WaitGroup
	results := make([]client.Result[[]client.Question], 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = store.GetAllQuestions(context.Background())
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = store.GetAllQuestions(context.Background())
	}()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, results[0].Data, results[1].Data)
	assert.False(t, store.Snapshot().IsLoading)
}

func TestSnapshotIsACopy(t *testing.T) {
	srv, _ := newAPI(t, routes(t, map[string][]client.Question{"doc1": questions("doc1", 2)}))
	store := client.New(srv.URL, client.StaticToken("tok"))
	require.True(t, store.GetQuestionsByDocument(context.Background(), "doc1").Success)

	snap := store.Snapshot()
	snap.Questions[0].Question = "mutated"
	snap.Questions[0].Options[0] = "mutated"
	delete(snap.DocumentQuestions, "doc1")

	fresh := store.Snapshot()
	assert.Equal(t, "Question 1?", fresh.Questions[0].Question)
	assert.Equal(t, "A", fresh.Questions[0].Options[0])
	assert.Len(t, fresh.DocumentQuestions["doc1"], 2)
}

func TestCloseDropsStateAndSubscribers(t *testing.T) {
	srv, _ := newAPI(t, routes(t, map[string][]client.Question{"doc1": questions("doc1", 2)}))
	store := client.New(srv.URL, client.StaticToken("tok"))
	calls := 0
	store.Subscribe(func(client.State) { calls++ })

	require.True(t, store.GetQuestionsByDocument(context.Background(), "doc1").Success)
	seen := calls
	require.Positive(t, seen)

	store.Close()
	assert.Empty(t, store.Snapshot().Questions)

	store.GetQuestionsByDocument(context.Background(), "doc1")
	assert.Equal(t, seen, calls)
	assert.Empty(t, store.Snapshot().DocumentQuestions)
}

func TestUnsubscribe(t *testing.T) {
	store := client.New("http://unused", client.StaticToken("tok"))
	calls := 0
	unsubscribe := store.Subscribe(func(client.State) { calls++ })

	store.ClearValidationResult()
	unsubscribe()
	store.ClearValidationResult()

	assert.Equal(t, 1, calls)
}

func TestCancelledReadDoesNotFailSharedCaller(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	srv, hits := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": questions("doc1", 2)})
	})
	store := client.New(srv.URL, client.StaticToken("tok"))

	ctxA, cancelA := context.WithCancel(context.Background())
	resA := make(chan client.Result[[]client.Question], 1)
	go func() { resA <- store.GetAllQuestions(ctxA) }()
	<-entered

	cancelA()
	a := <-resA
	require.False(t, a.Success)
	assert.ErrorIs(t, a.Err, context.Canceled)

	resB := make(chan client.Result[[]client.Question], 1)
	go func() { resB <- store.GetAllQuestions(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	close(release)

	b := <-resB
	require.True(t, b.Success, "shared read failed: %v", b.Err)
	assert.Len(t, b.Data, 2)
	assert.Equal(t, int32(1), hits.Load())

	snap := store.Snapshot()
	assert.Len(t, snap.Questions, 2)
	assert.False(t, snap.IsLoading)
}

func TestPanickingSubscriberDoesNotEscape(t *testing.T) {
	srv, _ := newAPI(t, routes(t, map[string][]client.Question{"doc1": questions("doc1", 2)}))
	store := client.New(srv.URL, client.StaticToken("tok"))
	store.Subscribe(func(st client.State) {
		if st.IsLoading {
			panic("render failed")
		}
	})

	var res client.Result[[]client.Question]
	require.NotPanics(t, func() {
		res = store.GetQuestionsByDocument(context.Background(), "doc1")
	})
	assert.True(t, res.Success)

	snap := store.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Len(t, snap.DocumentQuestions["doc1"], 2)
}

type panickingTokens struct{}

func (panickingTokens) Token() string { panic("keychain locked") }

func TestPanickingTokenSourceIsReported(t *testing.T) {
	srv, hits := newAPI(t, routes(t, map[string][]client.Question{}))
	store := client.New(srv.URL, panickingTokens{})

	var res client.Result[[]client.Question]
	require.NotPanics(t, func() { res = store.GetAllQuestions(context.Background()) })
	require.False(t, res.Success)
	assert.Equal(t, client.RequestFailed, res.Err.Kind)
	assert.Equal(t, "Failed to fetch questions", res.Err.Message)
	assert.Equal(t, int32(0), hits.Load())
	assert.False(t, store.Snapshot().IsLoading)
}

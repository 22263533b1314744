package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server push event types.
const (
	EventQuestionsGenerated = "questions.generated"
	EventQuestionDeleted    = "question.deleted"
)

type event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Watch subscribes to the user's live event stream at wsURL (the server's
// /ws endpoint) and applies events to the store until ctx is done, the
// socket closes, or the store is closed. A question.deleted event removes the
// question exactly like DeleteQuestion; questions.generated replaces the
// document's entry in DocumentQuestions.
func (s *Store) Watch(ctx context.Context, wsURL string) error {
	token := s.tokens.Token()
	if token == "" {
		s.notifier.Error(notLoggedIn)
		return ErrAuthenticationRequired
	}

	u, err := url.Parse(wsURL)
	if err != nil {
		return fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return &Error{Kind: RequestFailed, Message: "Failed to connect to live updates", Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	id, ok := s.addWatcher(cancel)
	if !ok {
		conn.Close()
		return nil
	}
	defer s.removeWatcher(id)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		s.applyEvent(ev)
	}
}

func (s *Store) applyEvent(ev event) {
	switch ev.Type {
	case EventQuestionDeleted:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.ID == "" {
			s.logger.Warn("bad event payload", zap.String("type", ev.Type), zap.Error(err))
			return
		}
		s.update(func(st *State) { removeQuestion(st, p.ID) })

	case EventQuestionsGenerated:
		var p struct {
			DocumentID string     `json:"documentId"`
			Questions  []Question `json:"questions"`
		}
		if err := json.Unmarshal(ev.Payload, &p); err != nil || p.DocumentID == "" {
			s.logger.Warn("bad event payload", zap.String("type", ev.Type), zap.Error(err))
			return
		}
		s.update(func(st *State) { st.DocumentQuestions[p.DocumentID] = p.Questions })

	default:
		s.logger.Debug("ignoring event", zap.String("type", ev.Type))
	}
}

func (s *Store) addWatcher(cancel context.CancelFunc) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	id := s.nextW
	s.nextW++
	s.watchers[id] = cancel
	return id, true
}

func (s *Store) removeWatcher(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, id)
}

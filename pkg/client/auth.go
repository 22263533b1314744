package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the bearer token; an empty string means logged out.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// AuthState holds the session token and stops returning it once its exp
// claim has passed. Signatures are not checked here.
type AuthState struct {
	mu    sync.RWMutex
	token string
	exp   time.Time
	now   func() time.Time
}

// NewAuthState returns an empty, logged-out AuthState.
func NewAuthState() *AuthState {
	return &AuthState{now: time.Now}
}

// SetToken stores token. A token whose claims cannot be read is still kept,
// just without expiry tracking.
func (a *AuthState) SetToken(token string) {
	var exp time.Time
	if token != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
			if e, err := claims.GetExpirationTime(); err == nil && e != nil {
				exp = e.Time
			}
		}
	}

	a.mu.Lock()
	a.token = token
	a.exp = exp
	a.mu.Unlock()
}

// Logout clears the token.
func (a *AuthState) Logout() {
	a.SetToken("")
}

func (a *AuthState) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == "" {
		return ""
	}
	if !a.exp.IsZero() && !a.now().Before(a.exp) {
		return ""
	}
	return a.token
}

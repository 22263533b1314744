package client

import "fmt"

// ErrorKind classifies failed operations.
type ErrorKind int

const (
	// AuthenticationRequired means no token was available; nothing was sent.
	AuthenticationRequired ErrorKind = iota + 1
	// RequestFailed covers transport errors and non-2xx responses.
	RequestFailed
)

func (k ErrorKind) String() string {
	switch k {
	case AuthenticationRequired:
		return "AuthenticationRequired"
	case RequestFailed:
		return "RequestFailed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the failure carried by a Result.
type Error struct {
	Kind    ErrorKind
	Message string
	// StatusCode is the HTTP status for RequestFailed responses, 0 otherwise.
	StatusCode int
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrRequestFailed)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAuthenticationRequired = &Error{Kind: AuthenticationRequired, Message: "Authentication required"}
	ErrRequestFailed          = &Error{Kind: RequestFailed, Message: "Request failed"}
)

// Result is returned by every Store operation. Exactly one of Success and
// Err is set.
type Result[T any] struct {
	Success bool
	Data    T
	// Count and Preview are only filled by GenerateQuestions.
	Count   int
	Preview []Question
	Err     *Error
}

func failure[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

package core

import (
	"errors"
	"fmt"
)

// Error is the typed error surfaced by the orchestrator and the gateway.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s: %s (session: %s)", e.Type, e.Message, e.SessionID)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error { return e.Cause }

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrSessionNotFound means the session id is unknown or expired. Terminal;
	// the client must start a new session.
	ErrSessionNotFound ErrorType = "session_not_found"

	// ErrSessionEnded means a mutation was attempted after the dialogue
	// terminated. Terminal.
	ErrSessionEnded ErrorType = "session_ended"

	// ErrResponder means the reply could not be generated. The turn fails and
	// the caller may retry with the same transcript.
	ErrResponder ErrorType = "responder_error"

	// ErrStore means both persistence backends failed on Save.
	ErrStore ErrorType = "store_error"

	// ErrInvalidRequest covers malformed client input.
	ErrInvalidRequest ErrorType = "invalid_request_error"
)

// NewSessionNotFoundError creates a session-not-found error.
func NewSessionNotFoundError(sessionID string) *Error {
	return &Error{
		Type:      ErrSessionNotFound,
		Message:   "session is unknown or has expired",
		SessionID: sessionID,
	}
}

// NewSessionEndedError creates a session-ended error.
func NewSessionEndedError(sessionID string) *Error {
	return &Error{
		Type:      ErrSessionEnded,
		Message:   "session has ended and no longer accepts turns",
		SessionID: sessionID,
	}
}

// NewResponderError wraps a reply-generation failure.
func NewResponderError(underlying error) *Error {
	return &Error{
		Type:    ErrResponder,
		Message: fmt.Sprintf("reply generation failed: %v", underlying),
		Cause:   underlying,
	}
}

// NewStoreError wraps a total persistence failure.
func NewStoreError(underlying error) *Error {
	return &Error{
		Type:    ErrStore,
		Message: fmt.Sprintf("session could not be persisted: %v", underlying),
		Cause:   underlying,
	}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// IsRetryable reports whether the caller may retry the same input.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrResponder, ErrStore:
		return true
	default:
		return false
	}
}

// AsError extracts a *Error from err, or wraps it as an internal store error.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Type: ErrStore, Message: err.Error(), Cause: err}
}

package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := &Error{
		Type:    ErrInvalidRequest,
		Message: "transcript must not be empty",
	}
	expected := "invalid_request_error: transcript must not be empty"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestErrorStringWithSession(t *testing.T) {
	err := NewSessionEndedError("s1")
	expected := "session_ended: session has ended and no longer accepts turns (session: s1)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError(cause)
	if !errors.Is(err, cause) {
		t.Errorf("wrapped cause not reachable via errors.Is")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  *Error
		want bool
	}{
		{NewResponderError(errors.New("x")), true},
		{NewStoreError(errors.New("x")), true},
		{NewSessionNotFoundError("s1"), false},
		{NewSessionEndedError("s1"), false},
		{NewInvalidRequestError("x"), false},
	}
	for _, tc := range cases {
		if got := tc.err.IsRetryable(); got != tc.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tc.err.Type, got, tc.want)
		}
	}
}

func TestAsErrorPassesThrough(t *testing.T) {
	orig := NewSessionNotFoundError("s1")
	wrapped := fmt.Errorf("loading: %w", orig)
	if got := AsError(wrapped); got != orig {
		t.Errorf("AsError did not unwrap the typed error")
	}
}

func TestAsErrorWrapsUnknown(t *testing.T) {
	got := AsError(errors.New("mystery"))
	if got.Type != ErrStore {
		t.Errorf("type = %q, want store_error", got.Type)
	}
}

package apierror

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/kulturekool/tutor-gateway/pkg/core"
)

func TestFromErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    core.ErrorType
	}{
		{"not found", core.NewSessionNotFoundError("s1"), http.StatusNotFound, core.ErrSessionNotFound},
		{"ended", core.NewSessionEndedError("s1"), http.StatusConflict, core.ErrSessionEnded},
		{"responder", core.NewResponderError(errors.New("x")), http.StatusBadGateway, core.ErrResponder},
		{"store", core.NewStoreError(errors.New("x")), http.StatusInternalServerError, core.ErrStore},
		{"invalid", core.NewInvalidRequestError("x"), http.StatusBadRequest, core.ErrInvalidRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, core.ErrResponder},
		{"canceled", context.Canceled, http.StatusRequestTimeout, core.ErrInvalidRequest},
		{"plain", errors.New("mystery"), http.StatusInternalServerError, core.ErrStore},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cerr, status := FromError(tc.err, "req_1")
			if status != tc.status {
				t.Fatalf("status = %d, want %d", status, tc.status)
			}
			if cerr.Type != tc.typ {
				t.Fatalf("type = %q, want %q", cerr.Type, tc.typ)
			}
			if cerr.RequestID != "req_1" {
				t.Fatalf("request id = %q", cerr.RequestID)
			}
		})
	}
}

func TestEnvelopeForCarriesRetryable(t *testing.T) {
	env := EnvelopeFor(core.NewResponderError(errors.New("x")))
	if !env.Error.Retryable {
		t.Fatalf("responder errors are retryable")
	}
	env = EnvelopeFor(core.NewSessionEndedError("s1"))
	if env.Error.Retryable {
		t.Fatalf("session_ended is terminal")
	}
}

// Package apierror maps internal errors to HTTP status codes and a
// uniform JSON error envelope.
package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/kulturekool/tutor-gateway/pkg/core"
)

// Envelope is the JSON body returned for every non-2xx response.
type Envelope struct {
	Error Body `json:"error"`
}

type Body struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Retryable bool   `json:"retryable"`
}

// FromError normalizes err into a core.Error and picks the HTTP
// status to send with it.
func FromError(err error, requestID string) (*core.Error, int) {
	if errors.Is(err, context.DeadlineExceeded) {
		cerr := core.NewResponderError(err)
		cerr.RequestID = requestID
		return cerr, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		cerr := core.NewInvalidRequestError("request canceled")
		cerr.RequestID = requestID
		return cerr, http.StatusRequestTimeout
	}

	cerr := core.AsError(err)
	if cerr.RequestID == "" {
		cerr.RequestID = requestID
	}
	return cerr, statusFromType(cerr.Type)
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrSessionNotFound:
		return http.StatusNotFound
	case core.ErrSessionEnded:
		return http.StatusConflict
	case core.ErrResponder:
		return http.StatusBadGateway
	case core.ErrStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// EnvelopeFor builds the wire body for a normalized error.
func EnvelopeFor(cerr *core.Error) Envelope {
	return Envelope{Error: Body{
		Type:      string(cerr.Type),
		Message:   cerr.Message,
		RequestID: cerr.RequestID,
		Retryable: cerr.IsRetryable(),
	}}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kulturekool/tutor-gateway/pkg/core"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/apierror"
)

// writeErr normalizes err and writes the JSON error envelope.
func writeErr(w http.ResponseWriter, reqID string, err error) {
	cerr, status := apierror.FromError(err, reqID)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apierror.EnvelopeFor(cerr))
}

// decodeJSONBody reads and decodes the request body, rejecting unknown fields.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) *core.Error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.NewInvalidRequestError("invalid request body: " + err.Error())
	}
	return nil
}

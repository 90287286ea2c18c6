package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kulturekool/tutor-gateway/pkg/gateway/apierror"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/mw"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(apierror.Envelope{Error: apierror.Body{
		Type:      "invalid_request_error",
		Message:   "not found",
		RequestID: reqID,
	}})
}

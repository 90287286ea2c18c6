package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kulturekool/tutor-gateway/pkg/core"
	"github.com/kulturekool/tutor-gateway/pkg/core/orchestrator"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/config"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/mw"
)

// SessionsHandler serves session lifecycle endpoints: create, fetch, and
// correction acknowledgement.
type SessionsHandler struct {
	Config config.Config
	Engine *orchestrator.Orchestrator
	Logger *slog.Logger
}

type createSessionRequest struct {
	Profile  types.Profile `json:"profile"`
	Topic    string        `json:"topic,omitempty"`
	Language string        `json:"language,omitempty"`
}

type sessionResponse struct {
	ID                 string             `json:"session_id"`
	Greeting           string             `json:"greeting,omitempty"`
	History            []types.Turn       `json:"history"`
	TurnCount          int                `json:"turn_count"`
	GoodResponseCount  int                `json:"good_response_count"`
	RewardPoints       int                `json:"reward_points"`
	PendingCorrections []types.Correction `json:"pending_corrections"`
	Topic              string             `json:"topic"`
	Language           string             `json:"language"`
	Ended              bool               `json:"ended"`
	CreatedAt          time.Time          `json:"created_at"`
}

func sessionResponseFrom(sess *types.Session, includeGreeting bool) sessionResponse {
	resp := sessionResponse{
		ID:                 sess.ID,
		History:            sess.History,
		TurnCount:          sess.TurnCount,
		GoodResponseCount:  sess.GoodResponseCount,
		RewardPoints:       sess.RewardPoints,
		PendingCorrections: sess.PendingCorrections,
		Topic:              sess.Topic,
		Language:           sess.Language,
		Ended:              sess.Ended,
		CreatedAt:          sess.CreatedAt,
	}
	if includeGreeting {
		resp.Greeting = sess.LastTutorLine()
	}
	return resp
}

// Create handles POST /v1/sessions.
func (h SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())

	var req createSessionRequest
	if cerr := decodeJSONBody(w, r, h.Config.MaxBodyBytes, &req); cerr != nil {
		writeErr(w, reqID, cerr)
		return
	}
	if strings.TrimSpace(req.Profile.Name) == "" {
		writeErr(w, reqID, core.NewInvalidRequestError("profile.name must not be empty"))
		return
	}

	sess, err := h.Engine.StartSession(r.Context(), req.Profile, req.Topic, req.Language)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(sessionResponseFrom(sess, true))
}

// Get handles GET /v1/sessions/{id}.
func (h SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())

	sess, err := h.Engine.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(sessionResponseFrom(sess, false))
}

// AckCorrections handles POST /v1/sessions/{id}/corrections/ack. The client
// calls it after showing the correction review flow; it clears the pending
// list without consuming a turn.
func (h SessionsHandler) AckCorrections(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())

	sess, err := h.Engine.AckCorrections(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(sessionResponseFrom(sess, false))
}

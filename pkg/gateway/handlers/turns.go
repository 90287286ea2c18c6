package handlers

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kulturekool/tutor-gateway/pkg/core/orchestrator"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/config"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/mw"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/sse"
)

// TurnsHandler serves POST /v1/sessions/{id}/turns as an SSE stream. Events
// arrive in the orchestrator's fixed order; the handler only serializes them.
type TurnsHandler struct {
	Config config.Config
	Engine *orchestrator.Orchestrator
	Logger *slog.Logger
}

type turnRequest struct {
	Transcript string `json:"transcript"`
}

func (h TurnsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())

	var req turnRequest
	if cerr := decodeJSONBody(w, r, h.Config.MaxBodyBytes, &req); cerr != nil {
		writeErr(w, reqID, cerr)
		return
	}

	// Validation and session checks happen before the stream commits, so
	// rejections still carry a real HTTP status.
	ts, err := h.Engine.HandleTurn(r.Context(), r.PathValue("id"), req.Transcript)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	sw, err := sse.New(w)
	if err != nil {
		writeErr(w, reqID, err)
		return
	}

	// Keepalive pings when the turn is quiet. Track last non-ping activity so
	// pings don't suppress themselves.
	var lastNonPingActivity atomic.Int64
	lastNonPingActivity.Store(time.Now().UnixNano())
	send := func(ev types.StreamEvent) error {
		if err := sw.Send(ev); err != nil {
			return err
		}
		lastNonPingActivity.Store(time.Now().UnixNano())
		return nil
	}

	if h.Config.SSEPingInterval > 0 {
		ticker := time.NewTicker(h.Config.SSEPingInterval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-r.Context().Done():
					return
				case t := <-ticker.C:
					last := time.Unix(0, lastNonPingActivity.Load())
					if t.Sub(last) < h.Config.SSEPingInterval {
						continue
					}
					_ = sw.Ping()
				}
			}
		}()
	}

	for ev := range ts.Events() {
		if err := send(ev); err != nil {
			// Client went away; the orchestrator notices via context
			// cancellation and stops on its own.
			h.Logger.Warn("sse write failed", "request_id", reqID, "error", err)
			return
		}
	}

	if _, err := ts.Result(); err != nil {
		// The terminal error event already went out with the stream; this log
		// line is for the operator.
		h.Logger.Warn("turn ended with error", "request_id", reqID, "error", err)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kulturekool/tutor-gateway/pkg/gateway/config"
	"github.com/kulturekool/tutor-gateway/pkg/store"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the gateway can actually serve turns: the
// configuration is coherent and the primary session store answers a ping.
type ReadyHandler struct {
	Config config.Config
	Store  store.Store
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK     bool     `json:"ok"`
		Store  string   `json:"store"`
		Issues []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	if h.Config.MaxTurns < 2 {
		issues = append(issues, "max_turns must be >= 2")
	}
	if h.Config.WarmupTurns < 1 || h.Config.WarmupTurns >= h.Config.MaxTurns {
		issues = append(issues, "warmup_turns must be >= 1 and < max_turns")
	}
	if h.Config.MaxBodyBytes <= 0 {
		issues = append(issues, "max_body_bytes must be > 0")
	}
	if h.Config.SSEPingInterval <= 0 {
		issues = append(issues, "sse ping interval must be > 0")
	}
	if h.Config.GeminiAPIKey == "" {
		issues = append(issues, "gemini api key is not configured")
	}

	storeState := "ok"
	if h.Store == nil {
		storeState = "absent"
		issues = append(issues, "session store is not configured")
	} else if err := h.Store.Ping(r.Context()); err != nil {
		// A degraded primary is reported but does not fail readiness: the
		// tiered store falls back to its secondary.
		storeState = "degraded"
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:     ok,
		Store:  storeState,
		Issues: issues,
	})
}

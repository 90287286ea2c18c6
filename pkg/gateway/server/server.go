// Package server wires configuration, collaborators, and handlers into a
// single http.Handler.
package server

import (
	"log/slog"
	"net/http"

	"github.com/kulturekool/tutor-gateway/pkg/core/orchestrator"
	"github.com/kulturekool/tutor-gateway/pkg/core/voice/stt"
	"github.com/kulturekool/tutor-gateway/pkg/core/voice/tts"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/config"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/handlers"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/mw"
	"github.com/kulturekool/tutor-gateway/pkg/store"
)

// Deps carries the collaborators the server does not construct itself. STT
// and TTS may be nil; the corresponding endpoints then reject requests.
type Deps struct {
	Engine *orchestrator.Orchestrator
	Store  store.Store
	STT    stt.Provider
	TTS    tts.Provider
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
	deps   Deps
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		deps:   deps,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})
	s.mux.Handle("GET /readyz", handlers.ReadyHandler{Config: s.cfg, Store: s.deps.Store})

	sessions := handlers.SessionsHandler{Config: s.cfg, Engine: s.deps.Engine, Logger: s.logger}
	s.mux.HandleFunc("POST /v1/sessions", sessions.Create)
	s.mux.HandleFunc("GET /v1/sessions/{id}", sessions.Get)
	s.mux.HandleFunc("POST /v1/sessions/{id}/corrections/ack", sessions.AckCorrections)

	s.mux.Handle("POST /v1/sessions/{id}/turns", handlers.TurnsHandler{
		Config: s.cfg,
		Engine: s.deps.Engine,
		Logger: s.logger,
	})

	s.mux.Handle("POST /v1/transcribe", handlers.TranscribeHandler{
		Config: s.cfg,
		STT:    s.deps.STT,
		Logger: s.logger,
	})
	s.mux.Handle("POST /v1/speak", handlers.SpeakHandler{
		Config: s.cfg,
		TTS:    s.deps.TTS,
		Logger: s.logger,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kulturekool/tutor-gateway/pkg/core/llm/gemini"
	"github.com/kulturekool/tutor-gateway/pkg/core/orchestrator"
	"github.com/kulturekool/tutor-gateway/pkg/core/rewards"
	"github.com/kulturekool/tutor-gateway/pkg/core/voice/stt"
	"github.com/kulturekool/tutor-gateway/pkg/core/voice/tts"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/config"
	gatewayserver "github.com/kulturekool/tutor-gateway/pkg/gateway/server"
	"github.com/kulturekool/tutor-gateway/pkg/store"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	buildServer  func(context.Context, config.Config, *slog.Logger) (*gatewayserver.Server, func(), error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig:  config.LoadFromEnv,
		buildServer: buildServer,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

// buildStore assembles the tiered session store: Redis primary when
// configured, the file store as the always-available secondary. Without a
// Redis URL the in-memory store takes the primary role, which suits local
// development.
func buildStore(cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	secondary := store.NewFile(cfg.SessionFilePath, cfg.SessionTTL)

	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL is not set, using in-memory primary store")
		primary := store.NewMemory(cfg.SessionTTL)
		return store.NewTiered(primary, secondary, logger), func() {}, nil
	}

	primary, err := store.NewRedis(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis store: %w", err)
	}
	closeFn := func() { _ = primary.Close() }
	return store.NewTiered(primary, secondary, logger), closeFn, nil
}

func buildServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*gatewayserver.Server, func(), error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil, errors.New("GEMINI_API_KEY must be set")
	}

	llm, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini client: %w", err)
	}

	st, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	engine := orchestrator.New(st, llm, llm, llm, orchestrator.Config{
		MaxTurns:          cfg.MaxTurns,
		WarmupTurns:       cfg.WarmupTurns,
		FarewellPhrases:   cfg.FarewellPhrases,
		EvaluatorTimeout:  cfg.EvaluatorTimeout,
		ResponderTimeout:  cfg.ResponderTimeout,
		EnrichmentTimeout: cfg.EnrichmentTimeout,
		Rewards: rewards.Config{
			BasePoints:               cfg.RewardBasePoints,
			MilestoneInterval:        cfg.MilestoneInterval,
			MilestoneBonus:           cfg.MilestoneBonus,
			CorrectionReviewInterval: cfg.CorrectionReviewInterval,
		},
	}, logger)

	deps := gatewayserver.Deps{Engine: engine, Store: st}
	if cfg.SarvamAPIKey != "" {
		deps.STT = stt.NewSarvam(cfg.SarvamAPIKey)
	} else {
		logger.Warn("SARVAM_API_KEY is not set, /v1/transcribe is disabled")
	}
	if cfg.ElevenLabsAPIKey != "" {
		deps.TTS = tts.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID)
	} else {
		logger.Warn("ELEVENLABS_API_KEY is not set, /v1/speak is disabled")
	}

	return gatewayserver.New(cfg, deps, logger), closeStore, nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runGateway(ctx context.Context, logger *slog.Logger, deps gatewayDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.buildServer == nil {
		return errors.New("missing buildServer dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, closeFn, err := deps.buildServer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	defer closeFn()

	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway", "addr", cfg.Addr, "max_turns", cfg.MaxTurns)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(stderr, nil))

	// Missing .env is fine; real deployments configure the environment
	// directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(stderr, "tutor-gateway: %v\n", err)
		return 1
	}

	if err := runGateway(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "tutor-gateway: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}

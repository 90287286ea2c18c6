// Package config loads the gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Dialogue shape.
	MaxTurns        int
	WarmupTurns     int
	FarewellPhrases []string // empty => built-in defaults

	// Reward tuning.
	RewardBasePoints         int
	MilestoneInterval        int
	MilestoneBonus           int
	CorrectionReviewInterval int

	// Per-call upper bounds for external collaborators.
	EvaluatorTimeout  time.Duration
	ResponderTimeout  time.Duration
	EnrichmentTimeout time.Duration

	// Session store. RedisURL empty => in-memory primary (development).
	RedisURL        string
	SessionFilePath string
	SessionTTL      time.Duration

	// Collaborator credentials.
	GeminiAPIKey      string
	GeminiModel       string
	SarvamAPIKey      string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// CORS.
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// HTTP operational defaults.
	MaxBodyBytes        int64
	SSEPingInterval     time.Duration
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                     envOr("TUTOR_ADDR", ":8080"),
		MaxTurns:                 envIntOr("TUTOR_MAX_TURNS", 8),
		WarmupTurns:              envIntOr("TUTOR_WARMUP_TURNS", 2),
		FarewellPhrases:          splitCSV(os.Getenv("TUTOR_FAREWELL_PHRASES")),
		RewardBasePoints:         envIntOr("TUTOR_REWARD_BASE_POINTS", 10),
		MilestoneInterval:        envIntOr("TUTOR_MILESTONE_INTERVAL", 3),
		MilestoneBonus:           envIntOr("TUTOR_MILESTONE_BONUS", 25),
		CorrectionReviewInterval: envIntOr("TUTOR_CORRECTION_REVIEW_INTERVAL", 4),
		EvaluatorTimeout:         envDurationOr("TUTOR_EVALUATOR_TIMEOUT", 8*time.Second),
		ResponderTimeout:         envDurationOr("TUTOR_RESPONDER_TIMEOUT", 30*time.Second),
		EnrichmentTimeout:        envDurationOr("TUTOR_ENRICHMENT_TIMEOUT", 10*time.Second),
		RedisURL:                 strings.TrimSpace(os.Getenv("REDIS_URL")),
		SessionFilePath:          envOr("TUTOR_SESSION_FILE", "sessions.json"),
		SessionTTL:               envDurationOr("TUTOR_SESSION_TTL", 24*time.Hour),
		GeminiAPIKey:             strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:              envOr("TUTOR_GEMINI_MODEL", ""),
		SarvamAPIKey:             strings.TrimSpace(os.Getenv("SARVAM_API_KEY")),
		ElevenLabsAPIKey:         strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		ElevenLabsVoiceID:        envOr("TUTOR_ELEVENLABS_VOICE_ID", "cgSgspJ2msm6clMCkdW9"),
		CORSAllowedOrigins:       make(map[string]struct{}),
		MaxBodyBytes:             envInt64Or("TUTOR_MAX_BODY_BYTES", 8<<20), // 8 MiB
		SSEPingInterval:          envDurationOr("TUTOR_SSE_PING_INTERVAL", 15*time.Second),
		ReadHeaderTimeout:        envDurationOr("TUTOR_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:              envDurationOr("TUTOR_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod:      envDurationOr("TUTOR_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("TUTOR_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.MaxTurns < 2 {
		return Config{}, fmt.Errorf("TUTOR_MAX_TURNS must be >= 2")
	}
	if cfg.WarmupTurns < 1 || cfg.WarmupTurns >= cfg.MaxTurns {
		return Config{}, fmt.Errorf("TUTOR_WARMUP_TURNS must be >= 1 and < TUTOR_MAX_TURNS")
	}
	if cfg.RewardBasePoints <= 0 {
		return Config{}, fmt.Errorf("TUTOR_REWARD_BASE_POINTS must be > 0")
	}
	if cfg.MilestoneInterval <= 0 {
		return Config{}, fmt.Errorf("TUTOR_MILESTONE_INTERVAL must be > 0")
	}
	if cfg.MilestoneBonus <= 0 {
		return Config{}, fmt.Errorf("TUTOR_MILESTONE_BONUS must be > 0")
	}
	if cfg.CorrectionReviewInterval <= 0 {
		return Config{}, fmt.Errorf("TUTOR_CORRECTION_REVIEW_INTERVAL must be > 0")
	}
	if cfg.EvaluatorTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_EVALUATOR_TIMEOUT must be > 0")
	}
	if cfg.ResponderTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_RESPONDER_TIMEOUT must be > 0")
	}
	if cfg.EnrichmentTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_ENRICHMENT_TIMEOUT must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("TUTOR_SESSION_TTL must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("TUTOR_MAX_BODY_BYTES must be > 0")
	}
	if cfg.SSEPingInterval <= 0 {
		return Config{}, fmt.Errorf("TUTOR_SSE_PING_INTERVAL must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("TUTOR_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("TUTOR_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

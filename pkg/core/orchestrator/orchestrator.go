// Package orchestrator coordinates one side of the tutoring dialogue: it
// loads session state, advances the turn state machine, fans out evaluation
// and reply generation, streams partial results in a fixed order, applies
// reward rules, and persists the updated session.
package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kulturekool/tutor-gateway/pkg/core"
	"github.com/kulturekool/tutor-gateway/pkg/core/dialogue"
	"github.com/kulturekool/tutor-gateway/pkg/core/enrich"
	"github.com/kulturekool/tutor-gateway/pkg/core/evaluate"
	"github.com/kulturekool/tutor-gateway/pkg/core/respond"
	"github.com/kulturekool/tutor-gateway/pkg/core/rewards"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
	"github.com/kulturekool/tutor-gateway/pkg/store"
)

// FunctionCallReviewCorrections instructs the client to open the correction
// review flow.
const FunctionCallReviewCorrections = "review_corrections"

// Config tunes the orchestrator.
type Config struct {
	MaxTurns        int
	WarmupTurns     int
	FarewellPhrases []string

	// Every external call carries its own timeout; no turn may block
	// indefinitely. A responder timeout fails the turn, the others degrade.
	EvaluatorTimeout  time.Duration
	ResponderTimeout  time.Duration
	EnrichmentTimeout time.Duration

	Rewards rewards.Config

	// EventBuffer bounds the per-turn event channel.
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 8
	}
	if c.WarmupTurns <= 0 {
		c.WarmupTurns = 2
	}
	if c.EvaluatorTimeout <= 0 {
		c.EvaluatorTimeout = 8 * time.Second
	}
	if c.ResponderTimeout <= 0 {
		c.ResponderTimeout = 30 * time.Second
	}
	if c.EnrichmentTimeout <= 0 {
		c.EnrichmentTimeout = 10 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 32
	}
	return c
}

// Orchestrator is the per-request turn coordinator. It holds no per-session
// locks: concurrent HandleTurn calls on the same session are the caller's
// responsibility to prevent.
type Orchestrator struct {
	cfg       Config
	store     store.Store
	responder respond.Responder
	evaluator evaluate.Evaluator
	enricher  enrich.Enricher
	farewells *dialogue.FarewellDetector
	rewards   *rewards.Calculator
	logger    *slog.Logger
}

// New constructs an orchestrator. The store instance is injected; its
// lifecycle is owned by the caller. enricher may be nil, which disables
// post-hoc enrichment events.
func New(st store.Store, responder respond.Responder, evaluator evaluate.Evaluator, enricher enrich.Enricher, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Orchestrator{
		cfg:       cfg,
		store:     st,
		responder: responder,
		evaluator: evaluator,
		enricher:  enricher,
		farewells: dialogue.NewFarewellDetector(cfg.FarewellPhrases),
		rewards:   rewards.NewCalculator(cfg.Rewards),
		logger:    logger,
	}
}

// StartSession creates a session with an empty history plus the synthesized
// opening tutor greeting, and persists it.
func (o *Orchestrator) StartSession(ctx context.Context, profile types.Profile, topic, language string) (*types.Session, error) {
	greeting, err := o.responder.Open(ctx, respond.OpenRequest{
		Profile:  profile,
		Topic:    topic,
		Language: language,
	})
	if err != nil || strings.TrimSpace(greeting) == "" {
		if err != nil {
			o.logger.Warn("opening greeting generation failed, using fallback", "error", err)
		}
		greeting = fallbackGreeting(language)
	}

	sess := &types.Session{
		ID:        ulid.Make().String(),
		History:   []types.Turn{{Role: types.RoleTutor, Text: greeting}},
		Profile:   profile,
		Topic:     topic,
		Language:  language,
		CreatedAt: time.Now().UTC(),
	}
	sess.Normalize()

	if err := o.store.Save(ctx, sess); err != nil {
		return nil, core.AsError(err)
	}
	return sess, nil
}

// GetSession returns a snapshot of the session.
func (o *Orchestrator) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	return o.loadSession(ctx, sessionID)
}

// AckCorrections clears pending corrections after the client has shown the
// review flow. Permitted on ended sessions; it does not count as a turn.
func (o *Orchestrator) AckCorrections(ctx context.Context, sessionID string) (*types.Session, error) {
	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.PendingCorrections = []types.Correction{}
	if err := o.store.Save(ctx, sess); err != nil {
		return nil, core.AsError(err)
	}
	return sess, nil
}

// HandleTurn processes one child utterance. The transcript must be non-empty
// text already produced by the caller's speech-to-text step.
//
// The turn count is incremented and persisted before any concurrent work is
// dispatched, so a crash mid-turn never replays a turn count. It is not
// rolled back on failure: a retry after a responder error leaves a gap
// between turn_count and history length, which is accepted and documented
// rather than hidden.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, transcript string) (*TurnStream, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, core.NewInvalidRequestError("transcript must not be empty")
	}

	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Ended {
		return nil, core.NewSessionEndedError(sessionID)
	}

	sess.TurnCount++
	if err := o.store.Save(ctx, sess); err != nil {
		return nil, core.AsError(err)
	}

	// Farewell detection runs before dispatch: it changes the instructions
	// given to the responder.
	farewell := o.farewells.Detect(transcript)
	decision := dialogue.Decide(sess.TurnCount, o.cfg.MaxTurns, o.cfg.WarmupTurns, farewell)

	ts := newTurnStream(o.cfg.EventBuffer)
	go o.runTurn(ctx, ts, sess, transcript, decision)
	return ts, nil
}

func (o *Orchestrator) loadSession(ctx context.Context, sessionID string) (*types.Session, error) {
	sess, err := o.store.Load(ctx, sessionID)
	if err != nil {
		// A load failure is indistinguishable from an expired session.
		if !errors.Is(err, store.ErrNotFound) {
			o.logger.Warn("session load failed", "session_id", sessionID, "error", err)
		}
		return nil, core.NewSessionNotFoundError(sessionID)
	}
	return sess, nil
}

func (o *Orchestrator) runTurn(ctx context.Context, ts *TurnStream, sess *types.Session, transcript string, decision dialogue.Decision) {
	if !o.send(ctx, ts, types.TranscriptEvent{Type: "transcript", Text: transcript}) {
		ts.finish(nil, ctx.Err())
		return
	}

	// Evaluator and responder run concurrently; perceived latency is bounded
	// by the slower of the two, not their sum. The evaluator goroutine always
	// delivers a result within its timeout, substituting the neutral default
	// verdict on failure.
	evalCh := make(chan *types.EvaluationResult, 1)
	go func() {
		ectx, cancel := context.WithTimeout(ctx, o.cfg.EvaluatorTimeout)
		defer cancel()
		res, err := o.evaluator.Evaluate(ectx, evaluate.Request{
			Utterance:          transcript,
			PrecedingTutorLine: sess.LastTutorLine(),
			Language:           sess.Language,
		})
		if err != nil || res == nil {
			if err != nil {
				o.logger.Warn("evaluator failed, substituting default verdict", "session_id", sess.ID, "error", err)
			}
			res = evaluate.DefaultResult()
		}
		evalCh <- res
	}()

	rctx, rcancel := context.WithTimeout(ctx, o.cfg.ResponderTimeout)
	defer rcancel()
	stream, err := o.responder.Respond(rctx, respond.Request{
		History:   sess.History,
		Utterance: transcript,
		TurnCount: sess.TurnCount,
		MaxTurns:  o.cfg.MaxTurns,
		Phase:     decision.Phase,
		ShouldEnd: decision.ShouldEnd,
		Profile:   sess.Profile,
		Topic:     sess.Topic,
		Language:  sess.Language,
	})
	if err != nil {
		o.failTurn(ctx, ts, sess.ID, core.NewResponderError(err))
		return
	}
	defer func() { _ = stream.Close() }()

	// The evaluation event precedes any words event; the evaluator timeout
	// bounds this wait, so reply streaming is delayed by at most that much.
	evalRes := <-evalCh
	var correction *types.Correction
	if evalRes.Verdict == types.VerdictAmber {
		correction = &types.Correction{
			Original:  transcript,
			Corrected: evalRes.CorrectedText,
			Issues:    evalRes.Issues,
		}
	}
	evalEvent := types.EvaluationEvent{Type: "evaluation", Verdict: evalRes.Verdict}
	if correction != nil {
		evalEvent.Corrections = []types.Correction{*correction}
	}
	if !o.send(ctx, ts, evalEvent) {
		ts.finish(nil, ctx.Err())
		return
	}

	var buf wordBuffer
	for {
		chunk, err := stream.Next()
		if chunk.Text != "" {
			for _, c := range buf.add(chunk.Text) {
				if !o.send(ctx, ts, types.WordsEvent{Type: "words", Chunk: c, Accumulated: buf.total()}) {
					ts.finish(nil, ctx.Err())
					return
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			o.failTurn(ctx, ts, sess.ID, core.NewResponderError(err))
			return
		}
	}
	if rest, ok := buf.flush(); ok {
		if !o.send(ctx, ts, types.WordsEvent{Type: "words", Chunk: rest, Accumulated: buf.total()}) {
			ts.finish(nil, ctx.Err())
			return
		}
	}

	finalText := buf.total()
	if finalText == "" {
		o.failTurn(ctx, ts, sess.ID, core.NewResponderError(errors.New("responder produced an empty reply")))
		return
	}

	outcome := stream.Final()
	shouldEnd := decision.ShouldEnd || outcome.EndSuggested

	if evalRes.Verdict == types.VerdictGreen {
		sess.GoodResponseCount++
	} else if correction != nil {
		sess.PendingCorrections = append(sess.PendingCorrections, *correction)
	}
	award := o.rewards.Points(evalRes.Verdict, sess.GoodResponseCount)
	sess.RewardPoints += award.Points

	functionCall := ""
	if o.rewards.ShouldPromptReview(sess.TurnCount, len(sess.PendingCorrections), shouldEnd) {
		functionCall = FunctionCallReviewCorrections
	}

	sess.AppendExchange(transcript, finalText)
	if shouldEnd {
		sess.Ended = true
	}

	if err := o.store.Save(ctx, sess); err != nil {
		o.failTurn(ctx, ts, sess.ID, core.AsError(err))
		return
	}

	complete := types.CompleteEvent{
		Type:              "complete",
		FinalText:         finalText,
		Verdict:           evalRes.Verdict,
		ShouldEnd:         shouldEnd,
		TurnCount:         sess.TurnCount,
		GoodResponseCount: sess.GoodResponseCount,
		RewardPoints:      sess.RewardPoints,
		PointsAwarded:     award.Points,
		Milestone:         award.Milestone,
		FunctionCall:      functionCall,
	}
	if !o.send(ctx, ts, complete) {
		ts.finish(nil, ctx.Err())
		return
	}

	o.runEnrichment(ctx, ts, finalText, sess)

	ts.finish(&TurnResult{
		FinalText:         finalText,
		Verdict:           evalRes.Verdict,
		ShouldEnd:         shouldEnd,
		TurnCount:         sess.TurnCount,
		GoodResponseCount: sess.GoodResponseCount,
		RewardPoints:      sess.RewardPoints,
		PointsAwarded:     award.Points,
		Milestone:         award.Milestone,
		FunctionCall:      functionCall,
	}, nil)
}

// runEnrichment dispatches the post-complete enrichment tasks. They are
// supervised and time-bounded; failures are logged and simply omit the event.
func (o *Orchestrator) runEnrichment(ctx context.Context, ts *TurnStream, finalText string, sess *types.Session) {
	if o.enricher == nil {
		return
	}
	ectx, cancel := context.WithTimeout(ctx, o.cfg.EnrichmentTimeout)
	defer cancel()

	g := new(errgroup.Group)
	g.Go(func() error {
		text, err := o.enricher.Transliterate(ectx, finalText)
		if err != nil {
			o.logger.Warn("transliteration enrichment failed", "session_id", sess.ID, "error", err)
			return nil
		}
		if strings.TrimSpace(text) != "" {
			o.send(ctx, ts, types.TransliterationEvent{Type: "transliteration", Text: text})
		}
		return nil
	})
	g.Go(func() error {
		hints, err := o.enricher.Hints(ectx, sess.History, sess.Language)
		if err != nil {
			o.logger.Warn("hints enrichment failed", "session_id", sess.ID, "error", err)
			return nil
		}
		if len(hints) > 0 {
			o.send(ctx, ts, types.HintsEvent{Type: "hints", Hints: hints})
		}
		return nil
	})
	_ = g.Wait()
}

func (o *Orchestrator) failTurn(ctx context.Context, ts *TurnStream, sessionID string, cerr *core.Error) {
	o.logger.Error("turn failed", "session_id", sessionID, "error_type", cerr.Type, "error", cerr)
	o.send(ctx, ts, types.ErrorEvent{
		Type:      "error",
		ErrorType: string(cerr.Type),
		Message:   cerr.Message,
		Retryable: cerr.IsRetryable(),
	})
	ts.finish(nil, cerr)
}

func (o *Orchestrator) send(ctx context.Context, ts *TurnStream, ev types.StreamEvent) bool {
	select {
	case ts.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func fallbackGreeting(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "en") {
		return "Hello! How is your day going?"
	}
	return "नमस्ते! कैसा है आपका दिन?"
}

package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kulturekool/tutor-gateway/pkg/core"
	"github.com/kulturekool/tutor-gateway/pkg/core/dialogue"
	"github.com/kulturekool/tutor-gateway/pkg/core/enrich"
	"github.com/kulturekool/tutor-gateway/pkg/core/evaluate"
	"github.com/kulturekool/tutor-gateway/pkg/core/respond"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
	"github.com/kulturekool/tutor-gateway/pkg/store"
)

type fakeReplyStream struct {
	chunks  []string
	pos     int
	outcome respond.Outcome
	err     error
}

func (s *fakeReplyStream) Next() (respond.Chunk, error) {
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return respond.Chunk{Text: c}, nil
	}
	if s.err != nil {
		return respond.Chunk{}, s.err
	}
	return respond.Chunk{}, io.EOF
}

func (s *fakeReplyStream) Final() respond.Outcome { return s.outcome }
func (s *fakeReplyStream) Close() error           { return nil }

type fakeResponder struct {
	greeting     string
	openErr      error
	chunks       []string
	endSuggested bool
	respondErr   error
	streamErr    error
	lastRequest  respond.Request
}

func (f *fakeResponder) Open(ctx context.Context, req respond.OpenRequest) (string, error) {
	return f.greeting, f.openErr
}

func (f *fakeResponder) Respond(ctx context.Context, req respond.Request) (respond.ReplyStream, error) {
	f.lastRequest = req
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	return &fakeReplyStream{
		chunks:  f.chunks,
		outcome: respond.Outcome{EndSuggested: f.endSuggested},
		err:     f.streamErr,
	}, nil
}

type fakeEvaluator struct {
	result *types.EvaluationResult
	err    error
	delay  time.Duration
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req evaluate.Request) (*types.EvaluationResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

type fakeEnricher struct {
	translit string
	hints    []string
}

func (f *fakeEnricher) Transliterate(ctx context.Context, text string) (string, error) {
	return f.translit, nil
}

func (f *fakeEnricher) Hints(ctx context.Context, history []types.Turn, language string) ([]string, error) {
	return f.hints, nil
}

func greenResult() *types.EvaluationResult {
	return &types.EvaluationResult{
		Verdict:                types.VerdictGreen,
		Score:                  1,
		IsComplete:             true,
		IsGrammaticallyCorrect: true,
	}
}

func amberResult() *types.EvaluationResult {
	return &types.EvaluationResult{
		Verdict:       types.VerdictAmber,
		Score:         0.4,
		IsComplete:    false,
		CorrectedText: "मैं स्कूल गया",
		Issues:        []string{"verb agreement"},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(t *testing.T, st store.Store, r respond.Responder, e evaluate.Evaluator, en enrich.Enricher, cfg Config) *Orchestrator {
	t.Helper()
	return New(st, r, e, en, cfg, testLogger())
}

func mustStart(t *testing.T, o *Orchestrator) *types.Session {
	t.Helper()
	sess, err := o.StartSession(context.Background(), types.Profile{Name: "Asha", Age: 6}, "everyday", "hi")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return sess
}

func collectEvents(t *testing.T, ts *TurnStream) []types.StreamEvent {
	t.Helper()
	var events []types.StreamEvent
	for ev := range ts.Events() {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []types.StreamEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.EventType()
	}
	return out
}

func TestStartSessionPersistsGreeting(t *testing.T) {
	mem := store.NewMemory(0)
	o := newTestOrchestrator(t, mem, &fakeResponder{greeting: "नमस्ते आशा!"}, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	if sess.ID == "" {
		t.Fatalf("session id is empty")
	}
	if sess.TurnCount != 0 {
		t.Fatalf("turn count = %d, want 0", sess.TurnCount)
	}
	if got := sess.LastTutorLine(); got != "नमस्ते आशा!" {
		t.Fatalf("greeting = %q", got)
	}

	loaded, err := o.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.LastTutorLine() != sess.LastTutorLine() {
		t.Fatalf("greeting not persisted")
	}
}

func TestStartSessionFallbackGreeting(t *testing.T) {
	mem := store.NewMemory(0)
	o := newTestOrchestrator(t, mem, &fakeResponder{openErr: errors.New("model down")}, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	if sess.LastTutorLine() == "" {
		t.Fatalf("expected fallback greeting, got empty tutor line")
	}
}

func TestHandleTurnEventOrder(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"आज का दिन ", "कैसा था?"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, &fakeEnricher{translit: "aaj ka din kaisa tha?", hints: []string{"अच्छा था"}}, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "मैं ठीक हूँ")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	events := collectEvents(t, ts)
	kinds := eventTypes(events)

	// Fixed prefix: transcript, evaluation, words*, complete. Enrichment
	// events follow complete in any order.
	if len(kinds) < 4 {
		t.Fatalf("too few events: %v", kinds)
	}
	if kinds[0] != "transcript" || kinds[1] != "evaluation" {
		t.Fatalf("prefix = %v", kinds[:2])
	}
	completeAt := -1
	for i, k := range kinds {
		switch k {
		case "words":
			if completeAt >= 0 {
				t.Fatalf("words after complete: %v", kinds)
			}
		case "complete":
			if completeAt >= 0 {
				t.Fatalf("two complete events: %v", kinds)
			}
			completeAt = i
		case "transliteration", "hints":
			if completeAt < 0 {
				t.Fatalf("enrichment before complete: %v", kinds)
			}
		}
	}
	if completeAt < 0 {
		t.Fatalf("no complete event: %v", kinds)
	}

	result, err := ts.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.FinalText != "आज का दिन कैसा था?" {
		t.Fatalf("final text = %q", result.FinalText)
	}
	if result.TurnCount != 1 {
		t.Fatalf("turn count = %d, want 1", result.TurnCount)
	}
}

func TestHandleTurnPersistsHistory(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"बहुत बढ़िया!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "मैं ठीक हूँ")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	collectEvents(t, ts)
	if _, err := ts.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}

	loaded, err := o.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	// greeting + child utterance + tutor reply
	if len(loaded.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(loaded.History))
	}
	if loaded.History[1].Role != types.RoleChild || loaded.History[2].Role != types.RoleTutor {
		t.Fatalf("history roles wrong: %+v", loaded.History)
	}
	if loaded.TurnCount != 1 || loaded.GoodResponseCount != 1 {
		t.Fatalf("counters = %d/%d", loaded.TurnCount, loaded.GoodResponseCount)
	}
	if loaded.RewardPoints != 10 {
		t.Fatalf("reward points = %d, want 10", loaded.RewardPoints)
	}
}

func TestHandleTurnAmberRecordsCorrection(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"कोई बात नहीं!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: amberResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "मैं स्कूल गई")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	events := collectEvents(t, ts)
	if _, err := ts.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}

	var evalEv *types.EvaluationEvent
	for _, ev := range events {
		if e, ok := ev.(types.EvaluationEvent); ok {
			evalEv = &e
		}
	}
	if evalEv == nil {
		t.Fatalf("no evaluation event")
	}
	if evalEv.Verdict != types.VerdictAmber || len(evalEv.Corrections) != 1 {
		t.Fatalf("evaluation event = %+v", evalEv)
	}

	loaded, _ := o.GetSession(context.Background(), sess.ID)
	if len(loaded.PendingCorrections) != 1 {
		t.Fatalf("pending corrections = %d, want 1", len(loaded.PendingCorrections))
	}
	if loaded.GoodResponseCount != 0 {
		t.Fatalf("amber must not bump good_response_count")
	}
	if loaded.RewardPoints != 0 {
		t.Fatalf("amber must not award points")
	}
}

func TestHandleTurnEvaluatorTimeoutDefaultsGreen(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"अच्छा!"}}
	eval := &fakeEvaluator{result: amberResult(), delay: time.Second}
	o := newTestOrchestrator(t, mem, resp, eval, nil, Config{EvaluatorTimeout: 10 * time.Millisecond})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	events := collectEvents(t, ts)
	result, err := ts.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Verdict != types.VerdictGreen {
		t.Fatalf("verdict = %q, want green default", result.Verdict)
	}
	for _, ev := range events {
		if e, ok := ev.(types.EvaluationEvent); ok && len(e.Corrections) != 0 {
			t.Fatalf("timed-out evaluator leaked corrections: %+v", e)
		}
	}
}

func TestHandleTurnEvaluatorErrorDefaultsGreen(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"ठीक है!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{err: errors.New("boom")}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	collectEvents(t, ts)
	result, err := ts.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Verdict != types.VerdictGreen {
		t.Fatalf("verdict = %q, want green default", result.Verdict)
	}
}

func TestHandleTurnResponderFailureKeepsTurnCount(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", respondErr: errors.New("model down")}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	events := collectEvents(t, ts)
	if _, err := ts.Result(); err == nil {
		t.Fatalf("expected turn error")
	}

	last := events[len(events)-1]
	errEv, ok := last.(types.ErrorEvent)
	if !ok {
		t.Fatalf("last event = %T, want error event", last)
	}
	if errEv.ErrorType != string(core.ErrResponder) || !errEv.Retryable {
		t.Fatalf("error event = %+v", errEv)
	}

	// The increment is not rolled back; history is unchanged.
	loaded, _ := o.GetSession(context.Background(), sess.ID)
	if loaded.TurnCount != 1 {
		t.Fatalf("turn count = %d, want 1", loaded.TurnCount)
	}
	if len(loaded.History) != 1 {
		t.Fatalf("history length = %d, want 1 (greeting only)", len(loaded.History))
	}
}

func TestHandleTurnEmptyReplyFailsTurn(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: nil}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	collectEvents(t, ts)
	if _, err := ts.Result(); err == nil {
		t.Fatalf("empty reply must fail the turn")
	}
}

func TestHandleTurnEmptyTranscript(t *testing.T) {
	mem := store.NewMemory(0)
	o := newTestOrchestrator(t, mem, &fakeResponder{greeting: "नमस्ते!"}, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	if _, err := o.HandleTurn(context.Background(), sess.ID, "   "); err == nil {
		t.Fatalf("blank transcript must be rejected")
	}

	loaded, _ := o.GetSession(context.Background(), sess.ID)
	if loaded.TurnCount != 0 {
		t.Fatalf("rejected turn must not consume turn count")
	}
}

func TestHandleTurnUnknownSession(t *testing.T) {
	mem := store.NewMemory(0)
	o := newTestOrchestrator(t, mem, &fakeResponder{}, &fakeEvaluator{result: greenResult()}, nil, Config{})

	_, err := o.HandleTurn(context.Background(), "missing", "कुछ भी")
	cerr := core.AsError(err)
	if cerr.Type != core.ErrSessionNotFound {
		t.Fatalf("error type = %q, want session_not_found", cerr.Type)
	}
}

func TestHandleTurnLoadFailureMapsToNotFound(t *testing.T) {
	mem := store.NewMemory(0)
	o := newTestOrchestrator(t, mem, &fakeResponder{greeting: "नमस्ते!"}, &fakeEvaluator{result: greenResult()}, nil, Config{})
	sess := mustStart(t, o)

	mem.FailLoad = errors.New("backend down")
	_, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	cerr := core.AsError(err)
	if cerr.Type != core.ErrSessionNotFound {
		t.Fatalf("error type = %q, want session_not_found", cerr.Type)
	}
}

func TestFarewellEndsSession(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"अलविदा! फिर मिलेंगे!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "bye bye")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	collectEvents(t, ts)
	result, err := ts.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !result.ShouldEnd {
		t.Fatalf("farewell turn must signal should_end")
	}
	if resp.lastRequest.Phase != dialogue.PhaseFinal || !resp.lastRequest.ShouldEnd {
		t.Fatalf("responder request = phase %q shouldEnd %v", resp.lastRequest.Phase, resp.lastRequest.ShouldEnd)
	}

	loaded, _ := o.GetSession(context.Background(), sess.ID)
	if !loaded.Ended {
		t.Fatalf("session must be marked ended")
	}

	if _, err := o.HandleTurn(context.Background(), sess.ID, "और बात करो"); err == nil {
		t.Fatalf("ended session must reject further turns")
	} else if core.AsError(err).Type != core.ErrSessionEnded {
		t.Fatalf("error type = %q, want session_ended", core.AsError(err).Type)
	}
}

func TestMaxTurnsEndsSession(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"ठीक है!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{MaxTurns: 3, WarmupTurns: 1})

	sess := mustStart(t, o)
	var lastResult *TurnResult
	for i := 0; i < 3; i++ {
		ts, err := o.HandleTurn(context.Background(), sess.ID, "कुछ और")
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
		collectEvents(t, ts)
		lastResult, err = ts.Result()
		if err != nil {
			t.Fatalf("turn %d result: %v", i+1, err)
		}
	}
	if !lastResult.ShouldEnd {
		t.Fatalf("turn at max_turns must end the session")
	}
	if lastResult.TurnCount != 3 {
		t.Fatalf("turn count = %d, want 3", lastResult.TurnCount)
	}
}

func TestResponderEndSuggestedEndsSession(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"अलविदा!"}, endSuggested: true}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	collectEvents(t, ts)
	result, err := ts.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !result.ShouldEnd {
		t.Fatalf("responder end suggestion must end the session")
	}
}

func TestMilestoneAward(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"शाबाश!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	var result *TurnResult
	for i := 0; i < 3; i++ {
		ts, err := o.HandleTurn(context.Background(), sess.ID, "अच्छा जवाब")
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
		collectEvents(t, ts)
		result, err = ts.Result()
		if err != nil {
			t.Fatalf("turn %d result: %v", i+1, err)
		}
	}
	if !result.Milestone {
		t.Fatalf("third green turn must be a milestone")
	}
	if result.PointsAwarded != 35 {
		t.Fatalf("points awarded = %d, want 35", result.PointsAwarded)
	}
	if result.RewardPoints != 55 {
		t.Fatalf("total points = %d, want 55", result.RewardPoints)
	}
}

func TestCorrectionReviewPrompt(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"कोई बात नहीं!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: amberResult()}, nil, Config{})

	sess := mustStart(t, o)
	var result *TurnResult
	for i := 0; i < 4; i++ {
		ts, err := o.HandleTurn(context.Background(), sess.ID, "गलत वाक्य")
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
		collectEvents(t, ts)
		result, err = ts.Result()
		if err != nil {
			t.Fatalf("turn %d result: %v", i+1, err)
		}
	}
	if result.FunctionCall != FunctionCallReviewCorrections {
		t.Fatalf("function call = %q, want %q", result.FunctionCall, FunctionCallReviewCorrections)
	}
}

func TestAckCorrections(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"कोई बात नहीं!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: amberResult()}, nil, Config{})

	sess := mustStart(t, o)
	ts, err := o.HandleTurn(context.Background(), sess.ID, "गलत वाक्य")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}
	collectEvents(t, ts)
	if _, err := ts.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}

	cleared, err := o.AckCorrections(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("AckCorrections: %v", err)
	}
	if len(cleared.PendingCorrections) != 0 {
		t.Fatalf("corrections not cleared")
	}
	if cleared.TurnCount != 1 {
		t.Fatalf("ack must not consume a turn")
	}
}

func TestSaveFailureFailsTurn(t *testing.T) {
	mem := store.NewMemory(0)
	resp := &fakeResponder{greeting: "नमस्ते!", chunks: []string{"ठीक है!"}}
	o := newTestOrchestrator(t, mem, resp, &fakeEvaluator{result: greenResult()}, nil, Config{})

	sess := mustStart(t, o)
	mem.FailSave = errors.New("disk full")

	_, err := o.HandleTurn(context.Background(), sess.ID, "कुछ भी")
	if err == nil {
		t.Fatalf("save failure before dispatch must fail the turn")
	}
	if core.AsError(err).Type != core.ErrStore {
		t.Fatalf("error type = %q, want store_error", core.AsError(err).Type)
	}
}

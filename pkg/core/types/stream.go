package types

// StreamEvent is the interface for all per-turn streaming event types.
//
// For any turn the emitted sequence is a prefix of:
//
//	transcript, evaluation, words*, complete, (transliteration|hints)*
//
// A failed turn replaces the tail with a single error event. Consumers must
// treat the stream as ordered; the complete event is the sole signal that the
// turn committed.
type StreamEvent interface {
	EventType() string
}

// TranscriptEvent echoes the child's utterance as soon as it is known.
type TranscriptEvent struct {
	Type string `json:"type"` // "transcript"
	Text string `json:"text"`
}

func (e TranscriptEvent) EventType() string { return "transcript" }

// EvaluationEvent carries the verdict for this turn.
type EvaluationEvent struct {
	Type        string       `json:"type"` // "evaluation"
	Verdict     Verdict      `json:"verdict"`
	Corrections []Correction `json:"corrections,omitempty"`
}

func (e EvaluationEvent) EventType() string { return "evaluation" }

// WordsEvent is an incremental chunk of the tutor reply. Chunks are buffered
// so the client never receives single-character fragments.
type WordsEvent struct {
	Type        string `json:"type"` // "words"
	Chunk       string `json:"chunk"`
	Accumulated string `json:"accumulated"`
}

func (e WordsEvent) EventType() string { return "words" }

// CompleteEvent is the terminal event of a successful turn.
type CompleteEvent struct {
	Type              string  `json:"type"` // "complete"
	FinalText         string  `json:"final_text"`
	Verdict           Verdict `json:"verdict"`
	ShouldEnd         bool    `json:"should_end"`
	TurnCount         int     `json:"turn_count"`
	GoodResponseCount int     `json:"good_response_count"`
	RewardPoints      int     `json:"reward_points"`
	PointsAwarded     int     `json:"points_awarded"`
	Milestone         bool    `json:"milestone"`
	// FunctionCall instructs the client to run a UI action, e.g.
	// "review_corrections" when accumulated ambers are due for review.
	FunctionCall string `json:"function_call,omitempty"`
}

func (e CompleteEvent) EventType() string { return "complete" }

// TransliterationEvent is post-hoc enrichment: the reply rendered in Latin
// script. Sent after complete so it never delays the main reply.
type TransliterationEvent struct {
	Type string `json:"type"` // "transliteration"
	Text string `json:"text"`
}

func (e TransliterationEvent) EventType() string { return "transliteration" }

// HintsEvent is post-hoc enrichment: suggested next utterances for the child.
type HintsEvent struct {
	Type  string   `json:"type"` // "hints"
	Hints []string `json:"hints"`
}

func (e HintsEvent) EventType() string { return "hints" }

// PingEvent is an SSE keepalive. Never part of the ordered turn sequence.
type PingEvent struct {
	Type string `json:"type"` // "ping"
}

func (e PingEvent) EventType() string { return "ping" }

// ErrorEvent terminates a failed turn. No complete event follows.
type ErrorEvent struct {
	Type      string `json:"type"` // "error"
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e ErrorEvent) EventType() string { return "error" }

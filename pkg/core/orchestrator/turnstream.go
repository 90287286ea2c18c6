package orchestrator

import (
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// TurnResult is the committed outcome of one turn.
type TurnResult struct {
	FinalText         string
	Verdict           types.Verdict
	ShouldEnd         bool
	TurnCount         int
	GoodResponseCount int
	RewardPoints      int
	PointsAwarded     int
	Milestone         bool
	FunctionCall      string
}

// TurnStream is the per-turn output channel. The orchestrator writes tagged
// events to it in the fixed order; a transport adapter reads and serializes
// them. The channel closing is the only signal that the turn is over.
type TurnStream struct {
	events chan types.StreamEvent
	done   chan struct{}
	result *TurnResult
	err    error
}

func newTurnStream(buffer int) *TurnStream {
	return &TurnStream{
		events: make(chan types.StreamEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the ordered event channel. It is closed when the turn ends,
// successfully or not.
func (s *TurnStream) Events() <-chan types.StreamEvent {
	return s.events
}

// Result blocks until the stream has closed and returns the committed result,
// or the error that failed the turn.
func (s *TurnStream) Result() (*TurnResult, error) {
	<-s.done
	return s.result, s.err
}

func (s *TurnStream) finish(result *TurnResult, err error) {
	s.result = result
	s.err = err
	close(s.events)
	close(s.done)
}

// Package evaluate defines the contract for per-utterance quality scoring.
// Evaluation is an enhancement, not a blocking dependency: on failure or
// timeout the orchestrator substitutes DefaultResult.
package evaluate

import (
	"context"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// Request carries one utterance to score.
type Request struct {
	Utterance string
	// PrecedingTutorLine gives the evaluator conversational context; may be
	// empty on the first turn.
	PrecedingTutorLine string
	Language           string
}

// Evaluator scores one utterance for completeness and correctness.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (*types.EvaluationResult, error)
}

// DefaultResult is the neutral verdict substituted when the evaluator fails
// or times out: green, no corrections.
func DefaultResult() *types.EvaluationResult {
	return &types.EvaluationResult{
		Verdict:                types.VerdictGreen,
		Score:                  1,
		IsComplete:             true,
		IsGrammaticallyCorrect: true,
	}
}

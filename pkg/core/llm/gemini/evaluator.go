package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kulturekool/tutor-gateway/pkg/core/evaluate"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

type evaluationPayload struct {
	Score                  float64  `json:"score"`
	IsComplete             bool     `json:"is_complete"`
	IsGrammaticallyCorrect bool     `json:"is_grammatically_correct"`
	Issues                 []string `json:"issues"`
	CorrectedText          string   `json:"corrected_text"`
	Verdict                string   `json:"verdict"`
}

// Evaluate scores one utterance. The orchestrator substitutes the default
// verdict on any error, so this never needs to degrade internally.
func (c *Client) Evaluate(ctx context.Context, req evaluate.Request) (*types.EvaluationResult, error) {
	var user strings.Builder
	if req.PrecedingTutorLine != "" {
		fmt.Fprintf(&user, "Tutor asked: %s\n", req.PrecedingTutorLine)
	}
	fmt.Fprintf(&user, "Child said: %s", req.Utterance)

	raw, err := c.generate(ctx, evaluateSystemPrompt(req.Language), user.String(), true, 200)
	if err != nil {
		return nil, err
	}

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	verdict := types.Verdict(strings.ToLower(payload.Verdict))
	if verdict != types.VerdictGreen && verdict != types.VerdictAmber {
		verdict = types.VerdictGreen
		if !payload.IsComplete || !payload.IsGrammaticallyCorrect {
			verdict = types.VerdictAmber
		}
	}

	return &types.EvaluationResult{
		Verdict:                verdict,
		Score:                  payload.Score,
		IsComplete:             payload.IsComplete,
		IsGrammaticallyCorrect: payload.IsGrammaticallyCorrect,
		Issues:                 payload.Issues,
		CorrectedText:          strings.TrimSpace(payload.CorrectedText),
	}, nil
}

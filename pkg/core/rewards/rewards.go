// Package rewards awards points and milestone flags for evaluated turns.
// Everything here is a pure function of the verdict and the running counters.
package rewards

import "github.com/kulturekool/tutor-gateway/pkg/core/types"

// Config holds the tuning knobs for the calculator.
type Config struct {
	// BasePoints is awarded for every green verdict.
	BasePoints int
	// MilestoneInterval: every time good_response_count reaches a positive
	// multiple of this, MilestoneBonus is awarded on top of BasePoints.
	MilestoneInterval int
	MilestoneBonus    int
	// CorrectionReviewInterval: a review prompt is surfaced when turn_count is
	// a positive multiple of this and corrections are pending.
	CorrectionReviewInterval int
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		BasePoints:               10,
		MilestoneInterval:        3,
		MilestoneBonus:           25,
		CorrectionReviewInterval: 4,
	}
}

// Calculator computes per-turn rewards.
type Calculator struct {
	cfg Config
}

// NewCalculator builds a calculator, substituting defaults for zero-valued
// intervals so a partially filled config cannot divide by zero.
func NewCalculator(cfg Config) *Calculator {
	def := DefaultConfig()
	if cfg.BasePoints <= 0 {
		cfg.BasePoints = def.BasePoints
	}
	if cfg.MilestoneInterval <= 0 {
		cfg.MilestoneInterval = def.MilestoneInterval
	}
	if cfg.MilestoneBonus <= 0 {
		cfg.MilestoneBonus = def.MilestoneBonus
	}
	if cfg.CorrectionReviewInterval <= 0 {
		cfg.CorrectionReviewInterval = def.CorrectionReviewInterval
	}
	return &Calculator{cfg: cfg}
}

// Award holds the outcome of scoring one turn.
type Award struct {
	Points    int
	Milestone bool
}

// Points returns the award for a turn. goodResponseCount is the counter value
// after this turn's verdict has been applied.
func (c *Calculator) Points(verdict types.Verdict, goodResponseCount int) Award {
	if verdict != types.VerdictGreen {
		return Award{}
	}
	a := Award{Points: c.cfg.BasePoints}
	if goodResponseCount > 0 && goodResponseCount%c.cfg.MilestoneInterval == 0 {
		a.Points += c.cfg.MilestoneBonus
		a.Milestone = true
	}
	return a
}

// ShouldPromptReview reports whether the client should be asked to review
// pending corrections on this turn. Suppressed entirely on the turn that ends
// the session.
func (c *Calculator) ShouldPromptReview(turnCount, pendingCorrections int, ending bool) bool {
	if ending || pendingCorrections == 0 {
		return false
	}
	return turnCount > 0 && turnCount%c.cfg.CorrectionReviewInterval == 0
}

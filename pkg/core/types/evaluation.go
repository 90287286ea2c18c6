package types

// Verdict is the evaluator's quality judgment for one utterance.
type Verdict string

const (
	VerdictGreen Verdict = "green"
	VerdictAmber Verdict = "amber"
)

// EvaluationResult scores one child utterance. Produced fresh each turn and
// never merged across turns; only amber corrections outlive the turn.
type EvaluationResult struct {
	Verdict                Verdict  `json:"verdict"`
	Score                  float64  `json:"score"`
	IsComplete             bool     `json:"is_complete"`
	IsGrammaticallyCorrect bool     `json:"is_grammatically_correct"`
	Issues                 []string `json:"issues,omitempty"`
	CorrectedText          string   `json:"corrected_text,omitempty"`
}

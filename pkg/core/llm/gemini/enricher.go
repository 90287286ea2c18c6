package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// Transliterate renders Devanagari text in Latin script for early readers.
func (c *Client) Transliterate(ctx context.Context, text string) (string, error) {
	system := `Transliterate the given Devanagari Hindi text into simple Latin script
a young child can read aloud. Return only the transliteration.`
	return c.generate(ctx, system, text, false, 100)
}

// Hints suggests short utterances the child could say next, based on the
// most recent tutor line.
func (c *Client) Hints(ctx context.Context, history []types.Turn, language string) ([]string, error) {
	lastTutor := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleTutor {
			lastTutor = history[i].Text
			break
		}
	}
	if lastTutor == "" {
		return nil, nil
	}

	system := fmt.Sprintf(`Suggest up to 3 short replies a child could say next in %s,
responding to the tutor's last line. Return strict JSON: {"hints": ["...", "..."]}`,
		languageName(language))
	raw, err := c.generate(ctx, system, "Tutor said: "+lastTutor, true, 120)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Hints []string `json:"hints"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode hints: %w", err)
	}
	out := payload.Hints[:0]
	for _, h := range payload.Hints {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

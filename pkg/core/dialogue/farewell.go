package dialogue

import "strings"

// DefaultFarewellPhrases covers the farewells a child is likely to use in a
// Hindi/English session. Matching is case-insensitive substring matching, so
// "ok bye bye!" terminates the session.
var DefaultFarewellPhrases = []string{
	"bye",
	"bye bye",
	"goodbye",
	"good bye",
	"tata",
	"अलविदा",
	"बाय",
	"टाटा",
	"फिर मिलेंगे",
	"शुभ रात्रि",
}

// FarewellDetector matches utterances against a fixed phrase list.
type FarewellDetector struct {
	phrases []string
}

// NewFarewellDetector builds a detector. With no phrases the default list is
// used.
func NewFarewellDetector(phrases []string) *FarewellDetector {
	if len(phrases) == 0 {
		phrases = DefaultFarewellPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &FarewellDetector{phrases: lowered}
}

// Detect reports whether the utterance contains a farewell phrase. This runs
// before any concurrent work is dispatched, since a match changes the
// instructions given to the responder.
func (d *FarewellDetector) Detect(utterance string) bool {
	u := strings.ToLower(utterance)
	for _, p := range d.phrases {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

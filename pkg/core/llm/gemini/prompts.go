package gemini

import (
	"fmt"
	"strings"

	"github.com/kulturekool/tutor-gateway/pkg/core/dialogue"
	"github.com/kulturekool/tutor-gateway/pkg/core/respond"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

const tutorIdentity = `You are Kiki, a warm and friendly Hindi tutor for young children.
You speak like a caring older sister: encouraging, patient, never critical.
All Hindi text must be in Devanagari script only; never romanized Hindi.
Keep every reply short, at most 15 words, at the child's comprehension level.
Never explicitly correct the child; model correct language naturally instead.`

// endMarker is the wire form of the responder's end-conversation signal. It
// is stripped from the streamed text before the client sees it.
const endMarker = "[END]"

type topicPrompt struct {
	label string
	focus string
}

var topics = map[string]topicPrompt{
	"everyday": {
		label: "everyday life",
		focus: "Ask about the child's day, school, friends, and family. Be curious like a mom would.",
	},
	"things_i_love": {
		label: "things the child loves",
		focus: "Explore favorite colors, foods, toys, games, and animals. Share your own favorites too.",
	},
	"feelings": {
		label: "feelings and emotions",
		focus: "Ask gently how the child is feeling today and why. Keep the space safe and comfortable.",
	},
	"festivals": {
		label: "Indian festivals",
		focus: "Talk about Diwali, Holi, and family celebrations: lights, sweets, colors, and visits.",
	},
}

func topicFor(name string) topicPrompt {
	if t, ok := topics[name]; ok {
		return t
	}
	return topics["everyday"]
}

func openSystemPrompt(req respond.OpenRequest) string {
	t := topicFor(req.Topic)
	return fmt.Sprintf(`%s

Create a warm opening greeting for %s, age %d, about %s.
Greet by name, then ask one simple inviting question.
Return only the greeting text, nothing else.`,
		tutorIdentity, displayName(req.Profile), req.Profile.Age, t.label)
}

func respondSystemPrompt(req respond.Request) string {
	t := topicFor(req.Topic)
	var b strings.Builder
	b.WriteString(tutorIdentity)
	fmt.Fprintf(&b, "\n\nChild: %s, age %d. Topic: %s.\n%s\n", displayName(req.Profile), req.Profile.Age, t.label, t.focus)
	fmt.Fprintf(&b, "\nThis is exchange %d of at most %d.\n", req.TurnCount, req.MaxTurns)

	switch {
	case req.ShouldEnd:
		b.WriteString(`The conversation is ending now. Reply with a warm closing line that
summarizes what you talked about. Ask no new question. After the closing
line, append the token ` + endMarker + ` on its own.`)
	case req.Phase == dialogue.PhaseWrappingUp:
		b.WriteString(`Begin wrapping up. You may ask one more small question, but start
concluding warmly. If the conversation reaches a natural close, append the
token ` + endMarker + ` after your reply.`)
	case req.Phase == dialogue.PhaseWarming:
		b.WriteString("Warm-up phase: keep it very simple, one easy question, lots of encouragement.")
	default:
		b.WriteString("Keep the conversation flowing naturally: react warmly, then ask one follow-up question.")
	}
	return b.String()
}

func evaluateSystemPrompt(language string) string {
	return fmt.Sprintf(`You assess one utterance a child spoke during a %s practice conversation.
Judge only this utterance, not the whole session.
Return strict JSON:
{"score": 0.0-1.0, "is_complete": bool, "is_grammatically_correct": bool,
 "issues": ["short tags like english_word_used, incomplete_sentence"],
 "corrected_text": "the utterance as a proper sentence in the target language",
 "verdict": "green" or "amber"}
Use "green" when the utterance is a reasonable, mostly correct attempt.
Use "amber" when it is incomplete, ungrammatical, or mixes in another language.`, languageName(language))
}

func displayName(p types.Profile) string {
	if strings.TrimSpace(p.Name) == "" {
		return "the child"
	}
	return p.Name
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "en":
		return "English"
	default:
		return "Hindi"
	}
}

package orchestrator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentence-ending marks, including the Devanagari danda.
const sentenceEnders = ".!?।"

// wordBuffer accumulates streamed reply text and releases it in client-sized
// chunks: either at a whitespace boundary once at least two whole words are
// pending, or as soon as a sentence-ending mark arrives. The client never
// sees single-character fragments.
type wordBuffer struct {
	pending     strings.Builder
	accumulated strings.Builder
}

// add appends streamed text and returns zero or more chunks ready to emit.
func (b *wordBuffer) add(text string) []string {
	b.pending.WriteString(text)

	var chunks []string
	for {
		chunk, ok := b.takeChunk()
		if !ok {
			break
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// flush releases whatever remains, used once the reply stream ends.
func (b *wordBuffer) flush() (string, bool) {
	rest := strings.TrimSpace(b.pending.String())
	b.pending.Reset()
	if rest == "" {
		return "", false
	}
	b.accumulated.WriteString(rest)
	return rest, true
}

// total returns everything released so far.
func (b *wordBuffer) total() string {
	return strings.TrimSpace(b.accumulated.String())
}

func (b *wordBuffer) takeChunk() (string, bool) {
	content := b.pending.String()

	if i := strings.IndexAny(content, sentenceEnders); i >= 0 {
		_, size := utf8.DecodeRuneInString(content[i:])
		return b.cut(content, i+size), true
	}

	boundary := strings.LastIndexFunc(content, unicode.IsSpace)
	if boundary < 0 {
		return "", false
	}
	if len(strings.Fields(content[:boundary])) < 2 {
		return "", false
	}
	_, size := utf8.DecodeRuneInString(content[boundary:])
	return b.cut(content, boundary+size), true
}

func (b *wordBuffer) cut(content string, end int) string {
	chunk := content[:end]
	b.pending.Reset()
	b.pending.WriteString(content[end:])
	b.accumulated.WriteString(chunk)
	return chunk
}

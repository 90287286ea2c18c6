// Package respond defines the contract for the tutor reply generator.
package respond

import (
	"context"

	"github.com/kulturekool/tutor-gateway/pkg/core/dialogue"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// OpenRequest asks for the synthesized opening tutor greeting.
type OpenRequest struct {
	Profile  types.Profile
	Topic    string
	Language string
}

// Request carries everything the responder needs for one turn. The phase and
// ShouldEnd instruction are decided before dispatch so the streamed reply
// already reflects the correct closing behavior.
type Request struct {
	History   []types.Turn
	Utterance string
	TurnCount int
	MaxTurns  int
	Phase     dialogue.Phase
	ShouldEnd bool
	Profile   types.Profile
	Topic     string
	Language  string
}

// Chunk is one piece of streamed reply text.
type Chunk struct {
	Text string
}

// Outcome is available once the stream has been fully consumed.
type Outcome struct {
	// EndSuggested is the responder's own optional end-conversation signal,
	// separate from the reply text. The state machine's decision takes
	// precedence; this only accelerates wrap-up.
	EndSuggested bool
}

// ReplyStream is a pull iterator over reply chunks.
type ReplyStream interface {
	// Next returns the next chunk. Returns io.EOF when the reply is complete.
	Next() (Chunk, error)

	// Final returns the outcome. Valid only after Next returned io.EOF.
	Final() Outcome

	// Close releases resources.
	Close() error
}

// Responder produces tutor lines.
type Responder interface {
	// Open generates the opening greeting for a new session.
	Open(ctx context.Context, req OpenRequest) (string, error)

	// Respond generates the next tutor line as a lazy chunk sequence.
	Respond(ctx context.Context, req Request) (ReplyStream, error)
}

package gemini

import (
	"context"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/kulturekool/tutor-gateway/pkg/core/respond"
	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// Open generates the opening tutor greeting for a new session.
func (c *Client) Open(ctx context.Context, req respond.OpenRequest) (string, error) {
	text, err := c.generate(ctx, openSystemPrompt(req), "Begin the conversation.", false, 80)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimSuffix(text, endMarker)), nil
}

// Respond streams the next tutor line. The model appends the end marker when
// it suggests concluding; the marker is stripped from the chunks and surfaced
// through the stream outcome instead.
func (c *Client) Respond(ctx context.Context, req respond.Request) (respond.ReplyStream, error) {
	contents := contentsFromHistory(req.History, req.Utterance)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(respondSystemPrompt(req), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   150,
	}
	next, stop := iter.Pull2(c.genai.Models.GenerateContentStream(ctx, c.model, contents, cfg))
	return &replyStream{next: next, stop: stop}, nil
}

func contentsFromHistory(history []types.Turn, utterance string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == types.RoleTutor {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(utterance, genai.RoleUser))
	return contents
}

// replyStream adapts the SDK's push iterator into the pull-based reply
// stream, holding back any text that could be the start of the end marker so
// the marker never leaks to the client even when split across chunks.
type replyStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	hold    string
	outcome respond.Outcome
	done    bool
}

func (s *replyStream) Next() (respond.Chunk, error) {
	if s.done {
		return respond.Chunk{}, io.EOF
	}
	for {
		resp, err, ok := s.next()
		if err != nil {
			s.done = true
			return respond.Chunk{}, err
		}
		if !ok {
			s.done = true
			rest := s.hold
			s.hold = ""
			if i := strings.Index(rest, endMarker); i >= 0 {
				s.outcome.EndSuggested = true
				rest = rest[:i]
			}
			return respond.Chunk{Text: rest}, io.EOF
		}

		s.hold += resp.Text()
		if i := strings.Index(s.hold, endMarker); i >= 0 {
			s.outcome.EndSuggested = true
			out := s.hold[:i]
			s.hold = ""
			s.done = true
			s.stop()
			return respond.Chunk{Text: out}, io.EOF
		}
		keep := markerHoldback(s.hold)
		out := s.hold[:len(s.hold)-keep]
		s.hold = s.hold[len(s.hold)-keep:]
		if out != "" {
			return respond.Chunk{Text: out}, nil
		}
	}
}

func (s *replyStream) Final() respond.Outcome { return s.outcome }

func (s *replyStream) Close() error {
	s.done = true
	s.stop()
	return nil
}

// markerHoldback returns the length of the longest suffix of s that is a
// proper prefix of the end marker.
func markerHoldback(s string) int {
	max := len(endMarker) - 1
	if max > len(s) {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(s, endMarker[:k]) {
			return k
		}
	}
	return 0
}

package gemini

import (
	"errors"
	"io"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/kulturekool/tutor-gateway/pkg/core/respond"
)

func scriptedStream(parts []string) *replyStream {
	i := 0
	return &replyStream{
		next: func() (*genai.GenerateContentResponse, error, bool) {
			if i >= len(parts) {
				return nil, nil, false
			}
			p := parts[i]
			i++
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{{Text: p}}},
				}},
			}, nil, true
		},
		stop: func() {},
	}
}

func drain(t *testing.T, s *replyStream) string {
	t.Helper()
	var b strings.Builder
	for {
		chunk, err := s.Next()
		b.WriteString(chunk.Text)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.String()
			}
			t.Fatalf("Next: %v", err)
		}
	}
}

func TestReplyStreamPlainText(t *testing.T) {
	s := scriptedStream([]string{"आज ", "क्या ", "किया?"})
	got := drain(t, s)
	if got != "आज क्या किया?" {
		t.Fatalf("text = %q", got)
	}
	if s.Final().EndSuggested {
		t.Fatalf("no marker, EndSuggested must be false")
	}
}

func TestReplyStreamMarkerStripped(t *testing.T) {
	s := scriptedStream([]string{"अलविदा! फिर मिलेंगे! ", endMarker})
	got := drain(t, s)
	if strings.Contains(got, endMarker) {
		t.Fatalf("marker leaked: %q", got)
	}
	if !s.Final().EndSuggested {
		t.Fatalf("marker must set EndSuggested")
	}
}

func TestReplyStreamMarkerSplitAcrossChunks(t *testing.T) {
	marker := endMarker
	s := scriptedStream([]string{"अलविदा! ", marker[:2], marker[2:]})
	got := drain(t, s)
	if strings.Contains(got, marker) || strings.Contains(got, marker[:2]) {
		t.Fatalf("split marker leaked: %q", got)
	}
	if !s.Final().EndSuggested {
		t.Fatalf("split marker must still set EndSuggested")
	}
}

func TestReplyStreamBracketNotMarker(t *testing.T) {
	// A lone bracket that never completes the marker must be delivered.
	s := scriptedStream([]string{"देखो [", "यह] ठीक है"})
	got := drain(t, s)
	if got != "देखो [यह] ठीक है" {
		t.Fatalf("text = %q", got)
	}
	if s.Final().EndSuggested {
		t.Fatalf("bracket text must not suggest ending")
	}
}

func TestReplyStreamNextAfterEOF(t *testing.T) {
	s := scriptedStream([]string{"ठीक।"})
	drain(t, s)
	if _, err := s.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestMarkerHoldback(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"नमस्ते", 0},
		{"नमस्ते [", 1},
		{"नमस्ते [E", 2},
		{"नमस्ते [EN", 3},
		{"नमस्ते [END", 4},
		{"x]", 0},
	}
	for _, tc := range cases {
		if got := markerHoldback(tc.in); got != tc.want {
			t.Fatalf("markerHoldback(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

var _ respond.ReplyStream = (*replyStream)(nil)

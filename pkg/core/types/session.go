// Package types defines the data model shared across the tutor core.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who spoke a turn.
type Role string

const (
	RoleTutor Role = "tutor"
	RoleChild Role = "child"
)

// Turn is one line of the dialogue.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Correction records an amber-verdict utterance awaiting client review.
type Correction struct {
	Original  string   `json:"original"`
	Corrected string   `json:"corrected"`
	Issues    []string `json:"issues,omitempty"`
}

// Profile describes the child. Immutable for the life of the session.
type Profile struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender,omitempty"`
}

// Session is the unit of persisted state for one ongoing dialogue.
type Session struct {
	ID                 string       `json:"session_id"`
	ConversationID     string       `json:"conversation_id,omitempty"`
	History            []Turn       `json:"history"`
	TurnCount          int          `json:"turn_count"`
	GoodResponseCount  int          `json:"good_response_count"`
	PendingCorrections []Correction `json:"pending_corrections"`
	RewardPoints       int          `json:"reward_points"`
	Profile            Profile      `json:"profile"`
	Topic              string       `json:"topic"`
	Language           string       `json:"language"`
	Ended              bool         `json:"ended"`
	CreatedAt          time.Time    `json:"created_at"`
}

// Normalize applies explicit defaults to a session loaded from storage.
// Unknown or missing fields never propagate as nil into the orchestrator.
func (s *Session) Normalize() {
	if s.History == nil {
		s.History = []Turn{}
	}
	if s.PendingCorrections == nil {
		s.PendingCorrections = []Correction{}
	}
	if s.Language == "" {
		s.Language = "hi"
	}
	if s.Topic == "" {
		s.Topic = "everyday"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}

// Validate rejects sessions whose counters violate the model invariants.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("session id is empty")
	}
	if s.TurnCount < 0 {
		return fmt.Errorf("turn_count is negative")
	}
	if s.GoodResponseCount < 0 || s.GoodResponseCount > s.TurnCount {
		return fmt.Errorf("good_response_count %d out of range for turn_count %d", s.GoodResponseCount, s.TurnCount)
	}
	if s.RewardPoints < 0 {
		return fmt.Errorf("reward_points is negative")
	}
	return nil
}

// AppendExchange appends one child utterance and the tutor reply, preserving
// conversation order.
func (s *Session) AppendExchange(utterance, reply string) {
	s.History = append(s.History,
		Turn{Role: RoleChild, Text: utterance},
		Turn{Role: RoleTutor, Text: reply},
	)
}

// LastTutorLine returns the most recent tutor turn, or "" if none exists.
func (s *Session) LastTutorLine() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleTutor {
			return s.History[i].Text
		}
	}
	return ""
}

// Package stt provides speech-to-text for child recordings. Transcription is
// an external collaborator: the orchestrator only ever sees the resulting
// transcript text.
package stt

import (
	"context"
	"io"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	Model        string // Provider-specific model
	LanguageCode string // BCP-47 code, e.g. "hi-IN"
	Filename     string // Original filename hint, e.g. "audio.wav"
}

// Transcript is the result of transcription.
type Transcript struct {
	Text         string
	LanguageCode string
}

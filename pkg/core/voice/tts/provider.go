// Package tts provides text-to-speech for tutor replies. Synthesis is an
// external collaborator; the gateway exposes it as a thin endpoint and turn
// handling never blocks on it.
package tts

import "context"

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio and returns the encoded bytes.
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error)
}

// SynthesizeOptions configures synthesis.
type SynthesizeOptions struct {
	Voice        string // Voice identifier
	Model        string // Provider-specific model
	LanguageCode string // ISO language code, e.g. "hi"
	Format       string // Output format, e.g. "mp3_44100_128"
}

// Synthesis is the synthesized audio.
type Synthesis struct {
	Audio  []byte
	Format string
}

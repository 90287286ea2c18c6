package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	defaultSarvamBaseURL = "https://api.sarvam.ai"
	defaultSarvamModel   = "saarika:v1"
	sarvamMaxAttempts    = 3
)

// Sarvam implements speech-to-text against the Sarvam AI API.
type Sarvam struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSarvam creates a Sarvam STT provider.
func NewSarvam(apiKey string) *Sarvam {
	return NewSarvamWithClient(apiKey, &http.Client{Timeout: 30 * time.Second})
}

// NewSarvamWithClient creates a Sarvam STT provider with a custom client.
func NewSarvamWithClient(apiKey string, httpClient *http.Client) *Sarvam {
	return &Sarvam{
		apiKey:     apiKey,
		baseURL:    defaultSarvamBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (s *Sarvam) SetBaseURL(u string) { s.baseURL = u }

func (s *Sarvam) Name() string { return "sarvam" }

// Transcribe uploads the audio and returns the transcript. Transient
// failures are retried with a short backoff before giving up.
func (s *Sarvam) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= sarvamMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * 100 * time.Millisecond):
			}
		}
		transcript, err := s.transcribeOnce(ctx, data, opts)
		if err == nil {
			return transcript, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("sarvam transcribe after %d attempts: %w", sarvamMaxAttempts, lastErr)
}

func (s *Sarvam) transcribeOnce(ctx context.Context, data []byte, opts TranscribeOptions) (*Transcript, error) {
	model := opts.Model
	if model == "" {
		model = defaultSarvamModel
	}
	language := opts.LanguageCode
	if language == "" {
		language = "hi-IN"
	}
	filename := opts.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	_ = mw.WriteField("model", model)
	_ = mw.WriteField("language_code", language)
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/speech-to-text", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-subscription-key", s.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("sarvam returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var out struct {
		Transcript   string `json:"transcript"`
		LanguageCode string `json:"language_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &Transcript{Text: out.Transcript, LanguageCode: out.LanguageCode}, nil
}

package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultElevenLabsWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"
	defaultElevenLabsModel  = "eleven_turbo_v2_5"
	defaultElevenLabsFormat = "mp3_44100_128"
)

// ElevenLabs synthesizes speech over the ElevenLabs streaming websocket. One
// connection is dialed per Synthesize call; the session streams a single
// utterance and closes.
type ElevenLabs struct {
	apiKey    string
	voiceID   string
	baseWSURL string
	dialer    *websocket.Dialer
}

// NewElevenLabs creates an ElevenLabs TTS provider.
func NewElevenLabs(apiKey, voiceID string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:    apiKey,
		voiceID:   voiceID,
		baseWSURL: defaultElevenLabsWSBase,
		dialer:    websocket.DefaultDialer,
	}
}

// SetBaseWSURL overrides the websocket endpoint, used by tests.
func (e *ElevenLabs) SetBaseWSURL(u string) { e.baseWSURL = u }

func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Synthesize streams text through the websocket and collects the audio
// chunks until the final frame.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if strings.TrimSpace(e.apiKey) == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	voiceID := opts.Voice
	if voiceID == "" {
		voiceID = e.voiceID
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("elevenlabs voice id is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	wsURL, err := e.buildWSURL(voiceID, opts)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)

	conn, _, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial elevenlabs: %w", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(30 * time.Second)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	// Handshake, utterance, then the empty-text end-of-input marker.
	init := map[string]any{
		"text": " ",
		"voice_settings": map[string]float64{
			"stability":        0.3,
			"similarity_boost": 0.5,
			"style":            0.0,
		},
	}
	if err := conn.WriteJSON(init); err != nil {
		return nil, fmt.Errorf("elevenlabs handshake: %w", err)
	}
	payload := text
	if !strings.HasSuffix(payload, " ") {
		payload += " "
	}
	if err := conn.WriteJSON(map[string]any{"text": payload, "flush": true}); err != nil {
		return nil, fmt.Errorf("elevenlabs send text: %w", err)
	}
	if err := conn.WriteJSON(map[string]any{"text": ""}); err != nil {
		return nil, fmt.Errorf("elevenlabs close input: %w", err)
	}

	format := opts.Format
	if format == "" {
		format = defaultElevenLabsFormat
	}

	var audio bytes.Buffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				break
			}
			if audio.Len() > 0 {
				break
			}
			return nil, fmt.Errorf("elevenlabs read: %w", err)
		}

		var msg struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return nil, fmt.Errorf("elevenlabs: %s %s", msg.Error, strings.TrimSpace(msg.Message))
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs: invalid audio base64")
			}
			audio.Write(chunk)
		}
		if msg.IsFinal {
			break
		}
	}

	if audio.Len() == 0 {
		return nil, fmt.Errorf("elevenlabs returned no audio")
	}
	return &Synthesis{Audio: audio.Bytes(), Format: format}, nil
}

func (e *ElevenLabs) buildWSURL(voiceID string, opts SynthesizeOptions) (string, error) {
	base := e.baseWSURL
	if strings.TrimSpace(base) == "" {
		base = defaultElevenLabsWSBase
	}
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws base url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		model := opts.Model
		if model == "" {
			model = defaultElevenLabsModel
		}
		q.Set("model_id", model)
	}
	if q.Get("output_format") == "" {
		format := opts.Format
		if format == "" {
			format = defaultElevenLabsFormat
		}
		q.Set("output_format", format)
	}
	if opts.LanguageCode != "" && q.Get("language_code") == "" {
		q.Set("language_code", opts.LanguageCode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

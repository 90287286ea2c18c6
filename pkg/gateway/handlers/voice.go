package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kulturekool/tutor-gateway/pkg/core"
	"github.com/kulturekool/tutor-gateway/pkg/core/voice/stt"
	"github.com/kulturekool/tutor-gateway/pkg/core/voice/tts"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/config"
	"github.com/kulturekool/tutor-gateway/pkg/gateway/mw"
)

// TranscribeHandler serves POST /v1/transcribe: multipart audio in,
// transcript JSON out.
type TranscribeHandler struct {
	Config config.Config
	STT    stt.Provider
	Logger *slog.Logger
}

type transcribeResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (h TranscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())

	if h.STT == nil {
		writeErr(w, reqID, core.NewInvalidRequestError("transcription is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeErr(w, reqID, core.NewInvalidRequestError("multipart field 'audio' is required"))
		return
	}
	defer func() { _ = file.Close() }()

	opts := stt.TranscribeOptions{
		LanguageCode: strings.TrimSpace(r.FormValue("language_code")),
		Filename:     header.Filename,
	}
	transcript, err := h.STT.Transcribe(r.Context(), file, opts)
	if err != nil {
		writeErr(w, reqID, core.NewResponderError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(transcribeResponse{
		Text:         transcript.Text,
		LanguageCode: transcript.LanguageCode,
	})
}

// SpeakHandler serves POST /v1/speak: text in, synthesized audio bytes out.
type SpeakHandler struct {
	Config config.Config
	TTS    tts.Provider
	Logger *slog.Logger
}

type speakRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
}

func (h SpeakHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := mw.RequestIDFrom(r.Context())

	if h.TTS == nil {
		writeErr(w, reqID, core.NewInvalidRequestError("speech synthesis is not configured"))
		return
	}

	var req speakRequest
	if cerr := decodeJSONBody(w, r, h.Config.MaxBodyBytes, &req); cerr != nil {
		writeErr(w, reqID, cerr)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, reqID, core.NewInvalidRequestError("text must not be empty"))
		return
	}

	voice := req.Voice
	if voice == "" {
		voice = h.Config.ElevenLabsVoiceID
	}
	synthesis, err := h.TTS.Synthesize(r.Context(), req.Text, tts.SynthesizeOptions{
		Voice:  voice,
		Format: req.Format,
	})
	if err != nil {
		writeErr(w, reqID, core.NewResponderError(err))
		return
	}

	w.Header().Set("Content-Type", contentTypeForFormat(synthesis.Format))
	_, _ = w.Write(synthesis.Audio)
}

func contentTypeForFormat(format string) string {
	switch {
	case strings.HasPrefix(format, "mp3"):
		return "audio/mpeg"
	case strings.HasPrefix(format, "pcm"):
		return "audio/L16"
	case strings.HasPrefix(format, "ulaw"):
		return "audio/basic"
	default:
		return "application/octet-stream"
	}
}

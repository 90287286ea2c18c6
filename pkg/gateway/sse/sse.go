// Package sse serializes turn stream events as server-sent events. The wire
// event name is always the event's own EventType tag, so the ordered turn
// sequence and the keepalive ping share one code path.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// New prepares w for event streaming. It fails if the underlying writer
// cannot flush, and otherwise sets the stream headers before any body byte
// is written.
func New(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &Writer{w: w, flusher: f}, nil
}

// Send writes one event frame and flushes it.
func (sw *Writer) Send(ev types.StreamEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, "event: %s\n", ev.EventType()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", string(b)); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

// Ping emits a keepalive frame. Pings interleave with turn events but are
// never part of the ordered sequence.
func (sw *Writer) Ping() error {
	return sw.Send(types.PingEvent{Type: "ping"})
}

// Package sse implements the server-sent-events wire protocol used between
// the pipeline server and its clients: one JSON event per `data:` frame,
// terminated by a literal [DONE] frame.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"oracle/pkg/pipeline"
)

// DoneMarker is the payload of the logical end-of-stream frame. It is sent
// in addition to the transport's own end-of-stream so clients can tell a
// clean finish from a dropped connection.
const DoneMarker = "[DONE]"

// Encoder writes pipeline events as SSE frames, flushing after every frame
// so the receiver observes partial progress immediately.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder creates an encoder over w. If w also implements http.Flusher,
// every frame is flushed as soon as it is written.
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// WriteEvent writes one event frame and flushes it.
func (e *Encoder) WriteEvent(ev pipeline.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	e.flush()
	return nil
}

// WriteDone writes the logical end-of-stream frame.
func (e *Encoder) WriteDone() error {
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", DoneMarker); err != nil {
		return fmt.Errorf("write done frame: %w", err)
	}
	e.flush()
	return nil
}

func (e *Encoder) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

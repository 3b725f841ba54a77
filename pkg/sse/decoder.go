package sse

import (
	"bytes"
	"encoding/json"
	"strings"

	"oracle/pkg/logx"
	"oracle/pkg/pipeline"
)

// frameSep delimits SSE frames on the wire.
const frameSep = "\n\n"

// Decoder reassembles SSE frames from an arbitrarily chunked byte stream
// and decodes them back into pipeline events. Frame boundaries may split
// anywhere across chunks; the unterminated remainder is buffered until the
// next chunk arrives. Malformed frames are dropped, never fatal.
type Decoder struct {
	buf    bytes.Buffer
	done   bool
	logger *logx.Logger
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{logger: logx.NewLogger("sse")}
}

// Done reports whether the [DONE] frame has been observed. Once done, all
// further input is ignored.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed appends a chunk of bytes and returns every complete event decoded
// from the buffer, in order. The same byte stream split at any chunk
// boundaries yields the same event sequence.
func (d *Decoder) Feed(chunk []byte) []pipeline.Event {
	if d.done {
		return nil
	}
	d.buf.Write(chunk)

	var events []pipeline.Event
	for {
		raw := d.buf.String()
		idx := strings.Index(raw, frameSep)
		if idx < 0 {
			return events
		}
		frame := raw[:idx]
		d.buf.Next(idx + len(frameSep))

		ev, terminal, ok := d.decodeFrame(frame)
		if terminal {
			d.done = true
			return events
		}
		if ok {
			events = append(events, ev)
		}
	}
}

// decodeFrame parses one frame. terminal is true for the [DONE] marker;
// ok is false for frames that are malformed or not data frames.
func (d *Decoder) decodeFrame(frame string) (ev pipeline.Event, terminal, ok bool) {
	line := strings.TrimSpace(frame)
	if line == "" {
		return ev, false, false
	}
	if !strings.HasPrefix(line, "data:") {
		d.logger.Debug("dropping non-data frame: %q", line)
		return ev, false, false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == DoneMarker {
		return ev, true, false
	}
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		d.logger.Warn("dropping malformed frame: %v", err)
		return ev, false, false
	}
	if ev.Agent == "" || ev.Status == "" {
		d.logger.Warn("dropping structurally incomplete frame: %q", data)
		return ev, false, false
	}
	return ev, false, true
}

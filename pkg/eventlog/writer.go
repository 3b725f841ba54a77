// Package eventlog records every pipeline event to daily rotated JSONL
// files for diagnostics. The files are logs, not a queryable run store.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"oracle/pkg/pipeline"
)

// Record is one JSONL line: a pipeline event annotated with its run and
// receipt time. Token payloads are reduced to a length so log files stay
// readable; final outputs and errors are kept verbatim.
type Record struct {
	Timestamp time.Time       `json:"ts"`
	RunID     string          `json:"run_id"`
	Agent     string          `json:"agent"`
	Status    pipeline.Status `json:"status"`
	TokenLen  int             `json:"token_len,omitempty"`
	Output    string          `json:"output,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Writer appends records to a daily rotated JSONL file.
type Writer struct {
	logDir        string
	currentFile   *os.File
	currentDate   string
	rotationHours int
	mu            sync.Mutex
}

// NewWriter creates a writer rooted at logDir, creating the directory if
// needed and opening today's file. rotationHours below 1 defaults to daily
// rotation.
func NewWriter(logDir string, rotationHours int) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if rotationHours <= 0 {
		rotationHours = 24
	}

	w := &Writer{logDir: logDir, rotationHours: rotationHours}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("initialize log file: %w", err)
	}
	return w, nil
}

// WriteEvent appends one pipeline event for the given run.
func (w *Writer) WriteEvent(runID string, ev pipeline.Event) error {
	rec := Record{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Agent:     ev.Agent,
		Status:    ev.Status,
		TokenLen:  len(ev.Token),
		Output:    ev.Output,
		Error:     ev.Error,
	}
	return w.write(rec)
}

func (w *Writer) write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}
	if _, err := w.currentFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (w *Writer) rotateIfNeeded() error {
	date := time.Now().Format("2006-01-02")
	if w.currentFile != nil && w.currentDate == date {
		return nil
	}
	return w.rotate(date)
}

func (w *Writer) rotate(date string) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("close current log file: %w", err)
		}
	}

	path := filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}

	w.currentFile = file
	w.currentDate = date
	return nil
}

// Close closes the current log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return nil
	}
	err := w.currentFile.Close()
	w.currentFile = nil
	return err
}

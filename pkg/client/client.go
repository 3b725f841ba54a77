// Package client submits pipeline runs to the server, consumes the SSE
// stream, and reconciles it into observable per-stage state. Cancellation
// aborts the in-flight request; an aborted run is never reported as an
// error.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"oracle/pkg/logx"
	"oracle/pkg/reconcile"
	"oracle/pkg/sse"
)

// ErrConnectionLost reports that the stream ended without the done marker
// for a reason other than cancellation. It is a run-level condition,
// distinct from any individual stage's failure.
var ErrConnectionLost = errors.New("connection lost before stream finished")

// RunInput is the material for one run. ProfileDocument is required;
// ResumeText and ResumeDocument are optional, with the document taking
// precedence on the server.
type RunInput struct {
	ProfileDocument []byte
	ResumeText      string
	ResumeDocument  []byte
}

// runRequest mirrors the server's request payload.
type runRequest struct {
	LinkedInPDF string `json:"linkedin_pdf"`
	Resume      string `json:"resume"`
	ResumePDF   string `json:"resume_pdf"`
}

// HealthInfo is the server's health report.
type HealthInfo struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Client talks to one pipeline server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	estimator  reconcile.Estimator
	logger     *logx.Logger
}

// New creates a client for the server at baseURL. A nil estimator uses
// word-count progress.
func New(baseURL string, estimator reconcile.Estimator) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		estimator:  estimator,
		logger:     logx.NewLogger("client"),
	}
}

// Health queries the server's health endpoint.
func (c *Client) Health(ctx context.Context) (HealthInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return HealthInfo{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthInfo{}, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthInfo{}, fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return HealthInfo{}, fmt.Errorf("decode health response: %w", err)
	}
	return info, nil
}

// Run is one in-flight (or finished) pipeline run as seen by the client.
type Run struct {
	mu      sync.Mutex
	state   *reconcile.State
	updates chan reconcile.Snapshot
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	err     error
	logger  *logx.Logger
}

// StartRun submits the input and begins consuming the event stream. The
// returned Run's Updates channel delivers a fresh snapshot after every
// folded event; Done closes when the stream ends.
func (c *Client) StartRun(ctx context.Context, in RunInput) (*Run, error) {
	if len(in.ProfileDocument) == 0 {
		return nil, errors.New("profile document is required")
	}

	payload := runRequest{
		LinkedInPDF: base64.StdEncoding.EncodeToString(in.ProfileDocument),
		Resume:      in.ResumeText,
	}
	if len(in.ResumeDocument) > 0 {
		payload.ResumePDF = base64.StdEncoding.EncodeToString(in.ResumeDocument)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode run request: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, c.baseURL+"/api/run", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start run: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		cancel()
		return nil, decodeRejection(resp)
	}

	run := &Run{
		state:   reconcile.NewState(c.estimator),
		updates: make(chan reconcile.Snapshot, 8),
		done:    make(chan struct{}),
		cancel:  cancel,
		logger:  c.logger,
	}
	go run.readLoop(runCtx, resp.Body)
	return run, nil
}

// decodeRejection turns a non-200 run response into an error, preferring
// the structured error body.
func decodeRejection(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("run rejected: %s", body.Error)
	}
	return fmt.Errorf("run rejected with status %d", resp.StatusCode)
}

// Updates delivers a snapshot after every state change. Slow consumers
// only miss intermediate snapshots, never the latest one.
func (r *Run) Updates() <-chan reconcile.Snapshot {
	return r.updates
}

// Done closes when the stream has ended for any reason.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err returns the run-level failure, if any, once Done is closed. A
// cancelled run returns nil.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Snapshot returns the current reconciled state.
func (r *Run) Snapshot() reconcile.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

// Cancel aborts the run. Idempotent; cancelling a finished run is a no-op.
// The run is marked aborted, not errored, and events still in flight are
// discarded rather than folded.
func (r *Run) Cancel() {
	r.once.Do(func() {
		select {
		case <-r.done:
			return
		default:
		}
		r.mu.Lock()
		r.state.MarkAborted()
		r.mu.Unlock()
		r.cancel()
	})
}

// readLoop consumes the response body chunk by chunk, decoding and folding
// events until the done marker, cancellation, or transport loss.
func (r *Run) readLoop(ctx context.Context, body io.ReadCloser) {
	defer close(r.done)
	defer close(r.updates)
	defer body.Close()
	defer r.cancel()

	dec := sse.NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				r.mu.Lock()
				if r.state.Aborted() {
					r.mu.Unlock()
					return
				}
				r.state.Apply(ev)
				snap := r.state.Snapshot()
				r.mu.Unlock()
				r.push(snap)
			}
		}
		if dec.Done() {
			return
		}
		if err != nil {
			r.finish(ctx, err, dec.Done())
			return
		}
	}
}

// finish classifies how the stream ended: clean EOF after [DONE] is
// success, cancellation is an abort, anything else is transport loss.
func (r *Run) finish(ctx context.Context, readErr error, sawDone bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sawDone {
		return
	}
	if r.state.Aborted() || ctx.Err() != nil {
		r.state.MarkAborted()
		return
	}
	r.logger.Warn("stream ended early: %v", readErr)
	if errors.Is(readErr, io.EOF) {
		r.err = ErrConnectionLost
	} else {
		r.err = fmt.Errorf("%w: %v", ErrConnectionLost, readErr)
	}
}

// push delivers the snapshot without blocking, dropping the oldest queued
// snapshot if the consumer is behind.
func (r *Run) push(snap reconcile.Snapshot) {
	select {
	case r.updates <- snap:
		return
	default:
	}
	select {
	case <-r.updates:
	default:
	}
	select {
	case r.updates <- snap:
	default:
	}
}

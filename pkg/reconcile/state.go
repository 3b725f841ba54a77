// Package reconcile folds decoded pipeline events into per-stage client
// state: status, accumulated text, and a derived word count. All mutation
// goes through the pure Fold function; the State container only sequences
// folds and hands out read-only snapshots.
package reconcile

import (
	"strings"

	"oracle/pkg/logx"
	"oracle/pkg/pipeline"
)

// StageStatus is the client-side lifecycle state of one stage.
type StageStatus string

const (
	StatusIdle      StageStatus = "idle"
	StatusRunning   StageStatus = "running"
	StatusStreaming StageStatus = "streaming"
	StatusDone      StageStatus = "done"
	StatusError     StageStatus = "error"
)

// StageResult is the reconciled record for one stage. Text accumulates
// streamed tokens until the terminal event arrives; a completed event
// replaces it with the authoritative final output.
type StageResult struct {
	Status StageStatus
	Text   string
	Words  int
}

// Fold applies one event to a stage result and returns the next result.
// Transitions outside the defined set leave the result unchanged, so the
// consumer tolerates protocol evolution without crashing.
func Fold(r StageResult, ev pipeline.Event) StageResult {
	switch ev.Status {
	case pipeline.StatusStarted:
		if r.Status == StatusIdle {
			return StageResult{Status: StatusRunning}
		}
	case pipeline.StatusToken:
		if r.Status == StatusRunning || r.Status == StatusStreaming {
			text := r.Text + ev.Token
			return StageResult{Status: StatusStreaming, Text: text, Words: countWords(text)}
		}
	case pipeline.StatusCompleted:
		if r.Status == StatusRunning || r.Status == StatusStreaming {
			// The final output is authoritative and may differ from the
			// naive token concatenation.
			return StageResult{Status: StatusDone, Text: ev.Output, Words: countWords(ev.Output)}
		}
	case pipeline.StatusFailed:
		if r.Status == StatusRunning || r.Status == StatusStreaming {
			return StageResult{Status: StatusError, Text: ev.Error}
		}
	}
	return r
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

// State holds the reconciled results for all four stages of the current
// run, plus the aborted flag. It is not safe for concurrent use; the
// client applies events from its single read loop.
type State struct {
	stages    []pipeline.Stage
	results   map[string]StageResult
	estimator Estimator
	aborted   bool
	logger    *logx.Logger
}

// NewState creates a reset state over the fixed stage list. A nil
// estimator defaults to word-count progress.
func NewState(estimator Estimator) *State {
	if estimator == nil {
		estimator = WordCountEstimator{}
	}
	s := &State{
		stages:    pipeline.Stages(),
		estimator: estimator,
		logger:    logx.NewLogger("reconcile"),
	}
	s.Reset()
	return s
}

// Reset returns every stage to idle and clears the aborted flag. Called at
// the start of each run.
func (s *State) Reset() {
	s.results = make(map[string]StageResult, len(s.stages))
	for _, stage := range s.stages {
		s.results[stage.ID] = StageResult{Status: StatusIdle}
	}
	s.aborted = false
}

// Apply folds one decoded event into the owning stage's result. Events for
// unknown stages, and events for a stage whose predecessor has not reached
// a terminal state, are protocol violations: logged and dropped.
func (s *State) Apply(ev pipeline.Event) {
	r, ok := s.results[ev.Agent]
	if !ok {
		s.logger.Warn("dropping event for unknown stage %q", ev.Agent)
		return
	}
	if s.outOfOrder(ev.Agent) {
		s.logger.Warn("dropping out-of-order event for stage %q before predecessor finished", ev.Agent)
		return
	}
	s.results[ev.Agent] = Fold(r, ev)
}

// outOfOrder reports whether any lower-ordinal stage has not yet reached
// done or error.
func (s *State) outOfOrder(stageID string) bool {
	for _, stage := range s.stages {
		if stage.ID == stageID {
			return false
		}
		st := s.results[stage.ID].Status
		if st != StatusDone && st != StatusError {
			return true
		}
	}
	return false
}

// MarkAborted records a user-initiated cancellation. Aborted runs are not
// errors; incomplete stages keep their last state.
func (s *State) MarkAborted() {
	s.aborted = true
}

// Aborted reports whether the current run was cancelled.
func (s *State) Aborted() bool {
	return s.aborted
}

// StageSnapshot is the read-only view of one stage a renderer observes.
type StageSnapshot struct {
	ID       string
	Ordinal  int
	Label    string
	Result   StageResult
	Progress Progress
}

// Snapshot is the read-only view of the whole run.
type Snapshot struct {
	Stages  []StageSnapshot
	Aborted bool
}

// Snapshot copies the current state for rendering. The returned value does
// not alias any mutable state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Stages:  make([]StageSnapshot, 0, len(s.stages)),
		Aborted: s.aborted,
	}
	for _, stage := range s.stages {
		r := s.results[stage.ID]
		snap.Stages = append(snap.Stages, StageSnapshot{
			ID:       stage.ID,
			Ordinal:  stage.Ordinal,
			Label:    stage.Label,
			Result:   r,
			Progress: s.estimator.Estimate(stage, r),
		})
	}
	return snap
}

// Result returns the current result for one stage.
func (s *State) Result(stageID string) StageResult {
	return s.results[stageID]
}

// Package pipeline implements the four-stage outreach analysis pipeline:
// stage definitions, per-run context assembly, streaming stage execution,
// and the orchestrator that sequences stages and multiplexes their events
// onto a single outbound channel.
package pipeline

// Status is the lifecycle state carried by a pipeline event.
type Status string

const (
	StatusStarted   Status = "started"
	StatusToken     Status = "token"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status ends a stage's event sequence.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Event is one atomic unit on the wire: a stage identifier plus a status
// and its payload. Exactly one of Token, Output, or Error is set, matching
// the status.
type Event struct {
	Agent  string `json:"agent"`
	Status Status `json:"status"`
	Token  string `json:"token,omitempty"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// StageEvent is an event produced by the executor for a single stage
// invocation, before the orchestrator tags it with the stage identifier.
type StageEvent struct {
	Status Status
	Token  string
	Output string
	Err    string
}

// tagged converts a StageEvent into a wire Event for the named stage.
func (e StageEvent) tagged(stageID string) Event {
	return Event{
		Agent:  stageID,
		Status: e.Status,
		Token:  e.Token,
		Output: e.Output,
		Error:  e.Err,
	}
}

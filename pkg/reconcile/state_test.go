package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle/pkg/pipeline"
)

func TestFoldTransitions(t *testing.T) {
	tests := []struct {
		name  string
		start StageResult
		event pipeline.Event
		want  StageResult
	}{
		{
			name:  "idle to running on started",
			start: StageResult{Status: StatusIdle},
			event: pipeline.Event{Status: pipeline.StatusStarted},
			want:  StageResult{Status: StatusRunning},
		},
		{
			name:  "running to streaming on first token",
			start: StageResult{Status: StatusRunning},
			event: pipeline.Event{Status: pipeline.StatusToken, Token: "Hello"},
			want:  StageResult{Status: StatusStreaming, Text: "Hello", Words: 1},
		},
		{
			name:  "streaming accumulates tokens",
			start: StageResult{Status: StatusStreaming, Text: "Hello ", Words: 1},
			event: pipeline.Event{Status: pipeline.StatusToken, Token: "world"},
			want:  StageResult{Status: StatusStreaming, Text: "Hello world", Words: 2},
		},
		{
			name:  "streaming to error on failed",
			start: StageResult{Status: StatusStreaming, Text: "partial", Words: 1},
			event: pipeline.Event{Status: pipeline.StatusFailed, Error: "model unavailable"},
			want:  StageResult{Status: StatusError, Text: "model unavailable"},
		},
		{
			name:  "running to error without any tokens",
			start: StageResult{Status: StatusRunning},
			event: pipeline.Event{Status: pipeline.StatusFailed, Error: "connect refused"},
			want:  StageResult{Status: StatusError, Text: "connect refused"},
		},
		{
			name:  "token while idle is ignored",
			start: StageResult{Status: StatusIdle},
			event: pipeline.Event{Status: pipeline.StatusToken, Token: "stray"},
			want:  StageResult{Status: StatusIdle},
		},
		{
			name:  "token after done is ignored",
			start: StageResult{Status: StatusDone, Text: "final", Words: 1},
			event: pipeline.Event{Status: pipeline.StatusToken, Token: "late"},
			want:  StageResult{Status: StatusDone, Text: "final", Words: 1},
		},
		{
			name:  "unknown status is ignored",
			start: StageResult{Status: StatusRunning},
			event: pipeline.Event{Status: "telemetry"},
			want:  StageResult{Status: StatusRunning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fold(tt.start, tt.event)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFoldCompletedReplacesAccumulatedText(t *testing.T) {
	// The final output is authoritative: it replaces the token
	// concatenation, and the word count is recomputed from it.
	r := StageResult{Status: StatusStreaming, Text: "raw token soup without cleanup", Words: 5}
	got := Fold(r, pipeline.Event{Status: pipeline.StatusCompleted, Output: "Polished final brief."})

	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, "Polished final brief.", got.Text)
	assert.Equal(t, 3, got.Words)
}

func TestStateApplyAndSnapshot(t *testing.T) {
	s := NewState(nil)

	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusStarted})
	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusToken, Token: "one two "})
	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusCompleted, Output: "one two three"})
	s.Apply(pipeline.Event{Agent: pipeline.StageDeepResearch, Status: pipeline.StatusStarted})

	snap := s.Snapshot()
	require.Len(t, snap.Stages, 4)
	assert.Equal(t, StatusDone, snap.Stages[0].Result.Status)
	assert.Equal(t, 3, snap.Stages[0].Result.Words)
	assert.Equal(t, StatusRunning, snap.Stages[1].Result.Status)
	assert.Equal(t, StatusIdle, snap.Stages[2].Result.Status)
	assert.Equal(t, StatusIdle, snap.Stages[3].Result.Status)
	assert.False(t, snap.Aborted)
}

func TestStateDropsUnknownStage(t *testing.T) {
	s := NewState(nil)
	s.Apply(pipeline.Event{Agent: "sentiment_check", Status: pipeline.StatusStarted})

	for _, st := range s.Snapshot().Stages {
		assert.Equal(t, StatusIdle, st.Result.Status)
	}
}

func TestStateDropsOutOfOrderEvents(t *testing.T) {
	s := NewState(nil)

	// deep_research events before profile_summary finished violate serial
	// sequencing and must not be folded.
	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusStarted})
	s.Apply(pipeline.Event{Agent: pipeline.StageDeepResearch, Status: pipeline.StatusStarted})

	assert.Equal(t, StatusIdle, s.Result(pipeline.StageDeepResearch).Status)
}

func TestStateFailureLeavesLaterStagesIdle(t *testing.T) {
	s := NewState(nil)

	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusStarted})
	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusCompleted, Output: "done"})
	s.Apply(pipeline.Event{Agent: pipeline.StageDeepResearch, Status: pipeline.StatusStarted})
	s.Apply(pipeline.Event{Agent: pipeline.StageDeepResearch, Status: pipeline.StatusFailed, Error: "boom"})

	snap := s.Snapshot()
	errored, idle := 0, 0
	for _, st := range snap.Stages {
		switch st.Result.Status {
		case StatusError:
			errored++
		case StatusIdle:
			idle++
		}
	}
	assert.Equal(t, 1, errored)
	assert.Equal(t, 2, idle)
}

func TestStateReset(t *testing.T) {
	s := NewState(nil)
	s.Apply(pipeline.Event{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusStarted})
	s.MarkAborted()

	s.Reset()

	assert.False(t, s.Aborted())
	for _, st := range s.Snapshot().Stages {
		assert.Equal(t, StageResult{Status: StatusIdle}, st.Result)
	}
}

func TestStateAborted(t *testing.T) {
	s := NewState(nil)
	s.MarkAborted()
	assert.True(t, s.Aborted())
	assert.True(t, s.Snapshot().Aborted)
}

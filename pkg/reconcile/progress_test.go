package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle/pkg/pipeline"
)

func TestWordCountEstimator(t *testing.T) {
	stage := pipeline.Stage{ID: "test", ExpectedWords: 260}
	est := WordCountEstimator{}

	tests := []struct {
		name        string
		result      StageResult
		wantPercent int
		wantKnown   bool
	}{
		{name: "idle is zero", result: StageResult{Status: StatusIdle}, wantPercent: 0, wantKnown: true},
		{name: "done is full", result: StageResult{Status: StatusDone, Words: 10}, wantPercent: 100, wantKnown: true},
		{name: "error has no percentage", result: StageResult{Status: StatusError}, wantKnown: false},
		{name: "running floor before any token", result: StageResult{Status: StatusRunning}, wantPercent: 5, wantKnown: true},
		{name: "streaming floor at one word", result: StageResult{Status: StatusStreaming, Words: 1}, wantPercent: 5, wantKnown: true},
		{name: "halfway", result: StageResult{Status: StatusStreaming, Words: 130}, wantPercent: 50, wantKnown: true},
		{name: "capped below terminal", result: StageResult{Status: StatusStreaming, Words: 5000}, wantPercent: 95, wantKnown: true},
		{name: "exactly expected is still capped", result: StageResult{Status: StatusStreaming, Words: 260}, wantPercent: 95, wantKnown: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := est.Estimate(stage, tt.result)
			assert.Equal(t, tt.wantKnown, got.Known)
			if tt.wantKnown {
				assert.Equal(t, tt.wantPercent, got.Percent)
			}
		})
	}
}

func TestWordCountEstimatorNeverFullBeforeTerminal(t *testing.T) {
	stage := pipeline.Stage{ID: "test", ExpectedWords: 50}
	est := WordCountEstimator{}

	for words := 0; words <= 500; words += 10 {
		got := est.Estimate(stage, StageResult{Status: StatusStreaming, Words: words})
		assert.LessOrEqual(t, got.Percent, 95, "words=%d", words)
		assert.GreaterOrEqual(t, got.Percent, 5, "words=%d", words)
	}
}

func TestTokenCountEstimator(t *testing.T) {
	est, err := NewTokenCountEstimator()
	require.NoError(t, err)

	stage := pipeline.Stage{ID: "test", ExpectedWords: 260}

	assert.Equal(t, Progress{Percent: 100, Known: true}, est.Estimate(stage, StageResult{Status: StatusDone}))
	assert.Equal(t, Progress{}, est.Estimate(stage, StageResult{Status: StatusError}))

	short := est.Estimate(stage, StageResult{Status: StatusStreaming, Text: "a few words"})
	long := est.Estimate(stage, StageResult{Status: StatusStreaming, Text: "a considerably longer stretch of streamed markdown output with many more tokens in it"})
	assert.True(t, short.Known)
	assert.True(t, long.Known)
	assert.GreaterOrEqual(t, long.Percent, short.Percent)
	assert.LessOrEqual(t, long.Percent, 95)
}

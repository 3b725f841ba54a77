package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle/pkg/llm"
)

// silentClient opens a stream and then never produces anything, to
// exercise the stall timeout path.
type silentClient struct{}

func (silentClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{}, errors.New("not implemented")
}

func (silentClient) Stream(ctx context.Context, in llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (silentClient) ModelName() string { return "silent" }

func testContext(t *testing.T) *StageContext {
	t.Helper()
	sc, err := BuildContext(InputBundle{Profile: "profile text"}, nil)
	require.NoError(t, err)
	return sc
}

func collect(t *testing.T, events <-chan StageEvent) []StageEvent {
	t.Helper()
	var out []StageEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for executor events")
		}
	}
}

func TestExecutorEventSequence(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Content: "alpha beta gamma"})
	exec := NewExecutor(client, 0.3, 0, time.Second)

	events := collect(t, exec.Execute(context.Background(), Stages()[0], testContext(t)))
	require.GreaterOrEqual(t, len(events), 3)

	assert.Equal(t, StatusStarted, events[0].Status)

	var tokens strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		require.Equal(t, StatusToken, ev.Status)
		tokens.WriteString(ev.Token)
	}

	last := events[len(events)-1]
	require.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, "alpha beta gamma", last.Output)
	assert.Equal(t, last.Output, tokens.String(), "tokens concatenate to the final output")
}

func TestExecutorFailureIsWellFormed(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Err: errors.New("upstream refused")})
	exec := NewExecutor(client, 0.3, 0, time.Second)

	events := collect(t, exec.Execute(context.Background(), Stages()[0], testContext(t)))

	// Zero tokens were produced, but the sequence is still started then failed.
	require.Len(t, events, 2)
	assert.Equal(t, StatusStarted, events[0].Status)
	assert.Equal(t, StatusFailed, events[1].Status)
	assert.Contains(t, events[1].Err, "upstream refused")
}

func TestExecutorStallTimeout(t *testing.T) {
	exec := NewExecutor(silentClient{}, 0.3, 0, 50*time.Millisecond)

	events := collect(t, exec.Execute(context.Background(), Stages()[0], testContext(t)))

	require.Len(t, events, 2)
	assert.Equal(t, StatusStarted, events[0].Status)
	assert.Equal(t, StatusFailed, events[1].Status)
	assert.Contains(t, events[1].Err, "timed out")
}

func TestExecutorCancellation(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Content: strings.Repeat("word ", 200)})
	client.TokenDelay = 5 * time.Millisecond
	exec := NewExecutor(client, 0.3, 0, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	events := exec.Execute(ctx, Stages()[0], testContext(t))

	// Read a couple of events, then cancel mid-stream.
	<-events
	<-events
	cancel()

	var after []StageEvent
	for ev := range events {
		after = append(after, ev)
	}
	for _, ev := range after {
		assert.False(t, ev.Status.Terminal(), "no terminal event after cancellation, got %v", ev.Status)
	}
}

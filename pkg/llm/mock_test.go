package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ch <-chan StreamChunk) (content string, done bool, err error) {
	t.Helper()
	var sb strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			return sb.String(), false, chunk.Error
		}
		if chunk.Done {
			return sb.String(), true, nil
		}
		sb.WriteString(chunk.Content)
	}
	return sb.String(), false, nil
}

func TestMockClientScriptedOrder(t *testing.T) {
	client := NewMockClient(
		MockResponse{Content: "first reply"},
		MockResponse{Content: "second reply"},
	)

	resp, err := client.Complete(t.Context(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "first reply", resp.Content)

	resp, err = client.Complete(t.Context(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second reply", resp.Content)

	// Exhausted scripts repeat the last entry.
	resp, err = client.Complete(t.Context(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second reply", resp.Content)

	assert.Equal(t, 3, client.CallCount())
}

func TestMockClientStreamsWordChunks(t *testing.T) {
	client := NewMockClient(MockResponse{Content: "alpha beta gamma"})

	ch, err := client.Stream(t.Context(), CompletionRequest{})
	require.NoError(t, err)

	content, done, streamErr := drain(t, ch)
	require.NoError(t, streamErr)
	assert.True(t, done)
	assert.Equal(t, "alpha beta gamma", content)
}

func TestMockClientStreamError(t *testing.T) {
	client := NewMockClient(MockResponse{Err: errors.New("scripted failure")})

	ch, err := client.Stream(t.Context(), CompletionRequest{})
	require.NoError(t, err)

	_, done, streamErr := drain(t, ch)
	assert.False(t, done)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "scripted failure")
}

func TestMockClientRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewMockClient(MockResponse{Content: "never delivered"})
	_, err := client.Stream(ctx, CompletionRequest{})
	assert.Error(t, err)

	_, err = client.Complete(ctx, CompletionRequest{})
	assert.Error(t, err)
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]CompletionMessage{
		NewSystemMessage("rules"),
		NewUserMessage("question"),
		{Role: RoleAssistant, Content: "answer"},
		NewSystemMessage("more rules"),
	})

	assert.Equal(t, "rules\n\nmore rules", system)
	require.Len(t, rest, 2)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, RoleAssistant, rest[1].Role)
}

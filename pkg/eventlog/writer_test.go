package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle/pkg/pipeline"
)

func todayFile(dir string) string {
	return filepath.Join(dir, "events-"+time.Now().Format("2006-01-02")+".jsonl")
}

func TestNewWriterCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	w, err := NewWriter(dir, 24)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(todayFile(dir))
	assert.NoError(t, err)
}

func TestWriteEvent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, 24)
	require.NoError(t, err)
	defer w.Close()

	events := []pipeline.Event{
		{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusStarted},
		{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusToken, Token: "hello "},
		{Agent: pipeline.StageProfileSummary, Status: pipeline.StatusCompleted, Output: "hello world"},
		{Agent: pipeline.StageDeepResearch, Status: pipeline.StatusFailed, Error: "boom"},
	}
	for _, ev := range events {
		require.NoError(t, w.WriteEvent("run-1", ev))
	}

	f, err := os.Open(todayFile(dir))
	require.NoError(t, err)
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, records, 4)

	assert.Equal(t, "run-1", records[0].RunID)
	assert.Equal(t, pipeline.StatusStarted, records[0].Status)

	// Token payloads are recorded by length only.
	assert.Equal(t, len("hello "), records[1].TokenLen)

	assert.Equal(t, "hello world", records[2].Output)
	assert.Equal(t, "boom", records[3].Error)
}

func TestWriteEventAppends(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, 24)
	require.NoError(t, err)
	require.NoError(t, w.WriteEvent("run-1", pipeline.Event{Agent: pipeline.StageStrategy, Status: pipeline.StatusStarted}))
	require.NoError(t, w.Close())

	// Reopening appends rather than truncating.
	w, err = NewWriter(dir, 24)
	require.NoError(t, err)
	require.NoError(t, w.WriteEvent("run-2", pipeline.Event{Agent: pipeline.StageStrategy, Status: pipeline.StatusStarted}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(todayFile(dir))
	require.NoError(t, err)
	lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1
	assert.Equal(t, 2, lines)
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := NewWriter(t.TempDir(), 24)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

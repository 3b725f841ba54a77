package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oracle/pkg/llm"
	"oracle/pkg/logx"
)

// DefaultStallTimeout bounds how long a stage may go without producing any
// event before it is failed with a timeout error.
const DefaultStallTimeout = 120 * time.Second

// Executor invokes a single stage against the LLM client and yields its
// event sequence: one started event, then incremental tokens, then exactly
// one terminal event.
type Executor struct {
	client       llm.Client
	temperature  float32
	maxTokens    int
	stallTimeout time.Duration
	logger       *logx.Logger
}

// NewExecutor creates a stage executor. A zero or negative stallTimeout
// falls back to DefaultStallTimeout.
func NewExecutor(client llm.Client, temperature float32, maxTokens int, stallTimeout time.Duration) *Executor {
	if stallTimeout <= 0 {
		stallTimeout = DefaultStallTimeout
	}
	return &Executor{
		client:       client,
		temperature:  temperature,
		maxTokens:    maxTokens,
		stallTimeout: stallTimeout,
		logger:       logx.NewLogger("executor"),
	}
}

// Execute runs one stage and returns its event channel. The started event
// is emitted before the model call is issued. The channel is closed after
// the terminal event, or without one if ctx is cancelled first.
func (e *Executor) Execute(ctx context.Context, stage Stage, sc *StageContext) <-chan StageEvent {
	out := make(chan StageEvent)

	go func() {
		defer close(out)

		if !send(ctx, out, StageEvent{Status: StatusStarted}) {
			return
		}

		system, user := stage.Prompts(sc)
		req := llm.CompletionRequest{
			Messages: []llm.CompletionMessage{
				llm.NewSystemMessage(system),
				llm.NewUserMessage(user),
			},
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		}

		stream, err := e.client.Stream(ctx, req)
		if err != nil {
			e.logger.Error("stage %s: stream open failed: %v", stage.ID, err)
			send(ctx, out, StageEvent{Status: StatusFailed, Err: err.Error()})
			return
		}

		var text strings.Builder
		stall := time.NewTimer(e.stallTimeout)
		defer stall.Stop()

		for {
			select {
			case chunk, ok := <-stream:
				if !ok {
					// Provider closed without a done marker; the
					// accumulated text is all we will get.
					send(ctx, out, StageEvent{Status: StatusCompleted, Output: text.String()})
					return
				}
				if chunk.Error != nil {
					e.logger.Error("stage %s: stream error: %v", stage.ID, chunk.Error)
					send(ctx, out, StageEvent{Status: StatusFailed, Err: chunk.Error.Error()})
					return
				}
				if chunk.Done {
					send(ctx, out, StageEvent{Status: StatusCompleted, Output: text.String()})
					return
				}
				text.WriteString(chunk.Content)
				if !send(ctx, out, StageEvent{Status: StatusToken, Token: chunk.Content}) {
					return
				}
				if !stall.Stop() {
					select {
					case <-stall.C:
					default:
					}
				}
				stall.Reset(e.stallTimeout)

			case <-stall.C:
				e.logger.Warn("stage %s: no output for %s, failing", stage.ID, e.stallTimeout)
				send(ctx, out, StageEvent{
					Status: StatusFailed,
					Err:    fmt.Sprintf("stage timed out after %s without output", e.stallTimeout),
				})
				return

			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// send delivers an event unless the run has been cancelled. It reports
// whether the event was delivered.
func send(ctx context.Context, out chan<- StageEvent, ev StageEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

package pipeline

import (
	"context"

	"oracle/pkg/logx"
)

// Orchestrator drives the executor across the ordered stage list, serially,
// re-tagging each stage's events with its identifier and forwarding them
// onto one outbound channel. A failed stage halts the pipeline; later
// stages never start.
type Orchestrator struct {
	executor *Executor
	stages   []Stage
	logger   *logx.Logger
}

// NewOrchestrator creates an orchestrator over the fixed stage list.
func NewOrchestrator(executor *Executor) *Orchestrator {
	return &Orchestrator{
		executor: executor,
		stages:   Stages(),
		logger:   logx.NewLogger("orchestrator"),
	}
}

// Run validates the input bundle and starts the pipeline. Events are
// delivered on the returned channel in strict order; the channel closes
// after the last stage's terminal event, after a stage failure, or when
// ctx is cancelled. ErrMissingProfile is returned before any stage runs
// if the profile text is empty.
func (o *Orchestrator) Run(ctx context.Context, runID string, in InputBundle) (<-chan Event, error) {
	// Validate eagerly so the caller can reject the request before any
	// stage output is streamed.
	if _, err := BuildContext(in, nil); err != nil {
		return nil, err
	}

	out := make(chan Event)

	go func() {
		defer close(out)

		completed := make(map[string]string, len(o.stages))

		for _, stage := range o.stages {
			sc, err := BuildContext(in, completed)
			if err != nil {
				// Unreachable after the eager check, but a failed
				// event keeps the stream well-formed if it happens.
				o.forward(ctx, out, Event{Agent: stage.ID, Status: StatusFailed, Error: err.Error()})
				return
			}

			o.logger.Info("run %s: stage %s starting", runID, stage.ID)

			var finalText string
			failed := false

			for ev := range o.executor.Execute(ctx, stage, sc) {
				if !o.forward(ctx, out, ev.tagged(stage.ID)) {
					return
				}
				switch ev.Status {
				case StatusCompleted:
					finalText = ev.Output
				case StatusFailed:
					failed = true
				}
			}

			if ctx.Err() != nil {
				o.logger.Info("run %s: cancelled during stage %s", runID, stage.ID)
				return
			}
			if failed {
				o.logger.Warn("run %s: stage %s failed, halting pipeline", runID, stage.ID)
				return
			}

			completed[stage.ID] = finalText
		}

		o.logger.Info("run %s: all stages completed", runID)
	}()

	return out, nil
}

func (o *Orchestrator) forward(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

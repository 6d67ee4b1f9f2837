package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/v0xg/macroweb/internal/diag"
	"github.com/v0xg/macroweb/internal/macro"
	"github.com/v0xg/macroweb/internal/waiter"
)

// Options configures execution behavior
type Options struct {
	Wait          waiter.Options // Element wait for click and scroll
	SnapshotLimit int            // Characters of body markup in not-found diagnostics
	Capturer      Capturer       // Optional, saves a picture on not-found
}

// Runner executes macros step by step. It keeps no state between runs.
type Runner struct {
	dispatcher *Dispatcher
	sink       diag.Sink
	status     diag.Status
	logger     *zap.Logger
}

// NewRunner creates a runner for page
func NewRunner(page Page, sink diag.Sink, status diag.Status, opts Options, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		dispatcher: NewDispatcher(page, sink, status, opts, logger),
		sink:       sink,
		status:     status,
		logger:     logger,
	}
}

// Run executes every step of m in order. A failing step is reported and the
// run moves on; the returned summary holds one result per step.
func (r *Runner) Run(ctx context.Context, m macro.Macro) Summary {
	summary := Summary{
		RunID:   uuid.NewString(),
		Results: make([]StepResult, 0, len(m)),
	}
	logger := r.logger.With(zap.String("run_id", summary.RunID))
	if scoped, ok := r.sink.(diag.RunScoped); ok {
		scoped.SetRunID(summary.RunID)
	}
	logger.Info("macro run started", zap.Int("steps", len(m)))

	r.sink.Logf("--- Macro run started ---")
	for i, step := range m {
		index := i + 1
		r.sink.Logf("Step %d/%d: %s", index, len(m), step)

		res := r.runStep(ctx, index, step)
		summary.Results = append(summary.Results, res)

		logger.Debug("step finished",
			zap.Int("step", index),
			zap.String("action", string(step.Action)),
			zap.Stringer("outcome", res.Outcome),
			zap.Int("matched", res.Matched),
			zap.Error(res.Err))
	}
	r.sink.Logf("--- Macro run complete ---")

	logger.Info("macro run complete",
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("not_found", summary.NotFound()),
		zap.Int("failed", summary.Failed()))
	return summary
}

// RunSource parses a macro buffer and runs it. Invalid input is reported on
// the status line and nothing runs.
func (r *Runner) RunSource(ctx context.Context, source []byte) (Summary, error) {
	m, err := macro.Parse(source)
	if err != nil {
		r.status.Set("Invalid macro JSON", true)
		return Summary{}, err
	}

	r.status.Set("Running macro...", false)
	summary := r.Run(ctx, m)
	r.status.Set("Macro complete!", false)
	return summary, nil
}

// runStep waits out the step delay and dispatches it. Anything that slips
// past the dispatcher is caught here so the loop always continues.
func (r *Runner) runStep(ctx context.Context, index int, step macro.Step) (res StepResult) {
	res = StepResult{Index: index, Step: step}

	defer func() {
		if p := recover(); p != nil {
			res.Outcome = Failed
			res.Err = fmt.Errorf("panic: %v", p)
			r.status.Set(fmt.Sprintf("Macro step failed: %v", res.Err), true)
			r.sink.Logf("Step error: %v", res.Err)
		}
	}()

	if err := sleep(ctx, step.Wait()); err != nil {
		res.Outcome = Failed
		res.Err = err
		r.status.Set(fmt.Sprintf("Macro step failed: %v", err), true)
		r.sink.Logf("Step error: %v", err)
		return res
	}

	return r.dispatcher.Dispatch(ctx, index, step)
}

// sleep pauses for d unless ctx ends first. A zero delay does not suspend.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

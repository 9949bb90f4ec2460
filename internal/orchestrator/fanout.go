package orchestrator

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// FanOut executes every stage of one rank concurrently and joins on all of
// them. Each member receives the same context string; members never see one
// another's output. If any member fails, the derived context is canceled so
// the remaining in-flight calls are abandoned promptly.
type FanOut struct {
	exec       *Executor
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut dispatching through exec.
// onProgress is called synchronously from each goroutine; it may be nil.
func NewFanOut(exec *Executor, onProgress func(ProgressEvent)) *FanOut {
	return &FanOut{
		exec:       exec,
		onProgress: onProgress,
	}
}

// Run dispatches every stage in group and waits for all of them to settle.
//
// On success the results are returned in group order regardless of the order
// in which the calls finished. On failure no results are returned; the error
// is the first genuine failure in group order, where cancellations caused by
// a sibling's failure do not count as genuine.
func (f *FanOut) Run(ctx context.Context, runID string, group []StageDefinition, topic, contextText string) ([]StageResult, error) {
	results := make([]StageResult, len(group))
	errs := make([]error, len(group))
	g, gctx := errgroup.WithContext(ctx)

	for i, def := range group {
		f.emit(runID, def, ProgressPending, "")

		g.Go(func() error {
			f.emit(runID, def, ProgressWorking, "")

			res, err := f.exec.Execute(gctx, def, topic, contextText)
			if err != nil {
				errs[i] = err
				f.emit(runID, def, ProgressFailed, err.Error())
				return err // cancels the siblings
			}

			results[i] = res
			f.emit(runID, def, ProgressComplete, "")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, firstFailure(ctx, errs)
	}
	return results, nil
}

// firstFailure picks the failure to report for a rank. Errors that are only
// cancellations of gctx, while the parent ctx is still live, were caused by a
// sibling and are skipped in favour of the sibling's own error.
func firstFailure(ctx context.Context, errs []error) error {
	var fallback error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if fallback == nil {
			fallback = err
		}
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			continue
		}
		return err
	}
	return fallback
}

// emit sends a progress event if a callback is registered.
func (f *FanOut) emit(runID string, def StageDefinition, status ProgressStatus, msg string) {
	if f.onProgress == nil {
		return
	}
	f.onProgress(ProgressEvent{
		RunID:   runID,
		Rank:    def.Rank,
		Stage:   def.ID,
		Name:    def.DisplayName,
		Status:  status,
		Message: msg,
	})
}

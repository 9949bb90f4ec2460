package orchestrator

import (
	"context"

	"github.com/google/uuid"
)

// Run is the handle for one pipeline execution. It is created by Start and
// finishes exactly once: with the run's last snapshot and nil on success, a
// *GenerationError or context error on failure, or ErrSuperseded when a later
// Start or a Reset invalidated it.
type Run struct {
	id     string
	topic  string
	cancel context.CancelFunc
	done   chan struct{}

	result Snapshot
	err    error
}

func newRun(topic string, cancel context.CancelFunc) *Run {
	return &Run{
		id:     uuid.NewString(),
		topic:  topic,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the run's unique identifier.
func (r *Run) ID() string {
	return r.id
}

// Topic returns the topic the run was started with.
func (r *Run) Topic() string {
	return r.topic
}

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel aborts the run. It fails with context.Canceled unless it has
// already finished.
func (r *Run) Cancel() {
	r.cancel()
}

// Wait blocks until the run finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (r *Run) finish(snap Snapshot, err error) {
	r.result = snap
	r.err = err
	close(r.done)
}

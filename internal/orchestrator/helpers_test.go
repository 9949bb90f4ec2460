package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"
)

// generateCall records one Generate invocation.
type generateCall struct {
	Stage   StageID
	Topic   string
	Context string
}

// fakeGenerator records every call and delegates to fn when set. Without fn
// it returns "out:<stage>".
type fakeGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	fn    func(ctx context.Context, stage StageID, topic, contextText string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, stage StageID, topic, contextText string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{Stage: stage, Topic: topic, Context: contextText})
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, stage, topic, contextText)
	}
	return "out:" + string(stage), nil
}

func (f *fakeGenerator) callsFor(stage StageID) []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []generateCall
	for _, c := range f.calls {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recorder collects published snapshots.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func (r *recorder) latest() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}

func (r *recorder) transitions() []Transition {
	snaps := r.all()
	out := make([]Transition, len(snaps))
	for i, s := range snaps {
		out[i] = s.Transition
	}
	return out
}

// testContext returns a context that is canceled when the test ends or after
// a generous timeout.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

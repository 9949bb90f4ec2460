package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dusk-indust/zappy/internal/logging"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry replaces the default six-stage registry.
func WithRegistry(reg *Registry) Option {
	return func(p *Pipeline) {
		p.registry = reg
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithSupersede controls what Start does while a run is active: true (the
// default) abandons the active run, false rejects with ErrRunInProgress.
func WithSupersede(enabled bool) Option {
	return func(p *Pipeline) {
		p.supersede = enabled
	}
}

// WithClock sets the time source for result and snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithProgressBuffer sets the size of the progress event channel.
func WithProgressBuffer(size int) Option {
	return func(p *Pipeline) {
		p.progressSize = size
	}
}

// Pipeline implements Orchestrator. It walks the registry rank by rank,
// delegating each rank to a FanOut, accumulating context between ranks and
// publishing a Snapshot at every transition.
type Pipeline struct {
	registry     *Registry
	exec         *Executor
	fanout       *FanOut
	progress     *ProgressReporter
	logger       *slog.Logger
	supersede    bool
	now          func() time.Time
	progressSize int

	// transMu is held across a state change and the delivery of its
	// snapshot, so subscribers observe snapshots in state order.
	transMu sync.Mutex

	mu      sync.Mutex // guards state and current
	state   runState
	current *Run

	subs subscribers
}

// NewPipeline creates a Pipeline that generates stage content with gen.
func NewPipeline(gen Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry:  DefaultRegistry(),
		logger:    logging.Nop(),
		supersede: true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.exec = NewExecutor(gen)
	p.exec.now = p.now
	p.progress = NewProgressReporter(p.progressSize)
	p.fanout = NewFanOut(p.exec, p.progress.Emit)
	p.state = idleState(p.now())
	return p
}

// Registry returns the stage registry the pipeline runs.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// ---------------------------------------------------------------------------
// Orchestrator interface
// ---------------------------------------------------------------------------

// Start begins a run for topic. The returned Run finishes when the pipeline
// succeeds, fails or is superseded.
func (p *Pipeline) Start(ctx context.Context, topic string) (*Run, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, ErrEmptyTopic
	}

	p.transMu.Lock()
	defer p.transMu.Unlock()

	p.mu.Lock()
	if p.current != nil && p.state.phase == PhaseRunning {
		if !p.supersede {
			p.mu.Unlock()
			return nil, ErrRunInProgress
		}
		p.logger.Info("superseding active run", "run_id", p.current.id)
		p.current.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(topic, cancel)
	p.current = run
	p.state = runState{
		runID:      run.id,
		topic:      topic,
		phase:      PhaseRunning,
		transition: TransitionStart,
		updatedAt:  p.now(),
	}
	snap := p.state.snapshot(p.registry.Len())
	p.mu.Unlock()

	p.logger.Info("run started", "run_id", run.id, "topic", topic)
	p.subs.publish(p.logger, snap)

	go p.execute(runCtx, run, snap)
	return run, nil
}

// Run starts a run and waits for it to finish.
func (p *Pipeline) Run(ctx context.Context, topic string) (Snapshot, error) {
	run, err := p.Start(ctx, topic)
	if err != nil {
		return Snapshot{}, err
	}
	return run.Wait(ctx)
}

// Reset returns the pipeline to idle, abandoning any run in flight. Results
// that the abandoned run produces afterwards are discarded.
func (p *Pipeline) Reset() {
	p.transMu.Lock()
	defer p.transMu.Unlock()

	p.mu.Lock()
	if p.current != nil {
		p.current.cancel()
		p.current = nil
	}
	p.state = idleState(p.now())
	snap := p.state.snapshot(p.registry.Len())
	p.mu.Unlock()

	p.subs.publish(p.logger, snap)
}

// Snapshot returns the current run state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.snapshot(p.registry.Len())
}

// Subscribe registers fn for every snapshot published from now on. fn runs
// synchronously on the goroutine performing the transition, so it must not
// call Start or Reset.
func (p *Pipeline) Subscribe(fn func(Snapshot)) func() {
	return p.subs.add(fn)
}

// Progress returns a channel that emits per-stage progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close abandons any run in flight and closes the progress channel.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.current != nil {
		p.current.cancel()
	}
	p.mu.Unlock()
	p.progress.Close()
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// execute drives run through every rank. Each state change goes through
// transition, which refuses changes from a run that is no longer current.
func (p *Pipeline) execute(ctx context.Context, run *Run, last Snapshot) {
	logger := p.logger.With("run_id", run.id)

	var runErr error
	defer func() {
		run.cancel()
		run.finish(last, runErr)
	}()

	step := func(tr Transition, mutate func(*runState)) bool {
		snap, ok := p.transition(run, tr, mutate)
		if !ok {
			logger.Info("run no longer current, discarding", "transition", string(tr))
			runErr = ErrSuperseded
			return false
		}
		last = snap
		return true
	}
	fail := func(tr Transition, err error) {
		if step(tr, func(s *runState) {
			s.phase = PhaseFailed
			s.active = nil
			s.err = err
		}) {
			runErr = err
		}
	}

	acc := NewAccumulator(p.registry)
	groups := p.registry.Groups()

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			fail(TransitionRunFailed, err)
			return
		}

		rank := group[0].Rank
		ids := make([]StageID, len(group))
		for j, def := range group {
			ids[j] = def.ID
		}

		if !step(TransitionEnterRank, func(s *runState) {
			s.rank = rank
			s.active = ids
		}) {
			return
		}
		logger.Info("rank dispatched", "rank", rank, "stages", ids)

		results, err := p.fanout.Run(ctx, run.id, group, run.topic, acc.Render())
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				logger.Info("run canceled", "rank", rank)
				fail(TransitionRankFailed, cerr)
				return
			}
			stage, _ := FailedStage(err)
			logger.Warn("rank failed", "rank", rank, "stage", string(stage), "error", err)
			fail(TransitionRankFailed, err)
			return
		}

		if i == len(groups)-1 {
			if step(TransitionRunSucceeded, func(s *runState) {
				s.completed = append(s.completed, results...)
				s.active = nil
				s.final = results[0].Content
				s.phase = PhaseSucceeded
			}) {
				logger.Info("run succeeded", "stages", len(last.Completed))
			}
			return
		}

		for _, res := range results {
			if err := acc.Append(res); err != nil {
				fail(TransitionRunFailed, err)
				return
			}
		}

		if !step(TransitionRankSucceeded, func(s *runState) {
			s.completed = append(s.completed, results...)
			s.active = nil
		}) {
			return
		}
		logger.Debug("rank succeeded", "rank", rank)
	}
}

// transition applies mutate to the state if run is still current, then
// publishes the resulting snapshot. It reports false for superseded runs.
func (p *Pipeline) transition(run *Run, tr Transition, mutate func(*runState)) (Snapshot, bool) {
	p.transMu.Lock()
	defer p.transMu.Unlock()

	p.mu.Lock()
	if p.current != run {
		p.mu.Unlock()
		return Snapshot{}, false
	}
	mutate(&p.state)
	p.state.transition = tr
	p.state.updatedAt = p.now()
	snap := p.state.snapshot(p.registry.Len())
	p.mu.Unlock()

	p.subs.publish(p.logger, snap)
	return snap, true
}

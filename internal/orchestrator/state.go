package orchestrator

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Phase is the lifecycle state of the orchestrator's current run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Transition names the state-machine edge that produced a Snapshot.
type Transition string

const (
	TransitionReset         Transition = "reset"
	TransitionStart         Transition = "start"
	TransitionEnterRank     Transition = "enter-rank"
	TransitionRankSucceeded Transition = "rank-succeeded"
	TransitionRankFailed    Transition = "rank-failed"
	TransitionRunSucceeded  Transition = "run-succeeded"
	TransitionRunFailed     Transition = "run-failed"
)

// Snapshot is an immutable view of the run state, published at every
// transition. Slices are copies owned by the receiver.
type Snapshot struct {
	RunID        string
	Topic        string
	Phase        Phase
	Transition   Transition
	Rank         int // rank of the current or last dispatched group; 0 before the first
	ActiveStages []StageID
	Completed    []StageResult
	FinalOutput  string
	Err          error
	TotalStages  int
	UpdatedAt    time.Time
}

// IsRunning reports whether the run is still executing.
func (s Snapshot) IsRunning() bool {
	return s.Phase == PhaseRunning
}

// HasFinalOutput reports whether FinalOutput holds the terminal stage's
// content. It is true exactly when the run succeeded.
func (s Snapshot) HasFinalOutput() bool {
	return s.Phase == PhaseSucceeded
}

// ProgressRatio is the fraction of stages completed, in [0, 1].
func (s Snapshot) ProgressRatio() float64 {
	if s.TotalStages == 0 {
		return 0
	}
	return float64(len(s.Completed)) / float64(s.TotalStages)
}

// ErrMessage returns the terminal error's message, or "".
func (s Snapshot) ErrMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// IsActive reports whether id is currently executing.
func (s Snapshot) IsActive(id StageID) bool {
	for _, a := range s.ActiveStages {
		if a == id {
			return true
		}
	}
	return false
}

// Result returns the completed result for id, if any.
func (s Snapshot) Result(id StageID) (StageResult, bool) {
	for _, r := range s.Completed {
		if r.Stage == id {
			return r, true
		}
	}
	return StageResult{}, false
}

// runState is the single mutable run state. Only the orchestrator writes it,
// under its mutex.
type runState struct {
	runID      string
	topic      string
	phase      Phase
	transition Transition
	rank       int
	active     []StageID
	completed  []StageResult
	final      string
	err        error
	updatedAt  time.Time
}

func idleState(now time.Time) runState {
	return runState{phase: PhaseIdle, transition: TransitionReset, updatedAt: now}
}

func (s *runState) snapshot(total int) Snapshot {
	snap := Snapshot{
		RunID:       s.runID,
		Topic:       s.topic,
		Phase:       s.phase,
		Transition:  s.transition,
		Rank:        s.rank,
		FinalOutput: s.final,
		Err:         s.err,
		TotalStages: total,
		UpdatedAt:   s.updatedAt,
	}
	if len(s.active) > 0 {
		snap.ActiveStages = make([]StageID, len(s.active))
		copy(snap.ActiveStages, s.active)
	}
	if len(s.completed) > 0 {
		snap.Completed = make([]StageResult, len(s.completed))
		copy(snap.Completed, s.completed)
	}
	return snap
}

// subscribers is a synchronous, ordered observer list.
type subscribers struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

func (s *subscribers) add(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *subscribers) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// publish calls every subscriber in registration order. A panicking
// subscriber is logged and skipped.
func (s *subscribers) publish(logger *slog.Logger, snap Snapshot) {
	s.mu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		safeCall(logger, sub.fn, snap)
	}
}

func safeCall(logger *slog.Logger, fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot subscriber panicked",
				"transition", string(snap.Transition),
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn(snap)
}

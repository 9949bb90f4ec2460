// Package orchestrator drives the content pipeline: a fixed, ranked set of
// stages executed in order, where stages sharing a rank run concurrently and
// every rank consumes the context accumulated by the ranks before it.
package orchestrator

import (
	"context"
	"time"
)

// StageID identifies a pipeline stage. The set of identities is closed.
type StageID string

const (
	StageResearcher StageID = "researcher"
	StageWriter     StageID = "writer"
	StageCompliance StageID = "compliance"
	StageEnhancer   StageID = "enhancer"
	StageSEO        StageID = "seo"
	StageEditor     StageID = "editor"
)

var stageIDs = [...]StageID{
	StageResearcher,
	StageWriter,
	StageCompliance,
	StageEnhancer,
	StageSEO,
	StageEditor,
}

// StageIDs returns every known stage identity in default pipeline order.
func StageIDs() []StageID {
	out := make([]StageID, len(stageIDs))
	copy(out, stageIDs[:])
	return out
}

// Valid reports whether id is one of the known stage identities.
func (id StageID) Valid() bool {
	for _, known := range stageIDs {
		if id == known {
			return true
		}
	}
	return false
}

func (id StageID) String() string {
	return string(id)
}

// StageResult holds the output of one successful stage execution.
type StageResult struct {
	Stage       StageID
	Content     string
	CompletedAt time.Time
}

// Generator is the external generation service. Implementations own
// latency, timeout and retry policy; the orchestrator calls Generate exactly
// once per stage per run.
type Generator interface {
	Generate(ctx context.Context, stage StageID, topic, contextText string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, stage StageID, topic, contextText string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, stage StageID, topic, contextText string) (string, error) {
	return f(ctx, stage, topic, contextText)
}

// ProgressEvent is emitted for each stage as it moves through a rank.
type ProgressEvent struct {
	RunID   string
	Rank    int
	Stage   StageID
	Name    string // display name of the stage
	Status  ProgressStatus
	Message string
}

// ProgressStatus is the state of a stage within its rank.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Orchestrator coordinates pipeline runs. It holds exactly one run state at a
// time; a new Start or a Reset discards the previous one.
type Orchestrator interface {
	// Start validates topic, resets the run state and begins executing the
	// pipeline in the background. Blank topics are rejected with
	// ErrEmptyTopic and leave the state untouched.
	Start(ctx context.Context, topic string) (*Run, error)

	// Run starts a run and waits for it to reach a terminal state.
	Run(ctx context.Context, topic string) (Snapshot, error)

	// Reset discards the current run state, abandoning any run in flight.
	Reset()

	// Snapshot returns the current run state.
	Snapshot() Snapshot

	// Subscribe registers fn to receive every published snapshot, in order.
	// The returned function unsubscribes.
	Subscribe(fn func(Snapshot)) (unsubscribe func())

	// Progress returns a channel that emits per-stage progress events.
	Progress() <-chan ProgressEvent
}

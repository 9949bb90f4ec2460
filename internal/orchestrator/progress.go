package orchestrator

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultProgressBuffer is the channel size used by NewProgressReporter when
// given a non-positive size.
const DefaultProgressBuffer = 64

// ProgressReporter fans stage progress events out through a buffered
// channel. It is an informational log stream: when the channel is full,
// events are dropped. Observers that need every state change subscribe to
// snapshots instead (see Orchestrator.Subscribe).
type ProgressReporter struct {
	mu     sync.RWMutex
	ch     chan ProgressEvent
	closed bool
}

// NewProgressReporter creates a ProgressReporter with a channel of the given size.
func NewProgressReporter(size int) *ProgressReporter {
	if size <= 0 {
		size = DefaultProgressBuffer
	}
	return &ProgressReporter{
		ch: make(chan ProgressEvent, size),
	}
}

// Emit sends a progress event without blocking. Events emitted after Close
// or while the channel is full are dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. It is idempotent.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if !pr.closed {
		pr.closed = true
		close(pr.ch)
	}
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	name := event.Name
	if name == "" {
		name = event.Stage.String()
	}
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", name)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", name)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete", name)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", name, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", name)
	}
}

// FormatRankHeader formats a rank header for display.
// Returns: "[{topic}] Rank {N}: {name}, {name}"
func FormatRankHeader(topic string, group []StageDefinition) string {
	if len(group) == 0 {
		return fmt.Sprintf("[%s]", topic)
	}
	names := make([]string, len(group))
	for i, def := range group {
		names[i] = def.DisplayName
	}
	return fmt.Sprintf("[%s] Rank %d: %s", topic, group[0].Rank, strings.Join(names, ", "))
}

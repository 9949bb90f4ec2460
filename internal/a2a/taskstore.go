package a2a

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store defaults. Only terminal tasks are ever evicted.
const (
	DefaultTaskRetention = 10 * time.Minute
	DefaultMaxTasks      = 1024
)

// TaskStore is a concurrency-safe in-memory store of an agent's tasks.
// Callers only ever see copies. Terminal tasks are dropped once they are
// older than the retention window, or oldest first once the store holds
// more than its cap.
type TaskStore struct {
	mu        sync.RWMutex
	tasks     map[string]*Task
	order     []string
	retention time.Duration
	maxTasks  int
	now       func() time.Time
}

// StoreOption configures a TaskStore.
type StoreOption func(*TaskStore)

// WithRetention sets how long terminal tasks stay readable. Zero or
// negative keeps them until the cap is hit.
func WithRetention(d time.Duration) StoreOption {
	return func(s *TaskStore) { s.retention = d }
}

// WithMaxTasks caps the number of stored tasks. Zero or negative disables
// the cap.
func WithMaxTasks(n int) StoreOption {
	return func(s *TaskStore) { s.maxTasks = n }
}

// NewTaskStore returns an empty store.
func NewTaskStore(opts ...StoreOption) *TaskStore {
	s := &TaskStore{
		tasks:     make(map[string]*Task),
		retention: DefaultTaskRetention,
		maxTasks:  DefaultMaxTasks,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records a new submitted task for msg and returns a copy of it.
// The task reuses msg's context ID when present.
func (s *TaskStore) Create(msg Message) *Task {
	contextID := msg.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}
	task := &Task{
		ID:        uuid.NewString(),
		ContextID: contextID,
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: s.now()},
		History:   []Message{copyMessage(msg)},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)
	s.prune()
	return copyTask(task)
}

// prune evicts expired terminal tasks, then the oldest terminal tasks while
// the store is over its cap. Caller holds s.mu.
func (s *TaskStore) prune() {
	now := s.now()
	over := 0
	if s.maxTasks > 0 && len(s.tasks) > s.maxTasks {
		over = len(s.tasks) - s.maxTasks
	}

	kept := s.order[:0]
	for _, id := range s.order {
		t := s.tasks[id]
		if t.Status.State.IsTerminal() {
			expired := s.retention > 0 && now.Sub(t.Status.Timestamp) > s.retention
			if expired || over > 0 {
				delete(s.tasks, id)
				if !expired {
					over--
				}
				continue
			}
		}
		kept = append(kept, id)
	}
	clear(s.order[len(kept):])
	s.order = kept
}

// Get returns a copy of the task with id.
func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return copyTask(t), nil
}

// Transition moves task id to state, recording an optional agent message
// and artifacts. Terminal tasks never change again; transitioning one
// returns ErrTaskNotCancelable wrapped with the current state.
func (s *TaskStore) Transition(id string, state TaskState, msg *Message, artifacts ...Artifact) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	if t.Status.State.IsTerminal() {
		return nil, fmt.Errorf("%w: task %q is %s", ErrTaskNotCancelable, id, t.Status.State)
	}

	t.Status = TaskStatus{State: state, Timestamp: s.now()}
	if msg != nil {
		m := copyMessage(*msg)
		m.TaskID = t.ID
		m.ContextID = t.ContextID
		t.Status.Message = &m
		t.History = append(t.History, copyMessage(m))
	}
	for _, a := range artifacts {
		t.Artifacts = append(t.Artifacts, copyArtifact(a))
	}
	return copyTask(t), nil
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func copyTask(src *Task) *Task {
	dst := *src
	if src.Artifacts != nil {
		dst.Artifacts = make([]Artifact, len(src.Artifacts))
		for i, a := range src.Artifacts {
			dst.Artifacts[i] = copyArtifact(a)
		}
	}
	if src.History != nil {
		dst.History = make([]Message, len(src.History))
		for i, m := range src.History {
			dst.History[i] = copyMessage(m)
		}
	}
	dst.Metadata = copyRaw(src.Metadata)
	if src.Status.Message != nil {
		m := copyMessage(*src.Status.Message)
		dst.Status.Message = &m
	}
	return &dst
}

func copyMessage(src Message) Message {
	dst := src
	dst.Parts = copyParts(src.Parts)
	dst.Metadata = copyRaw(src.Metadata)
	return dst
}

func copyArtifact(src Artifact) Artifact {
	dst := src
	dst.Parts = copyParts(src.Parts)
	return dst
}

func copyParts(src []Part) []Part {
	if src == nil {
		return nil
	}
	dst := make([]Part, len(src))
	for i, p := range src {
		dst[i] = p
		dst[i].Data = copyRaw(p.Data)
		dst[i].Metadata = copyRaw(p.Metadata)
	}
	return dst
}

func copyRaw(src json.RawMessage) json.RawMessage {
	if src == nil {
		return nil
	}
	dst := make(json.RawMessage, len(src))
	copy(dst, src)
	return dst
}

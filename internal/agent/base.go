package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/logging"
)

// Compile-time interface checks.
var (
	_ Agent       = (*BaseAgent)(nil)
	_ a2a.Handler = (*BaseAgent)(nil)
)

// ProcessFunc does an agent's work for one task. It receives the task in
// working state and the incoming message and returns the artifacts of the
// completed task.
type ProcessFunc func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error)

// BaseAgent is the A2A plumbing shared by every agent: a server, a task
// store and the submitted → working → completed|failed|canceled lifecycle.
// A process failure is reported as a failed task whose status message is the
// error text, not as a JSON-RPC error.
type BaseAgent struct {
	server  *a2a.Server
	store   *a2a.TaskStore
	card    a2a.AgentCard
	process ProcessFunc
	logger  *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// BaseOption configures a BaseAgent.
type BaseOption func(*BaseAgent)

// WithLogger sets the agent's logger.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *BaseAgent) {
		b.logger = logger
	}
}

// NewBaseAgent creates a BaseAgent serving card and doing work with process.
func NewBaseAgent(card a2a.AgentCard, process ProcessFunc, opts ...BaseOption) *BaseAgent {
	b := &BaseAgent{
		store:   a2a.NewTaskStore(),
		card:    card,
		process: process,
		logger:  logging.Nop(),
		running: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("agent", card.Name)
	b.server = a2a.NewServer(card, b, a2a.WithServerLogger(b.logger))
	return b
}

// Card returns the agent's card.
func (b *BaseAgent) Card() a2a.AgentCard {
	return b.card
}

// Server returns the underlying A2A server.
func (b *BaseAgent) Server() *a2a.Server {
	return b.server
}

// Start listens on addr and serves in the background.
func (b *BaseAgent) Start(addr string) error {
	return b.server.Start(addr)
}

// URL returns the base URL of a started agent, or "".
func (b *BaseAgent) URL() string {
	return b.server.URL()
}

// Stop cancels running tasks and shuts the server down.
func (b *BaseAgent) Stop(ctx context.Context) error {
	b.mu.Lock()
	for _, cancel := range b.running {
		cancel()
	}
	b.mu.Unlock()
	return b.server.Stop(ctx)
}

// ---------------------------------------------------------------------------
// a2a.Handler
// ---------------------------------------------------------------------------

// HandleSendMessage creates a task for the message. A blocking request is
// answered with the terminal task; otherwise the working task is returned at
// once and processing continues in the background.
func (b *BaseAgent) HandleSendMessage(ctx context.Context, req a2a.SendMessageRequest) (*a2a.Task, error) {
	task := b.store.Create(req.Message)
	working, err := b.store.Transition(task.ID, a2a.TaskStateWorking, nil)
	if err != nil {
		return nil, err
	}

	if req.Configuration != nil && req.Configuration.Blocking {
		return b.run(ctx, working, req.Message), nil
	}

	go b.run(context.WithoutCancel(ctx), working, req.Message)
	return working, nil
}

// HandleGetTask returns the stored task.
func (b *BaseAgent) HandleGetTask(_ context.Context, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return b.store.Get(req.ID)
}

// HandleCancelTask cancels a task that has not finished.
func (b *BaseAgent) HandleCancelTask(_ context.Context, req a2a.CancelTaskRequest) (*a2a.Task, error) {
	task, err := b.store.Transition(req.ID, a2a.TaskStateCanceled, nil)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if cancel, ok := b.running[req.ID]; ok {
		cancel()
	}
	b.mu.Unlock()

	b.logger.Info("task canceled", "task_id", req.ID)
	return task, nil
}

// run processes task and records the outcome. It returns the task as stored
// afterwards, which is the canceled task if a cancel won the race.
func (b *BaseAgent) run(ctx context.Context, task *a2a.Task, msg a2a.Message) *a2a.Task {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.running[task.ID] = cancel
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.running, task.ID)
		b.mu.Unlock()
		cancel()
	}()

	logger := b.logger.With("task_id", task.ID)
	artifacts, procErr := b.process(ctx, task, msg)

	var (
		result *a2a.Task
		err    error
	)
	if procErr != nil {
		logger.Warn("task failed", "error", procErr)
		reply := a2a.NewMessage(a2a.RoleAgent, a2a.TextPart(procErr.Error()))
		result, err = b.store.Transition(task.ID, a2a.TaskStateFailed, &reply)
	} else {
		logger.Debug("task completed", "artifacts", len(artifacts))
		result, err = b.store.Transition(task.ID, a2a.TaskStateCompleted, nil, artifacts...)
	}

	if err != nil {
		if !errors.Is(err, a2a.ErrTaskNotCancelable) {
			logger.Error("record task outcome", "error", err)
		}
		current, getErr := b.store.Get(task.ID)
		if getErr != nil {
			return task
		}
		return current
	}
	return result
}

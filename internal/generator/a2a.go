package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/logging"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// Compile-time interface check.
var _ orchestrator.Generator = (*A2A)(nil)

// DefaultPollInterval is how often A2A polls a task the agent returned
// before it finished.
const DefaultPollInterval = 250 * time.Millisecond

// A2A generates stage content by sending each stage to its own A2A agent.
// The agent's text artifacts become the stage output; a failed, rejected or
// canceled task becomes an error carrying the agent's status message.
type A2A struct {
	client    a2a.Client
	endpoints map[orchestrator.StageID]string
	registry  *orchestrator.Registry
	logger    *slog.Logger
	poll      time.Duration
}

// A2AOption configures an A2A generator.
type A2AOption func(*A2A)

// WithRegistry sets the registry used for prompt roles and endpoint checks.
func WithRegistry(reg *orchestrator.Registry) A2AOption {
	return func(g *A2A) {
		g.registry = reg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) A2AOption {
	return func(g *A2A) {
		g.logger = logger
	}
}

// WithPollInterval sets the task polling interval.
func WithPollInterval(d time.Duration) A2AOption {
	return func(g *A2A) {
		g.poll = d
	}
}

// NewA2A creates an A2A generator. Every stage in the registry must have an
// endpoint.
func NewA2A(client a2a.Client, endpoints map[orchestrator.StageID]string, opts ...A2AOption) (*A2A, error) {
	g := &A2A{
		client:    client,
		endpoints: make(map[orchestrator.StageID]string, len(endpoints)),
		registry:  orchestrator.DefaultRegistry(),
		logger:    logging.Nop(),
		poll:      DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	for id, ep := range endpoints {
		g.endpoints[id] = ep
	}

	var missing []orchestrator.StageID
	for _, def := range g.registry.Stages() {
		if g.endpoints[def.ID] == "" {
			missing = append(missing, def.ID)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("generator: no agent endpoint for %v", missing)
	}
	return g, nil
}

// Generate sends one blocking message/send to the stage's agent and returns
// the text of the completed task.
func (g *A2A) Generate(ctx context.Context, stage orchestrator.StageID, topic, contextText string) (string, error) {
	def, ok := g.registry.Lookup(stage)
	if !ok {
		return "", fmt.Errorf("generator: %w: %q", orchestrator.ErrUnknownStage, stage)
	}
	endpoint := g.endpoints[stage]

	msg, err := NewMessage(Request{Stage: stage, Topic: topic, Context: contextText}, Prompt(def, topic, contextText))
	if err != nil {
		return "", err
	}

	logger := g.logger.With("stage", string(stage), "endpoint", endpoint)
	logger.Debug("sending stage request", "context_bytes", len(contextText))

	task, err := g.client.SendMessage(ctx, endpoint, a2a.SendMessageRequest{
		Message: msg,
		Configuration: &a2a.SendMessageConfig{
			AcceptedOutputModes: []string{"text/plain", "text/markdown"},
			Blocking:            true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("generator: %s: %w", stage, err)
	}

	if !task.Status.State.IsTerminal() {
		task, err = g.await(ctx, endpoint, task.ID)
		if err != nil {
			return "", fmt.Errorf("generator: %s: %w", stage, err)
		}
	}

	logger.Debug("stage task finished", "task_id", task.ID, "state", string(task.Status.State))
	return taskOutput(stage, task)
}

// await polls a task until it is terminal. If ctx ends first the task is
// canceled on a best-effort basis.
func (g *A2A) await(ctx context.Context, endpoint, taskID string) (*a2a.Task, error) {
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if _, err := g.client.CancelTask(cancelCtx, endpoint, a2a.CancelTaskRequest{ID: taskID}); err != nil && !errors.Is(err, a2a.ErrTaskNotCancelable) {
				g.logger.Warn("cancel abandoned task", "task_id", taskID, "error", err)
			}
			cancel()
			return nil, ctx.Err()
		case <-ticker.C:
		}

		task, err := g.client.GetTask(ctx, endpoint, a2a.GetTaskRequest{ID: taskID})
		if err != nil {
			return nil, err
		}
		if task.Status.State.IsTerminal() {
			return task, nil
		}
	}
}

// taskOutput maps a terminal task onto stage output or an error.
func taskOutput(stage orchestrator.StageID, task *a2a.Task) (string, error) {
	if task.Status.State == a2a.TaskStateCompleted {
		return task.Text(), nil
	}
	if msg := task.StatusText(); msg != "" {
		return "", errors.New(msg)
	}
	return "", fmt.Errorf("generator: %s: task %s ended %s", stage, task.ID, task.Status.State)
}

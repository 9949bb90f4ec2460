package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/dusk-indust/zappy/internal/logging"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// Registry creates one StageAgent per stage and manages their lifecycle.
type Registry struct {
	stages *orchestrator.Registry
	gen    orchestrator.Generator
	logger *slog.Logger

	mu      sync.Mutex
	spawned []*StageAgent
}

// NewRegistry creates a Registry for stages whose agents generate with gen.
// A nil stages uses the default registry.
func NewRegistry(stages *orchestrator.Registry, gen orchestrator.Generator, logger *slog.Logger) *Registry {
	if stages == nil {
		stages = orchestrator.DefaultRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{stages: stages, gen: gen, logger: logger}
}

// Spawn creates, without starting, the agent for one stage.
func (r *Registry) Spawn(id orchestrator.StageID) (*StageAgent, error) {
	def, ok := r.stages.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("agent: %w: %q", orchestrator.ErrUnknownStage, id)
	}
	return NewStageAgent(def, r.gen, WithLogger(r.logger)), nil
}

// SpawnAll starts one agent per stage, in pipeline order, on sequential
// ports of host starting at basePort. A basePort of 0 lets the OS pick every
// port. If any agent fails to start, the ones already started are stopped.
func (r *Registry) SpawnAll(ctx context.Context, host string, basePort int) ([]*StageAgent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var agents []*StageAgent
	for i, def := range r.stages.Stages() {
		ag := NewStageAgent(def, r.gen, WithLogger(r.logger))

		port := 0
		if basePort > 0 {
			port = basePort + i
		}
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		if err := ag.Start(addr); err != nil {
			for j := len(agents) - 1; j >= 0; j-- {
				_ = agents[j].Stop(ctx)
			}
			return nil, fmt.Errorf("agent: start %s on %s: %w", def.ID, addr, err)
		}
		r.logger.Info("agent started", "stage", string(def.ID), "url", ag.URL())
		agents = append(agents, ag)
	}

	r.spawned = append(r.spawned, agents...)
	return agents, nil
}

// Endpoints maps every running agent's stage to its URL.
func (r *Registry) Endpoints() map[orchestrator.StageID]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	eps := make(map[orchestrator.StageID]string, len(r.spawned))
	for _, ag := range r.spawned {
		eps[ag.Stage()] = ag.URL()
	}
	return eps
}

// StopAll stops every spawned agent in reverse start order and returns the
// first error.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for i := len(r.spawned) - 1; i >= 0; i-- {
		if err := r.spawned[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.spawned = nil
	return firstErr
}

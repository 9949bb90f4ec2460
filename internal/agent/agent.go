// Package agent hosts pipeline stages as local A2A agents, so a pipeline
// configured for remote generation can run against processes it started
// itself.
package agent

import (
	"context"

	"github.com/dusk-indust/zappy/internal/a2a"
)

// Agent is an A2A agent with an HTTP lifecycle.
type Agent interface {
	// Card returns the agent's card.
	Card() a2a.AgentCard

	// Start listens on addr and serves in the background.
	Start(addr string) error

	// URL returns the base URL of a started agent.
	URL() string

	// Stop gracefully shuts the agent down.
	Stop(ctx context.Context) error
}

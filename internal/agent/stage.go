package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/generator"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// Compile-time interface check.
var _ Agent = (*StageAgent)(nil)

// Version is reported on every stage agent's card.
const Version = "1.0.0"

// StageAgent serves one pipeline stage, answering each request with the
// output of a local Generator.
type StageAgent struct {
	*BaseAgent
	def orchestrator.StageDefinition
	gen orchestrator.Generator
}

// NewStageAgent creates the agent for def backed by gen.
func NewStageAgent(def orchestrator.StageDefinition, gen orchestrator.Generator, opts ...BaseOption) *StageAgent {
	s := &StageAgent{def: def, gen: gen}
	s.BaseAgent = NewBaseAgent(StageCard(def), s.process, opts...)
	return s
}

// Stage returns the stage the agent serves.
func (s *StageAgent) Stage() orchestrator.StageID {
	return s.def.ID
}

// StageCard builds the agent card for def.
func StageCard(def orchestrator.StageDefinition) a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "zappy-" + string(def.ID),
		Description: def.Role,
		Version:     Version,
		Skills: []a2a.AgentSkill{{
			ID:          string(def.ID),
			Name:        def.DisplayName,
			Description: def.Role,
			Tags:        []string{"content", string(def.ID)},
		}},
		DefaultInputModes:  []string{"text/plain", "application/json"},
		DefaultOutputModes: []string{"text/markdown"},
	}
}

func (s *StageAgent) process(ctx context.Context, _ *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
	req, err := generator.DecodeRequest(msg)
	if err != nil {
		return nil, err
	}
	if req.Stage != s.def.ID {
		return nil, fmt.Errorf("agent: %s agent cannot serve stage %q", s.def.ID, req.Stage)
	}

	out, err := s.gen.Generate(ctx, req.Stage, req.Topic, req.Context)
	if err != nil {
		return nil, err
	}
	return []a2a.Artifact{{
		ArtifactID: uuid.NewString(),
		Name:       string(s.def.ID) + "-output",
		Parts:      []a2a.Part{{Text: out, MediaType: "text/markdown"}},
	}}, nil
}

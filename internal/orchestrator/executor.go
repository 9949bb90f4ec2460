package orchestrator

import (
	"context"
	"errors"
	"time"
)

// Executor runs a single stage against the Generator. It performs exactly one
// Generate call per invocation and imposes no retry or timeout of its own.
type Executor struct {
	gen Generator
	now func() time.Time
}

// NewExecutor creates an Executor calling gen.
func NewExecutor(gen Generator) *Executor {
	return &Executor{gen: gen, now: time.Now}
}

// Execute generates the content for def given the topic and the context
// rendered so far. Any failure is returned as a *GenerationError naming the
// stage; a GenerationError produced by the generator itself is passed through.
func (e *Executor) Execute(ctx context.Context, def StageDefinition, topic, contextText string) (StageResult, error) {
	content, err := e.gen.Generate(ctx, def.ID, topic, contextText)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			return StageResult{}, genErr
		}
		return StageResult{}, NewGenerationError(def.ID, err)
	}

	return StageResult{
		Stage:       def.ID,
		Content:     content,
		CompletedAt: e.now(),
	}, nil
}

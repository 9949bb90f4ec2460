package generator

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// Compile-time interface check.
var _ orchestrator.Generator = (*Template)(nil)

// Template produces deterministic placeholder content without any backend.
// It exists for demos, offline runs and tests: the same stage, topic and
// context always give the same output.
type Template struct {
	registry *orchestrator.Registry
}

// NewTemplate creates a Template for reg. A nil reg uses the default
// registry.
func NewTemplate(reg *orchestrator.Registry) *Template {
	if reg == nil {
		reg = orchestrator.DefaultRegistry()
	}
	return &Template{registry: reg}
}

// Generate renders the placeholder for stage. It honours ctx cancellation.
func (t *Template) Generate(ctx context.Context, stage orchestrator.StageID, topic, contextText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	def, ok := t.registry.Lookup(stage)
	if !ok {
		return "", fmt.Errorf("generator: %w: %q", orchestrator.ErrUnknownStage, stage)
	}

	sections := strings.Count(contextText, "\n\n[")
	var b strings.Builder
	switch stage {
	case orchestrator.StageEditor:
		fmt.Fprintf(&b, "# %s\n\n", headline(topic))
		fmt.Fprintf(&b, "A reader's guide to %s, compiled from %d earlier sections.\n\n", topic, sections)
		b.WriteString("## Key points\n\n")
		b.WriteString("- What the evidence says\n- What it means day to day\n- When to talk to a clinician\n")
	default:
		fmt.Fprintf(&b, "%s notes on %q (%s).\n", def.DisplayName, topic, def.Role)
		fmt.Fprintf(&b, "Built from %d earlier sections, %d characters of context.", sections, len(contextText))
	}
	return b.String(), nil
}

// headline capitalises the first letter of each word.
func headline(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

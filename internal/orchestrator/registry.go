package orchestrator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// StageDefinition is the static description of one pipeline stage.
type StageDefinition struct {
	ID           StageID
	DisplayName  string
	Role         string
	SectionLabel string // heading used for this stage's section in the accumulated context; unused for the terminal stage
	Rank         int    // stages of equal rank execute concurrently
}

// FeedbackLabel returns the section label used for reviewers in the
// concurrent rank, e.g. "FEEDBACK FROM SEO".
func FeedbackLabel(displayName string) string {
	return "FEEDBACK FROM " + strings.ToUpper(displayName)
}

// defaultStages is the production pipeline.
var defaultStages = []StageDefinition{
	{ID: StageResearcher, DisplayName: "Researcher", Role: "Medical Evidence Research", SectionLabel: "RESEARCH REPORT", Rank: 1},
	{ID: StageWriter, DisplayName: "Writer", Role: "Long-form Drafting", SectionLabel: "INITIAL DRAFT", Rank: 2},
	{ID: StageCompliance, DisplayName: "Compliance", Role: "Medical Accuracy Review", SectionLabel: FeedbackLabel("Compliance"), Rank: 3},
	{ID: StageEnhancer, DisplayName: "Enhancer", Role: "Readability and Engagement", SectionLabel: FeedbackLabel("Enhancer"), Rank: 3},
	{ID: StageSEO, DisplayName: "SEO", Role: "Search Optimization", SectionLabel: FeedbackLabel("SEO"), Rank: 3},
	{ID: StageEditor, DisplayName: "Editor", Role: "Final Editorial Polish", SectionLabel: "FINAL POST", Rank: 4},
}

// Registry is the immutable, ordered set of stages for a pipeline. Stages are
// kept in ascending rank order; stages of equal rank keep their definition
// order, which is also the deterministic order used for appends and error
// tie-breaks within a rank.
type Registry struct {
	stages []StageDefinition
	byID   map[StageID]int
	groups [][]StageDefinition
}

// NewRegistry validates defs and builds a Registry. Every ID must be a known
// StageID and appear once, and the highest rank must hold exactly one stage
// (the terminal stage whose output is the run's final output). Every other
// stage needs a section label; the terminal stage's output is never rendered
// into context, so its label is optional.
func NewRegistry(defs ...StageDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("orchestrator: registry: no stages defined")
	}

	stages := make([]StageDefinition, len(defs))
	copy(stages, defs)
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Rank < stages[j].Rank })

	r := &Registry{
		stages: stages,
		byID:   make(map[StageID]int, len(stages)),
	}
	for i, def := range stages {
		if !def.ID.Valid() {
			return nil, fmt.Errorf("orchestrator: registry: %w: %q", ErrUnknownStage, def.ID)
		}
		if _, dup := r.byID[def.ID]; dup {
			return nil, fmt.Errorf("orchestrator: registry: stage %q defined twice", def.ID)
		}
		r.byID[def.ID] = i
	}

	for i := 0; i < len(stages); {
		j := i
		for j < len(stages) && stages[j].Rank == stages[i].Rank {
			j++
		}
		r.groups = append(r.groups, stages[i:j:j])
		i = j
	}

	if last := r.groups[len(r.groups)-1]; len(last) != 1 {
		return nil, fmt.Errorf("orchestrator: registry: terminal rank %d must hold one stage, has %d", last[0].Rank, len(last))
	}
	for _, def := range stages[:len(stages)-1] {
		if strings.TrimSpace(def.SectionLabel) == "" {
			return nil, fmt.Errorf("orchestrator: registry: stage %q has no section label", def.ID)
		}
	}
	return r, nil
}

// DefaultRegistry returns the six-stage production pipeline:
// Researcher, Writer, then Compliance/Enhancer/SEO concurrently, then Editor.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultStages...)
	if err != nil {
		panic(err)
	}
	return r
}

// Stages returns every stage in execution order.
func (r *Registry) Stages() []StageDefinition {
	out := make([]StageDefinition, len(r.stages))
	copy(out, r.stages)
	return out
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id StageID) (StageDefinition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return StageDefinition{}, false
	}
	return r.stages[i], true
}

// Groups partitions the stages by rank, ranks ascending.
func (r *Registry) Groups() [][]StageDefinition {
	out := make([][]StageDefinition, len(r.groups))
	for i, g := range r.groups {
		out[i] = make([]StageDefinition, len(g))
		copy(out[i], g)
	}
	return out
}

// Terminal returns the single stage of the highest rank.
func (r *Registry) Terminal() StageDefinition {
	return r.stages[len(r.stages)-1]
}

// Len returns the total number of stages.
func (r *Registry) Len() int {
	return len(r.stages)
}

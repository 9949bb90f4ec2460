package orchestrator

import (
	"fmt"
	"strings"
)

// Accumulator is the append-only log of stage results for one run. It keeps
// the rendered context up to date incrementally, so Render is O(1) and
// sections are never reordered or removed once appended.
//
// An Accumulator is owned by a single run and is not safe for concurrent use.
type Accumulator struct {
	registry *Registry
	results  []StageResult
	seen     map[StageID]bool
	rendered strings.Builder
}

// NewAccumulator returns an empty Accumulator labelling sections from reg.
func NewAccumulator(reg *Registry) *Accumulator {
	return &Accumulator{
		registry: reg,
		seen:     make(map[StageID]bool, reg.Len()),
	}
}

// Append adds res to the log. It fails for stages not in the registry and
// for stages that already have a result.
func (a *Accumulator) Append(res StageResult) error {
	def, ok := a.registry.Lookup(res.Stage)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, res.Stage)
	}
	if a.seen[res.Stage] {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, res.Stage)
	}

	a.seen[res.Stage] = true
	a.results = append(a.results, res)
	fmt.Fprintf(&a.rendered, "\n\n[%s]\n%s", def.SectionLabel, res.Content)
	return nil
}

// Render returns every appended section, in append order, as
// "\n\n[LABEL]\n<content>".
func (a *Accumulator) Render() string {
	return a.rendered.String()
}

// Len returns the number of appended results.
func (a *Accumulator) Len() int {
	return len(a.results)
}

// Results returns a copy of the appended results in append order.
func (a *Accumulator) Results() []StageResult {
	out := make([]StageResult, len(a.results))
	copy(out, a.results)
	return out
}

package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/zappy/internal/orchestrator"
	"github.com/dusk-indust/zappy/internal/status"
)

// GenerateMermaid produces a Mermaid "graph LR" diagram of the pipeline.
// Each rank is a subgraph; every stage links to every stage of the next
// rank. When rs is non-nil, stages are styled by their status in rs.
func GenerateMermaid(reg *orchestrator.Registry, rs *status.RunStatus) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	groups := reg.Groups()
	for _, group := range groups {
		rank := group[0].Rank
		sb.WriteString(fmt.Sprintf("  subgraph R%d[\"Rank %d\"]\n", rank, rank))
		for _, def := range group {
			sb.WriteString(fmt.Sprintf("    %s[\"%s<br/>%s\"]\n", def.ID, def.DisplayName, def.Role))
		}
		sb.WriteString("  end\n")
	}

	for i := 1; i < len(groups); i++ {
		for _, src := range groups[i-1] {
			for _, tgt := range groups[i] {
				sb.WriteString(fmt.Sprintf("  %s --> %s\n", src.ID, tgt.ID))
			}
		}
	}

	if rs != nil {
		sb.WriteString("  classDef completed fill:#d4edda,stroke:#28a745\n")
		sb.WriteString("  classDef active fill:#fff3cd,stroke:#ffc107\n")
		sb.WriteString("  classDef failed fill:#f8d7da,stroke:#dc3545\n")
		for _, si := range rs.Stages {
			if si.Status == status.StatusWaiting {
				continue
			}
			sb.WriteString(fmt.Sprintf("  class %s %s\n", si.Stage, si.Status))
		}
	}

	return sb.String()
}

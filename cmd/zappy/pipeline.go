package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/zappy/internal/export"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

func newPipelineCmd(_ *globalFlags) *cobra.Command {
	var mermaid bool

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Show the pipeline's stages by rank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := orchestrator.DefaultRegistry()
			if mermaid {
				fmt.Fprint(cmd.OutOrStdout(), export.GenerateMermaid(reg, nil))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStages(newStyleSet(), reg))
			return nil
		},
	}

	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "print a Mermaid diagram instead")
	return cmd
}

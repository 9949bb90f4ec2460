package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/zappy/internal/scaffold"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter zappy.yml and register the MCP server in .mcp.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			results, err := scaffold.Init(dir, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				line := fmt.Sprintf("  %s %s", r.Action, dotRelative(dir, r.Path))
				if r.Action == scaffold.ActionSkipped {
					line += " (exists, use --force to overwrite)"
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, "\nSetup complete. Run 'zappy agents' and 'zappy run <topic>'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files and entries")
	return cmd
}

// dotRelative returns a display path relative to base, prefixed with "./".
func dotRelative(base, path string) string {
	abs, err := filepath.Abs(base)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(abs, path)
	if err != nil {
		return path
	}
	return "./" + rel
}

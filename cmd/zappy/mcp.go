package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/zappy/internal/mcptools"
)

func newServeMCPCmd(global *globalFlags) *cobra.Command {
	var (
		httpAddr string
		noWrite  bool
	)

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the pipeline as MCP tools (stdio by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs go to stderr.
			logger := global.logger(cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, mode, err := global.newPipeline(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer p.Close()

			opts := []mcptools.ServiceOption{mcptools.WithLogger(logger)}
			if !noWrite {
				opts = append(opts, mcptools.WithOutputDir(global.outputDir(cfg)))
			}
			server := mcptools.NewPipelineMCPServer(mcptools.NewPipelineService(p, p.Registry(), opts...))

			if httpAddr != "" {
				logger.Info("serving MCP over HTTP", "addr", httpAddr, "mode", string(mode))
				return mcptools.RunHTTP(ctx, server, httpAddr)
			}
			logger.Info("serving MCP over stdio", "mode", string(mode))
			return mcptools.RunStdio(ctx, server)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	cmd.Flags().BoolVar(&noWrite, "no-write", false, "do not write finished posts to disk")
	return cmd
}

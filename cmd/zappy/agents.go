package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/zappy/internal/agent"
	"github.com/dusk-indust/zappy/internal/generator"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

func newAgentsCmd(global *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Host template-backed stage agents over A2A until interrupted",
		Long:  "Starts one A2A agent per stage on consecutive ports. Point the agents map in zappy.yml at them to run the pipeline over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.BasePort()
			}
			logger := global.logger(cfg, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := agent.NewRegistry(nil, generator.NewTemplate(nil), logger)
			if _, err := reg.SpawnAll(ctx, host, port); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			styles := newStyleSet()
			fmt.Fprintln(out, styles.Title.Render("Stage agents"))
			fmt.Fprint(out, renderEndpoints(styles, orchestrator.DefaultRegistry(), reg.Endpoints()))
			fmt.Fprintln(out, styles.Dim.Render("Press Ctrl+C to stop."))

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return reg.StopAll(stopCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "interface to listen on")
	cmd.Flags().IntVar(&port, "port", 0, "first port; stages take consecutive ports (default: agentBasePort from config)")
	return cmd
}

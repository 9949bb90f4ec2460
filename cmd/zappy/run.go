package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/zappy/internal/agent"
	"github.com/dusk-indust/zappy/internal/export"
	"github.com/dusk-indust/zappy/internal/generator"
	"github.com/dusk-indust/zappy/internal/orchestrator"
	"github.com/dusk-indust/zappy/internal/status"
)

type runFlags struct {
	OutputDir   string
	NoWrite     bool
	LocalAgents bool
	Print       bool
}

func newRunCmd(global *globalFlags) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Run the pipeline for a topic and write the final post",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, global, flags, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&flags.OutputDir, "output-dir", "o", "", "directory for the post and run report (default: outputDir from config)")
	cmd.Flags().BoolVar(&flags.NoWrite, "no-write", false, "do not write the post or report to disk")
	cmd.Flags().BoolVar(&flags.LocalAgents, "local-agents", false, "host template-backed stage agents in-process and run over A2A")
	cmd.Flags().BoolVar(&flags.Print, "print", false, "print the final post to stdout")
	return cmd
}

func runPipeline(cmd *cobra.Command, global *globalFlags, flags runFlags, topic string) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	logger := global.logger(cfg, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var endpoints map[orchestrator.StageID]string
	if flags.LocalAgents {
		agents := agent.NewRegistry(nil, generator.NewTemplate(nil), logger)
		if _, err := agents.SpawnAll(ctx, "127.0.0.1", 0); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = agents.StopAll(stopCtx)
		}()
		endpoints = agents.Endpoints()
	}

	p, mode, err := global.newPipeline(ctx, cfg, logger, endpoints)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Generating %q (%s)\n", topic, mode)

	printed := streamProgress(out, p.Registry(), topic, p.Progress())
	snap, runErr := p.Run(ctx, topic)
	p.Close()
	<-printed

	styles := newStyleSet()
	fmt.Fprintln(out, renderStatus(styles, status.FromSnapshot(p.Registry(), p.Snapshot())))
	if runErr != nil {
		return runErr
	}

	if flags.Print {
		fmt.Fprintln(out)
		fmt.Fprintln(out, snap.FinalOutput)
	}
	if flags.NoWrite {
		return nil
	}

	dir := flags.OutputDir
	if dir == "" {
		dir = global.outputDir(cfg)
	}
	post, err := export.WriteMarkdown(dir, snap)
	if err != nil {
		return err
	}
	report, err := export.WriteReport(dir, export.ExportRun(p.Registry(), snap, time.Now()))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  created %s\n  created %s\n", post, report)
	return nil
}

// streamProgress prints a rank header and one line per progress event until
// events is closed. The returned channel is closed when printing stops.
func streamProgress(w io.Writer, reg *orchestrator.Registry, topic string, events <-chan orchestrator.ProgressEvent) <-chan struct{} {
	groups := make(map[int][]orchestrator.StageDefinition)
	for _, g := range reg.Groups() {
		groups[g[0].Rank] = g
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rank := 0
		for event := range events {
			if event.Rank != rank {
				rank = event.Rank
				fmt.Fprintln(w, orchestrator.FormatRankHeader(topic, groups[rank]))
			}
			fmt.Fprintln(w, orchestrator.FormatProgress(event))
		}
	}()
	return done
}

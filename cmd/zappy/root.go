package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/config"
	"github.com/dusk-indust/zappy/internal/generator"
	"github.com/dusk-indust/zappy/internal/logging"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	Config  string
	Verbose bool
	Offline bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "zappy",
		Short:         "zappy: a multi-agent content pipeline for medical blog posts",
		Long:          "zappy researches a topic, drafts a post, reviews it for compliance, readability and SEO in parallel, and produces a final edit.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.Config, "config", ".", "project directory or path to zappy.yml")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.Offline, "offline", false, "use built-in templates instead of stage agents")

	root.AddCommand(
		newRunCmd(&flags),
		newAgentsCmd(&flags),
		newServeMCPCmd(&flags),
		newPipelineCmd(&flags),
		newInitCmd(),
	)
	return root
}

// loadConfig resolves --config as a directory or a file.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	path := f.Config
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if info.IsDir() {
		return config.Load(path)
	}
	return config.LoadFile(path)
}

// configDir is the directory relative output paths are resolved against.
func (f *globalFlags) configDir() string {
	info, err := os.Stat(f.Config)
	if err == nil && !info.IsDir() {
		return filepath.Dir(f.Config)
	}
	if f.Config == "" {
		return "."
	}
	return f.Config
}

func (f *globalFlags) logger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.LogLevel
	if f.Verbose {
		level = logging.LevelDebug
	}
	return logging.New(w, level, cfg.LogFormat)
}

// outputDir resolves the configured output directory against the project.
func (f *globalFlags) outputDir(cfg *config.Config) string {
	dir := cfg.Output()
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(f.configDir(), dir)
}

// newPipeline selects a generation service and builds a Pipeline on it.
// endpoints overrides the configured agents when non-nil.
func (f *globalFlags) newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, endpoints map[orchestrator.StageID]string) (*orchestrator.Pipeline, generator.Mode, error) {
	if endpoints == nil {
		endpoints = cfg.Endpoints()
	}

	gen, mode, err := generator.Select(ctx, generator.SelectOptions{
		Client:    a2a.NewHTTPClient(a2a.WithTimeout(cfg.Timeout())),
		Endpoints: endpoints,
		Offline:   f.Offline || cfg.Offline,
		Logger:    logger,
	})
	if err != nil {
		return nil, "", err
	}
	logger.Debug("generation service selected", "mode", string(mode))

	p := orchestrator.NewPipeline(gen,
		orchestrator.WithLogger(logger),
		orchestrator.WithSupersede(cfg.SupersedeEnabled()),
	)
	return p, mode, nil
}

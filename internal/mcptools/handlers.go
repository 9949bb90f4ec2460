package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/zappy/internal/export"
	"github.com/dusk-indust/zappy/internal/logging"
	"github.com/dusk-indust/zappy/internal/orchestrator"
	"github.com/dusk-indust/zappy/internal/status"
)

// PipelineService handles MCP tool calls for the pipeline server mode. It
// wraps an Orchestrator to start runs and query state.
type PipelineService struct {
	pipeline  orchestrator.Orchestrator
	registry  *orchestrator.Registry
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a PipelineService.
type ServiceOption func(*PipelineService)

// WithOutputDir makes successful blocking runs write their post and report
// to dir.
func WithOutputDir(dir string) ServiceOption {
	return func(s *PipelineService) { s.outputDir = dir }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *PipelineService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPipelineService creates a PipelineService. A nil registry means the
// default pipeline.
func NewPipelineService(pipeline orchestrator.Orchestrator, reg *orchestrator.Registry, opts ...ServiceOption) *PipelineService {
	if reg == nil {
		reg = orchestrator.DefaultRegistry()
	}
	s := &PipelineService{
		pipeline: pipeline,
		registry: reg,
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratePost runs the pipeline for a topic. Run failures are reported in
// the output, not as tool errors; a blank topic is a tool error.
func (s *PipelineService) GeneratePost(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GeneratePostInput,
) (*mcp.CallToolResult, GeneratePostOutput, error) {
	out := GeneratePostOutput{Topic: input.Topic}

	if input.Background {
		// The run outlives this request.
		run, err := s.pipeline.Start(context.WithoutCancel(ctx), input.Topic)
		if err != nil {
			return s.startFailed(out, err)
		}
		out.RunID = run.ID()
		out.Status = string(orchestrator.PhaseRunning)
		return nil, out, nil
	}

	run, err := s.pipeline.Start(ctx, input.Topic)
	if err != nil {
		return s.startFailed(out, err)
	}
	out.RunID = run.ID()

	snap, err := run.Wait(ctx)
	switch {
	case errors.Is(err, orchestrator.ErrSuperseded):
		out.Status = "superseded"
		out.Message = err.Error()
		return nil, out, nil
	case err != nil:
		out.Status = string(orchestrator.PhaseFailed)
		out.Message = err.Error()
		return nil, out, nil
	}

	out.Status = string(snap.Phase)
	out.Post = snap.FinalOutput
	if s.outputDir != "" {
		files, err := s.writeOutputs(snap)
		if err != nil {
			out.Message = err.Error()
		}
		out.FilesWritten = files
	}
	return nil, out, nil
}

func (s *PipelineService) startFailed(out GeneratePostOutput, err error) (*mcp.CallToolResult, GeneratePostOutput, error) {
	out.Status = string(orchestrator.PhaseFailed)
	out.Message = err.Error()
	if errors.Is(err, orchestrator.ErrEmptyTopic) {
		return nil, out, fmt.Errorf("topic is required")
	}
	return nil, out, nil
}

func (s *PipelineService) writeOutputs(snap orchestrator.Snapshot) ([]string, error) {
	post, err := export.WriteMarkdown(s.outputDir, snap)
	if err != nil {
		return nil, err
	}
	report, err := export.WriteReport(s.outputDir, export.ExportRun(s.registry, snap, s.now()))
	if err != nil {
		return []string{post}, err
	}
	s.logger.Info("post written", "path", post, "report", report)
	return []string{post, report}, nil
}

// GetRunState reports the current run state.
func (s *PipelineService) GetRunState(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunStateInput,
) (*mcp.CallToolResult, GetRunStateOutput, error) {
	snap := s.pipeline.Snapshot()
	rs := status.FromSnapshot(s.registry, snap)

	out := GetRunStateOutput{
		RunID:        rs.RunID,
		Topic:        rs.Topic,
		Phase:        string(rs.Phase),
		Rank:         snap.Rank,
		Percent:      rs.Percent,
		Summary:      rs.Summary(),
		ErrorMessage: rs.Error,
	}
	if snap.HasFinalOutput() {
		out.FinalOutput = snap.FinalOutput
	}
	for _, si := range rs.Stages {
		sum := stageSummary(si)
		if input.IncludeOutputs {
			if res, ok := snap.Result(si.Stage); ok {
				sum.Output = res.Content
			}
		}
		out.Stages = append(out.Stages, sum)
	}
	return nil, out, nil
}

// ResetRun abandons any run in flight and returns the pipeline to idle.
func (s *PipelineService) ResetRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ResetRunInput,
) (*mcp.CallToolResult, ResetRunOutput, error) {
	prev := s.pipeline.Snapshot()
	s.pipeline.Reset()

	out := ResetRunOutput{Phase: string(s.pipeline.Snapshot().Phase)}
	if prev.IsRunning() {
		out.AbandonedID = prev.RunID
		s.logger.Info("run abandoned", "run_id", prev.RunID)
	}
	return nil, out, nil
}

// DescribePipeline lists the stages and renders the pipeline as Mermaid.
func (s *PipelineService) DescribePipeline(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ DescribePipelineInput,
) (*mcp.CallToolResult, DescribePipelineOutput, error) {
	rs := status.FromSnapshot(s.registry, s.pipeline.Snapshot())

	out := DescribePipelineOutput{Mermaid: export.GenerateMermaid(s.registry, &rs)}
	for _, si := range rs.Stages {
		out.Stages = append(out.Stages, stageSummary(si))
	}
	return nil, out, nil
}

func stageSummary(si status.StageInfo) StageSummary {
	return StageSummary{
		Stage:  string(si.Stage),
		Name:   si.Name,
		Rank:   si.Rank,
		Status: string(si.Status),
	}
}

// Package mcptools exposes the content pipeline as MCP tools.
package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewPipelineMCPServer creates an MCP server with the pipeline tools
// registered: generate_post, get_run_state, reset_run and describe_pipeline.
func NewPipelineMCPServer(svc *PipelineService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "zappy",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_post",
		Description: "Run the content pipeline (research, draft, compliance/readability/SEO review, final edit) for a medical topic. Blocks until the post is final unless background is set. Starting a run supersedes any run in flight.",
	}, svc.GeneratePost)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run_state",
		Description: "Get the state of the current run: phase, per-stage status, progress and the final post once succeeded.",
	}, svc.GetRunState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_run",
		Description: "Abandon the current run, if any, and return the pipeline to idle.",
	}, svc.ResetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_pipeline",
		Description: "List the pipeline's stages by rank and return a Mermaid diagram of the layout.",
	}, svc.DescribePipeline)

	return server
}

// RunStdio runs server on stdio transport, blocking until stdin is closed or
// ctx is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves server over streamable HTTP on addr until ctx is cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when ctx is cancelled.
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package mcptools

// --- MCP tool types for the pipeline server mode (serve-mcp) ---
// The MCP Go SDK generates JSON schemas from these struct tags.

// GeneratePostInput is the input for the generate_post MCP tool.
type GeneratePostInput struct {
	Topic      string `json:"topic" jsonschema:"the medical topic to write a blog post about"`
	Background bool   `json:"background,omitempty" jsonschema:"start the run and return immediately; poll get_run_state for the result"`
}

// GeneratePostOutput is the result of the generate_post MCP tool.
type GeneratePostOutput struct {
	RunID        string   `json:"runId"`
	Topic        string   `json:"topic"`
	Status       string   `json:"status"` // "running", "succeeded", "failed" or "superseded"
	Post         string   `json:"post,omitempty"`
	FilesWritten []string `json:"filesWritten,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// GetRunStateInput is the input for the get_run_state MCP tool.
type GetRunStateInput struct {
	IncludeOutputs bool `json:"includeOutputs,omitempty" jsonschema:"include each completed stage's full output"`
}

// GetRunStateOutput is the result of the get_run_state MCP tool.
type GetRunStateOutput struct {
	RunID        string         `json:"runId,omitempty"`
	Topic        string         `json:"topic,omitempty"`
	Phase        string         `json:"phase"`
	Rank         int            `json:"rank"`
	Percent      int            `json:"percent"`
	Summary      string         `json:"summary"`
	Stages       []StageSummary `json:"stages"`
	FinalOutput  string         `json:"finalOutput,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// StageSummary is a brief overview of one stage in the current run.
type StageSummary struct {
	Stage  string `json:"stage"`
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
}

// ResetRunInput is the input for the reset_run MCP tool.
type ResetRunInput struct{}

// ResetRunOutput is the result of the reset_run MCP tool.
type ResetRunOutput struct {
	Phase       string `json:"phase"`
	AbandonedID string `json:"abandonedRunId,omitempty"`
}

// DescribePipelineInput is the input for the describe_pipeline MCP tool.
type DescribePipelineInput struct{}

// DescribePipelineOutput is the result of the describe_pipeline MCP tool.
type DescribePipelineOutput struct {
	Stages  []StageSummary `json:"stages"`
	Mermaid string         `json:"mermaid"`
}

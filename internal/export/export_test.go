package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/zappy/internal/orchestrator"
	"github.com/dusk-indust/zappy/internal/status"
)

var exportedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

const finalPost = "# Better Sleep\n\nIntro.\n\n## Key points\n\n```\n# not a heading\n```\n\n### Sources ###\n"

func succeeded() orchestrator.Snapshot {
	var done []orchestrator.StageResult
	for _, id := range orchestrator.StageIDs() {
		done = append(done, orchestrator.StageResult{Stage: id, Content: "out:" + string(id), CompletedAt: exportedAt})
	}
	return orchestrator.Snapshot{
		RunID:       "run-7",
		Topic:       "Better Sleep: A Guide",
		Phase:       orchestrator.PhaseSucceeded,
		Completed:   done,
		FinalOutput: finalPost,
		TotalStages: 6,
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Better Sleep: A Guide", "better-sleep-a-guide"},
		{"  blood   pressure  ", "blood-pressure"},
		{"Vitamin D & B12", "vitamin-d-b12"},
		{"Café crème", "café-crème"},
		{"!!!", "post"},
		{"", "post"},
		{strings.Repeat("a", 100), strings.Repeat("a", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.topic))
		})
	}
}

func TestWriteMarkdown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "posts")

	path, err := WriteMarkdown(dir, succeeded())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "better-sleep-a-guide.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, finalPost, string(data))
}

func TestWriteMarkdown_AddsTrailingNewline(t *testing.T) {
	snap := succeeded()
	snap.FinalOutput = "# Title"

	path, err := WriteMarkdown(t.TempDir(), snap)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n", string(data))
}

func TestWriteMarkdown_RequiresSuccess(t *testing.T) {
	snap := succeeded()
	snap.Phase = orchestrator.PhaseFailed

	_, err := WriteMarkdown(t.TempDir(), snap)
	assert.ErrorIs(t, err, ErrNoFinalOutput)
}

func TestParseOutline(t *testing.T) {
	assert.Equal(t, []Heading{
		{Level: 1, Title: "Better Sleep"},
		{Level: 2, Title: "Key points"},
		{Level: 3, Title: "Sources"},
	}, ParseOutline(finalPost))

	assert.Empty(t, ParseOutline("no headings here\n#hashtag"))
}

func TestExportRun_Succeeded(t *testing.T) {
	export := ExportRun(orchestrator.DefaultRegistry(), succeeded(), exportedAt)

	assert.Equal(t, "run-7", export.RunID)
	assert.Equal(t, "succeeded", export.Phase)
	assert.Equal(t, "2026-03-14T09:30:00Z", export.ExportedAt)
	require.Len(t, export.Stages, 6)
	assert.Equal(t, StageExport{
		Stage:       "researcher",
		Name:        "Researcher",
		Rank:        1,
		Status:      "completed",
		Bytes:       len("out:researcher"),
		CompletedAt: "2026-03-14T09:30:00Z",
	}, export.Stages[0])
	assert.Len(t, export.Outline, 3)
	assert.Empty(t, export.Error)
}

func TestExportRun_Failed(t *testing.T) {
	snap := orchestrator.Snapshot{
		Topic:       "sleep",
		Phase:       orchestrator.PhaseFailed,
		Err:         orchestrator.NewGenerationError(orchestrator.StageResearcher, errors.New("quota exceeded")),
		TotalStages: 6,
	}
	export := ExportRun(orchestrator.DefaultRegistry(), snap, exportedAt)

	assert.Equal(t, "quota exceeded", export.Error)
	assert.Equal(t, "failed", export.Stages[0].Status)
	assert.Empty(t, export.Stages[0].CompletedAt)
	assert.Nil(t, export.Outline)
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	export := ExportRun(orchestrator.DefaultRegistry(), succeeded(), exportedAt)

	path, err := WriteReport(dir, export)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "better-sleep-a-guide.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got RunExport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *export, got)
}

func TestGenerateMermaid_Layout(t *testing.T) {
	out := GenerateMermaid(orchestrator.DefaultRegistry(), nil)

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, "  subgraph R3[\"Rank 3\"]\n")
	assert.Contains(t, out, "    seo[\"SEO<br/>Search Optimization\"]\n")
	assert.Contains(t, out, "  researcher --> writer\n")
	assert.Contains(t, out, "  writer --> enhancer\n")
	assert.Contains(t, out, "  compliance --> editor\n")
	assert.NotContains(t, out, "researcher --> editor")
	assert.NotContains(t, out, "classDef")
	assert.Equal(t, 22, strings.Count(out, "\n"))
}

func TestGenerateMermaid_StatusClasses(t *testing.T) {
	reg := orchestrator.DefaultRegistry()
	rs := status.FromSnapshot(reg, orchestrator.Snapshot{
		Phase:        orchestrator.PhaseRunning,
		ActiveStages: []orchestrator.StageID{orchestrator.StageWriter},
		Completed:    []orchestrator.StageResult{{Stage: orchestrator.StageResearcher}},
		TotalStages:  6,
	})

	out := GenerateMermaid(reg, &rs)
	assert.Contains(t, out, "  class researcher completed\n")
	assert.Contains(t, out, "  class writer active\n")
	assert.NotContains(t, out, "class editor")
}

package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dusk-indust/zappy/internal/orchestrator"
	"github.com/dusk-indust/zappy/internal/status"
)

// RunExport is the top-level JSON report of one pipeline run.
type RunExport struct {
	RunID      string        `json:"runId,omitempty"`
	Topic      string        `json:"topic"`
	Phase      string        `json:"phase"`
	ExportedAt string        `json:"exportedAt"`
	Stages     []StageExport `json:"stages"`
	Outline    []Heading     `json:"outline,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// StageExport describes one pipeline stage.
type StageExport struct {
	Stage       string `json:"stage"`
	Name        string `json:"name"`
	Rank        int    `json:"rank"`
	Status      string `json:"status"`
	Bytes       int    `json:"bytes,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// Heading is one markdown heading of the final post.
type Heading struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// ExportRun builds a RunExport from snap.
func ExportRun(reg *orchestrator.Registry, snap orchestrator.Snapshot, now time.Time) *RunExport {
	rs := status.FromSnapshot(reg, snap)

	export := &RunExport{
		RunID:      rs.RunID,
		Topic:      rs.Topic,
		Phase:      string(rs.Phase),
		ExportedAt: now.UTC().Format(time.RFC3339),
		Error:      rs.Error,
	}
	for _, si := range rs.Stages {
		se := StageExport{
			Stage:  string(si.Stage),
			Name:   si.Name,
			Rank:   si.Rank,
			Status: string(si.Status),
			Bytes:  si.Bytes,
		}
		if !si.CompletedAt.IsZero() {
			se.CompletedAt = si.CompletedAt.UTC().Format(time.RFC3339)
		}
		export.Stages = append(export.Stages, se)
	}
	if snap.HasFinalOutput() {
		export.Outline = ParseOutline(snap.FinalOutput)
	}
	return export
}

// WriteReport writes export as indented JSON to dir/<slug>.json and returns
// the path.
func WriteReport(dir string, export *RunExport) (string, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export: marshal report: %w", err)
	}
	path := filepath.Join(dir, Slug(export.Topic)+".json")
	if err := writeFile(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// Matches ATX headings: "# Title", "## Title ##".
var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)

// ParseOutline returns the markdown headings of post in order. Lines inside
// fenced code blocks are skipped.
func ParseOutline(post string) []Heading {
	var outline []Heading
	inFence := false

	scanner := bufio.NewScanner(strings.NewReader(post))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRegex.FindStringSubmatch(line); m != nil {
			outline = append(outline, Heading{Level: len(m[1]), Title: m[2]})
		}
	}
	return outline
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dusk-indust/zappy/internal/orchestrator"
	"github.com/dusk-indust/zappy/internal/status"
)

// styleSet holds the styles used for terminal output.
type styleSet struct {
	Title     lipgloss.Style
	Dim       lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Primary   lipgloss.Style
	Box       lipgloss.Style
	NameWidth int
}

func newStyleSet() styleSet {
	return styleSet{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f97316")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#5a5a70")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")),
		Primary:   lipgloss.NewStyle().Foreground(lipgloss.Color("#e0e0e8")),
		Box:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a2a3a")).Padding(0, 1),
		NameWidth: 12,
	}
}

func (s styleSet) statusStyle(st status.StageStatus) lipgloss.Style {
	switch st {
	case status.StatusCompleted:
		return s.Success
	case status.StatusActive:
		return s.Warning
	case status.StatusFailed:
		return s.Error
	default:
		return s.Dim
	}
}

// renderStatus draws the per-stage table of a run inside a bordered box.
func renderStatus(s styleSet, rs status.RunStatus) string {
	var sb strings.Builder
	title := "Pipeline"
	if rs.Topic != "" {
		title = fmt.Sprintf("Pipeline: %s", rs.Topic)
	}
	sb.WriteString(s.Title.Render(title))
	sb.WriteString("\n")

	for _, si := range rs.Stages {
		name := s.Primary.Width(s.NameWidth).Render(si.Name)
		role := s.Dim.Width(30).Render(si.Role)
		state := s.statusStyle(si.Status).Render(string(si.Status))
		sb.WriteString(fmt.Sprintf("%d  %s %s %s", si.Rank, name, role, state))
		if si.Bytes > 0 {
			sb.WriteString(s.Dim.Render(fmt.Sprintf(" (%d bytes)", si.Bytes)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(rs.Summary())

	return s.Box.Render(sb.String())
}

// renderStages draws the pipeline layout, one line per rank.
func renderStages(s styleSet, reg *orchestrator.Registry) string {
	var sb strings.Builder
	for _, group := range reg.Groups() {
		names := make([]string, len(group))
		for i, def := range group {
			names[i] = fmt.Sprintf("%s (%s)", def.DisplayName, def.Role)
		}
		mode := "sequential"
		if len(group) > 1 {
			mode = "concurrent"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			s.Title.Render(fmt.Sprintf("Rank %d", group[0].Rank)),
			s.Dim.Render("["+mode+"]"),
			strings.Join(names, ", ")))
	}
	return sb.String()
}

// renderEndpoints lists agent endpoints in pipeline order.
func renderEndpoints(s styleSet, reg *orchestrator.Registry, endpoints map[orchestrator.StageID]string) string {
	var sb strings.Builder
	seen := make(map[orchestrator.StageID]bool, len(endpoints))
	for _, def := range reg.Stages() {
		url, ok := endpoints[def.ID]
		if !ok {
			continue
		}
		seen[def.ID] = true
		sb.WriteString(fmt.Sprintf("  %s %s\n", s.Primary.Width(s.NameWidth).Render(def.DisplayName), url))
	}
	var extra []string
	for id := range endpoints {
		if !seen[id] {
			extra = append(extra, string(id))
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		sb.WriteString(fmt.Sprintf("  %s %s\n", s.Dim.Width(s.NameWidth).Render(id), endpoints[orchestrator.StageID(id)]))
	}
	return sb.String()
}

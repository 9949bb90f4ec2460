package generator

import (
	"strings"

	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// instructions is the per-stage task given to the model.
var instructions = map[orchestrator.StageID]string{
	orchestrator.StageResearcher: "Gather current, well-sourced medical evidence on the topic. List key findings with their sources.",
	orchestrator.StageWriter:     "Write a long-form blog post draft on the topic using the research report.",
	orchestrator.StageCompliance: "Review the draft for medical accuracy and unsupported claims. List required corrections.",
	orchestrator.StageEnhancer:   "Suggest changes that make the draft easier to read and more engaging.",
	orchestrator.StageSEO:        "Propose a title, meta description, keywords and heading changes for search.",
	orchestrator.StageEditor:     "Produce the final post in Markdown, applying all feedback to the draft.",
}

// Prompt renders the instruction text for one stage call.
func Prompt(def orchestrator.StageDefinition, topic, contextText string) string {
	var b strings.Builder
	b.WriteString("You are the ")
	b.WriteString(def.DisplayName)
	if def.Role != "" {
		b.WriteString(" (")
		b.WriteString(def.Role)
		b.WriteString(")")
	}
	b.WriteString(" in a medical blog content pipeline.\n")
	if instr, ok := instructions[def.ID]; ok {
		b.WriteString(instr)
		b.WriteString("\n")
	}
	b.WriteString("\nTopic: ")
	b.WriteString(topic)
	b.WriteString("\n")
	if contextText != "" {
		b.WriteString("\nMaterial from earlier stages:")
		b.WriteString(contextText)
		b.WriteString("\n")
	}
	return b.String()
}

// Package export writes finished runs to disk and renders the pipeline
// layout as a diagram.
package export

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// ErrNoFinalOutput is returned when exporting a run that has not succeeded.
var ErrNoFinalOutput = errors.New("export: run has no final output")

const maxSlugRunes = 80

// WriteMarkdown writes the final post of snap to dir/<slug>.md and returns
// the path.
func WriteMarkdown(dir string, snap orchestrator.Snapshot) (string, error) {
	if !snap.HasFinalOutput() {
		return "", ErrNoFinalOutput
	}
	body := snap.FinalOutput
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	path := filepath.Join(dir, Slug(snap.Topic)+".md")
	if err := writeFile(path, []byte(body)); err != nil {
		return "", err
	}
	return path, nil
}

// Slug turns a topic into a file name: lower case letters and digits
// separated by single dashes. An empty result becomes "post".
func Slug(topic string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(topic) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if sb.Len() == 0 {
		return "post"
	}
	slug := []rune(sb.String())
	if len(slug) > maxSlugRunes {
		return strings.TrimRight(string(slug[:maxSlugRunes]), "-")
	}
	return string(slug)
}

package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders assistant replies, which often carry lists
// and emphasis. Falls back to the raw text when rendering fails.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

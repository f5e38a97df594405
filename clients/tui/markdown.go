package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer caches one glamour renderer per wrap width.
type markdownRenderer struct {
	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

func (m *markdownRenderer) get(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer != nil && m.width == width {
		return m.renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.width = width
	m.renderer = r
	return r
}

// Render renders markdown content for the given width. If rendering fails,
// the original content is returned.
func (m *markdownRenderer) Render(content string, width int) string {
	if content == "" {
		return ""
	}
	r := m.get(width)
	if r == nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

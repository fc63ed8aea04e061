package markdown

import (
	"fmt"

	"github.com/charmbracelet/glamour"

	"github.com/foomo/teamdirectory/service/vo"
)

// TerminalRenderer renders markdown for display in a terminal.
type TerminalRenderer struct {
	renderer *glamour.TermRenderer
}

// NewTerminalRenderer uses the given glamour style ("dark", "light",
// "notty", ...) or detects one from the terminal when style is "auto".
func NewTerminalRenderer(style string, width int) (*TerminalRenderer, error) {
	styleOption := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		styleOption = glamour.WithAutoStyle()
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	return &TerminalRenderer{renderer: r}, nil
}

func (t *TerminalRenderer) Render(md vo.Markdown) (string, error) {
	out, err := t.renderer.Render(string(md))
	if err != nil {
		return "", fmt.Errorf("failed to render markdown for terminal: %w", err)
	}
	return out, nil
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one labelled value shown in a header or result box.
// Params keep the order they were given in.
type Param struct {
	Key   string
	Value string
}

// Header is the banner printed at the start of a command
type Header struct {
	Title   string  // e.g., "Ask Your Devices"
	Command string  // e.g., "devicechat ask"
	Params  []Param // e.g., {"Devices", "Pixel 8 Pro"}
	Width   int     // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params ...Param) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := max(h.Width, MinTerminalWidth)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		divider := RenderHorizontalDivider(max(width-6, 10), "─")
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, renderParams(h.Params, HeaderParamKeyStyle, HeaderParamValueStyle))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}

func renderParams(params []Param, keyStyle, valueStyle lipgloss.Style) string {
	lines := make([]string, 0, len(params))
	for _, p := range params {
		lines = append(lines, keyStyle.Render(p.Key+":")+" "+valueStyle.Render(p.Value))
	}
	return strings.Join(lines, "\n")
}

package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/devicechat/internal/chat"
)

// Printer writes styled command output to a writer.
// This is the primary way commands should print.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to w.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintItem prints one list entry: a bold label and a muted note
func (p *Printer) PrintItem(index int, label, note string) {
	line := fmt.Sprintf("  %d. %s", index, lipgloss.NewStyle().Bold(true).Render(label))
	if note != "" {
		line += "  " + StepNoteStyle.Render(note)
	}
	p.Println(line)
}

// PrintTranscript prints a chat log box
func (p *Printer) PrintTranscript(messages []chat.Message) {
	p.Println(RenderTranscript(messages, p.width))
}

// PrintPleaseWait prints a highlighted line for a long-running step.
// hint sets expectations, e.g. "up to 60 seconds".
func (p *Printer) PrintPleaseWait(message, hint string) {
	style := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		PaddingLeft(2)

	line := style.Render("⏳ " + message)
	if hint != "" {
		line += " " + StepNoteStyle.Render("("+hint+")")
	}
	p.Println(line + style.UnsetPaddingLeft().Render("..."))
}

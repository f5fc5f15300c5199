// Package output provides consistent CLI output formatting. Colors are
// enabled only when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette, 256-color codes.
const (
	colorLime   = "154"
	colorGray   = "245"
	colorRed    = "196"
	colorYellow = "220"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out      io.Writer
	useColor bool

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
	header  lipgloss.Style
}

// New creates a Writer. Color is used when out is a terminal.
func New(out io.Writer) *Writer {
	useColor := false
	if f, ok := out.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{
		out:      out,
		useColor: useColor,
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorLime)),
		warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
		failure:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime)),
	}
}

func (w *Writer) render(style lipgloss.Style, s string) string {
	if !w.useColor {
		return s
	}
	return style.Render(s)
}

// Println writes a plain line. Write errors are ignored for console output.
func (w *Writer) Println(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Printf writes a plain formatted line.
func (w *Writer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Header writes a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.render(w.header, msg))
}

// Success writes a success line.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.render(w.success, "✓"), msg)
}

// Successf writes a formatted success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning writes a warning line.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.render(w.warning, "!"), msg)
}

// Warningf writes a formatted warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error writes an error line.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.render(w.failure, "✗"), msg)
}

// Errorf writes a formatted error line.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Dim writes a de-emphasized line.
func (w *Writer) Dim(msg string) {
	_, _ = fmt.Fprintln(w.out, w.render(w.dim, msg))
}

// KeyValue writes an aligned "key: value" line.
func (w *Writer) KeyValue(key, value string) {
	_, _ = fmt.Fprintf(w.out, "  %s %s\n",
		w.render(w.dim, fmt.Sprintf("%-14s", key+":")), value)
}

// Snippet writes an indented content excerpt, truncated to maxLen runes.
func (w *Writer) Snippet(content string, maxLen int) {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if maxLen > 0 && len(runes) > maxLen {
		content = string(runes[:maxLen]) + "…"
	}
	_, _ = fmt.Fprintf(w.out, "    %s\n", w.render(w.dim, content))
}

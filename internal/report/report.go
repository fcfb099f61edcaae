// SPDX-License-Identifier: MPL-2.0

// Package report renders user-facing progress output: status lines,
// environment headers, command echoes, errors and skip summaries.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/envrun/envrun/internal/compat"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

const separatorRune = '─'

// Color palette shared by every rendered line.
const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorError     = lipgloss.Color("#EF4444")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorHighlight = lipgloss.Color("#3B82F6")
)

type (
	// Reporter writes progress output to a single stream. Styling follows
	// the stream: plain text unless it is a color-capable terminal.
	Reporter struct {
		out   io.Writer
		width int

		status  lipgloss.Style
		header  lipgloss.Style
		command lipgloss.Style
		err     lipgloss.Style
		warning lipgloss.Style
	}

	// Option configures a Reporter.
	Option func(*options)

	options struct {
		width   int
		noColor bool
	}
)

// WithWidth fixes the separator width instead of probing the terminal.
func WithWidth(width int) Option {
	return func(o *options) { o.width = width }
}

// WithoutColor disables styling even on terminals.
func WithoutColor() Option {
	return func(o *options) { o.noColor = true }
}

// New returns a Reporter writing to w.
func New(w io.Writer, opts ...Option) *Reporter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var renderer *lipgloss.Renderer
	if o.noColor {
		renderer = lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
		renderer.SetColorProfile(termenv.Ascii)
	} else {
		renderer = lipgloss.NewRenderer(w)
	}

	width := o.width
	if width <= 0 {
		width = terminalWidth(w)
	}

	return &Reporter{
		out:     w,
		width:   width,
		status:  renderer.NewStyle().Foreground(colorMuted),
		header:  renderer.NewStyle().Bold(true).Foreground(colorPrimary),
		command: renderer.NewStyle().Foreground(colorHighlight),
		err:     renderer.NewStyle().Bold(true).Foreground(colorError),
		warning: renderer.NewStyle().Foreground(colorWarning),
	}
}

// Status prints a progress line such as "Checking dependencies".
func (r *Reporter) Status(msg string) {
	r.line(r.status.Render(msg))
}

// Header prints the separator introducing an environment's output.
func (r *Reporter) Header(name string) {
	r.line(r.header.Render(Separator(name, r.width)))
}

// Command echoes a pipeline entry.
func (r *Reporter) Command(index int, text string) {
	r.line(fmt.Sprintf("%s %s", r.command.Render(fmt.Sprintf("cmd [%d] |", index)), text))
}

// Error prints an error message.
func (r *Reporter) Error(msg string) {
	r.line(r.err.Render(msg))
}

// Blank prints an empty line.
func (r *Reporter) Blank() {
	r.line("")
}

// Skipped prints the summary of environments left out as incompatible.
func (r *Reporter) Skipped(skips []compat.Skip) {
	if len(skips) == 0 {
		return
	}
	noun := "environment"
	if len(skips) > 1 {
		noun += "s"
	}
	r.line(r.warning.Render(fmt.Sprintf("Skipped %d incompatible %s:", len(skips), noun)))
	for _, s := range skips {
		r.line(fmt.Sprintf("%s -> %s", s.Name, s.Reason))
	}
}

func (r *Reporter) line(s string) {
	_, _ = io.WriteString(r.out, s+"\n")
}

// Separator centers " name " in a rule of width runes. The left side gets
// the smaller half when the padding is odd.
func Separator(name string, width int) string {
	label := " " + name + " "
	fill := width - utf8.RuneCountInString(label)
	if fill < 2 {
		return strings.TrimSpace(label)
	}
	left := fill / 2
	return strings.Repeat(string(separatorRune), left) + label + strings.Repeat(string(separatorRune), fill-left)
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

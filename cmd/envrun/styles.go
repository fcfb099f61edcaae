// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output, tuned for dark terminal backgrounds.
const (
	// ColorPrimary is purple, used for titles and headers.
	ColorPrimary = lipgloss.Color("#7C3AED")
	// ColorMuted is gray, used for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is green.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is red.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is amber.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is blue, used for keys and command names.
	ColorHighlight = lipgloss.Color("#3B82F6")
)

// styles are bound to one writer so that piped output stays plain.
type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	success  lipgloss.Style
	err      lipgloss.Style
	warning  lipgloss.Style
	key      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(ColorPrimary),
		subtitle: r.NewStyle().Foreground(ColorMuted),
		success:  r.NewStyle().Foreground(ColorSuccess),
		err:      r.NewStyle().Bold(true).Foreground(ColorError),
		warning:  r.NewStyle().Foreground(ColorWarning),
		key:      r.NewStyle().Foreground(ColorHighlight),
	}
}

package ui

import "github.com/charmbracelet/lipgloss"

// recall's palette: one cyan accent over neutral grays. ANSI-256 codes,
// so the scheme degrades cleanly on 256-color terminals.
const (
	ColorAccent    = "45"  // bright cyan, primary accent
	ColorAccentDim = "31"  // desaturated cyan for inactive stages
	ColorText      = "255" // headers, important text
	ColorMuted     = "245" // labels, secondary text
	ColorFrame     = "238" // borders, separators
	ColorAlert     = "196" // errors
	ColorCaution   = "220" // warnings
)

func fg(code string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(code))
}

// Styles holds every style the status renderers draw with. Plain mode
// swaps in zero-value styles so the same render paths emit bare text.
type Styles struct {
	// Text
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Stage    lipgloss.Style
	Active   lipgloss.Style
	Progress lipgloss.Style

	// Layout
	Border    lipgloss.Style
	Panel     lipgloss.Style
	Sparkline lipgloss.Style
	Speed     lipgloss.Style
	Label     lipgloss.Style
}

// DefaultStyles returns the colored styles for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:   fg(ColorAccent).Bold(true),
		Success:  fg(ColorAccent),
		Warning:  fg(ColorCaution),
		Error:    fg(ColorAlert),
		Dim:      fg(ColorFrame),
		Stage:    fg(ColorAccentDim),
		Active:   fg(ColorAccent).Bold(true),
		Progress: fg(ColorAccent),

		Border: fg(ColorFrame),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorFrame)).
			Padding(0, 1),
		Sparkline: fg(ColorAccent),
		Speed:     fg(ColorMuted),
		Label:     fg(ColorMuted),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:    plain,
		Success:   plain,
		Warning:   plain,
		Error:     plain,
		Dim:       plain,
		Stage:     plain,
		Active:    plain,
		Progress:  plain,
		Border:    plain,
		Panel:     plain,
		Sparkline: plain,
		Speed:     plain,
		Label:     plain,
	}
}

// GetStyles picks the style set for the color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - single lime green accent.
const (
	ColorLime     = "154" // Primary accent - query headers, strong scores
	ColorLimeDim  = "106" // Dimmed lime for strategy names
	ColorWhite    = "255" // Candidate names
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Separators, trace text
	ColorRed      = "196" // Low quality
	ColorYellow   = "220" // Borderline quality
)

// Styles holds the styles used by the printer.
type Styles struct {
	Header    lipgloss.Style
	Name      lipgloss.Style
	Strategy  lipgloss.Style
	Good      lipgloss.Style
	Warn      lipgloss.Style
	Bad       lipgloss.Style
	Dim       lipgloss.Style
	Label     lipgloss.Style
	Sparkline lipgloss.Style
}

// DefaultStyles returns styled components for interactive terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Name:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Strategy:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Good:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Warn:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Bad:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Sparkline: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle(),
		Name:      lipgloss.NewStyle(),
		Strategy:  lipgloss.NewStyle(),
		Good:      lipgloss.NewStyle(),
		Warn:      lipgloss.NewStyle(),
		Bad:       lipgloss.NewStyle(),
		Dim:       lipgloss.NewStyle(),
		Label:     lipgloss.NewStyle(),
		Sparkline: lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

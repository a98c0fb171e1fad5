package top

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/treetop/internal/meter"
)

// Palette.
const (
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
	ColorGraph  = lipgloss.Color("#00FFFF")
)

// Confidence thresholds in percent.
const (
	ConfidenceWarn     = 90.0
	ConfidenceCritical = 70.0
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CaptionStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	TabStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorAccent).
			Bold(true).
			Padding(0, 1)

	ColumnHeaderStyle = lipgloss.NewStyle().
				Foreground(ColorSurfaceBg).
				Background(ColorHealthy)

	ColumnSortedStyle = lipgloss.NewStyle().
				Foreground(ColorSurfaceBg).
				Background(ColorGraph).
				Bold(true)

	CellStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	// NAStyle shades cells whose value is unavailable.
	NAStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	SelectedRowStyle = lipgloss.NewStyle().
				Background(ColorBorder)

	StaleStyle = lipgloss.NewStyle().
			Foreground(ColorCritical).
			Bold(true)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)
)

// levelStyles colors meter text by reading level.
var levelStyles = map[meter.Level]lipgloss.Style{
	meter.Normal: lipgloss.NewStyle().Foreground(ColorTextPrimary),
	meter.OK:     lipgloss.NewStyle().Foreground(ColorHealthy),
	meter.Warn:   lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
	meter.Shadow: lipgloss.NewStyle().Foreground(ColorTextMuted),
	meter.Active: lipgloss.NewStyle().Foreground(ColorGraph).Bold(true),
}

// LevelStyle returns the style for a meter reading level.
func LevelStyle(l meter.Level) lipgloss.Style {
	if s, ok := levelStyles[l]; ok {
		return s
	}
	return levelStyles[meter.Normal]
}

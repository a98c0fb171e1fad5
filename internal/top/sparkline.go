package top

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// Sparkline maps data onto block characters, keeping the most recent width
// points. Levels are scaled from zero to maximum; a maximum of zero or less
// scales to the largest value in data.
func Sparkline(data []float64, width int, maximum float64) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}
	if maximum <= 0 {
		for _, v := range data {
			if v > maximum {
				maximum = v
			}
		}
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	numLevels := len(sparklineBlockRunes)
	for _, v := range data {
		level := 0
		if maximum > 0 {
			level = int(v / maximum * float64(numLevels-1))
		}
		if level < 0 {
			level = 0
		} else if level >= numLevels {
			level = numLevels - 1
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}
	return sb.String()
}

// ConfidenceSparkline renders confidence percentages, colored by the most
// recent reading.
func ConfidenceSparkline(data []float64, width int) string {
	line := Sparkline(data, width, 100)
	if line == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(confidenceColor(data[len(data)-1])).Render(line)
}

// confidenceColor is green at or above 90%, amber from 70% and red below.
func confidenceColor(percent float64) lipgloss.Color {
	switch {
	case percent >= ConfidenceWarn:
		return ColorHealthy
	case percent >= ConfidenceCritical:
		return ColorWarning
	default:
		return ColorCritical
	}
}

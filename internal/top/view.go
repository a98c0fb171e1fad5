package top

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/treetop/internal/meter"
)

// sparkWidth is the number of points drawn next to a meter.
const sparkWidth = 20

// renderTop renders meters, tabs, column header, rows and footer.
func (m Model) renderTop() string {
	var b strings.Builder

	for _, line := range m.renderMeters() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderColumnHeader())
	b.WriteString("\n")
	if m.bodyReady {
		b.WriteString(m.body.View())
	} else {
		b.WriteString(m.renderRows())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// meterLines pairs meters two per line, left and right.
func meterLines(readings []meter.Reading) [][]meter.Reading {
	half := (len(readings) + 1) / 2
	lines := make([][]meter.Reading, 0, half)
	for i := 0; i < half; i++ {
		line := []meter.Reading{readings[i]}
		if j := i + half; j < len(readings) {
			line = append(line, readings[j])
		}
		lines = append(lines, line)
	}
	return lines
}

func (m Model) renderMeters() []string {
	colWidth := m.width / 2
	var out []string
	for _, pair := range meterLines(m.frame.Meters) {
		left := m.renderMeter(pair[0])
		if len(pair) == 1 {
			out = append(out, left)
			continue
		}
		if pad := colWidth - lipgloss.Width(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		} else {
			left += "  "
		}
		out = append(out, left+m.renderMeter(pair[1]))
	}
	return out
}

func (m Model) renderMeter(r meter.Reading) string {
	text := CaptionStyle.Render(r.Caption) + LevelStyle(r.Level).Render(r.Text)
	switch {
	case r.Name == "confidence" && r.Text != meter.Unreachable:
		if spark := ConfidenceSparkline(m.history.Last(sparkWidth), sparkWidth); spark != "" {
			text += " " + spark
		}
	case len(r.Series) > 0 && r.Text != meter.Unreachable:
		// Series is newest first; draw oldest on the left.
		series := make([]float64, len(r.Series))
		for i, v := range r.Series {
			series[len(series)-1-i] = v
		}
		style := lipgloss.NewStyle().Foreground(ColorGraph)
		text += " " + style.Render(Sparkline(series, sparkWidth, r.Max))
	}
	return text
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(m.frame.Screens))
	for i, name := range m.frame.Screens {
		if i == m.frame.ScreenIndex {
			tabs = append(tabs, TabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, TabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderColumnHeader() string {
	var b strings.Builder
	for i, title := range m.frame.Titles {
		if i == m.frame.SortIndex {
			b.WriteString(ColumnSortedStyle.Render(title))
		} else {
			b.WriteString(ColumnHeaderStyle.Render(title))
		}
	}
	return b.String()
}

// renderRows renders the table body, one line per row. Unavailable cells
// are shaded and the selected row is highlighted.
func (m Model) renderRows() string {
	if len(m.frame.Rows) == 0 {
		return CaptionStyle.Render("No rows yet")
	}
	lines := make([]string, len(m.frame.Rows))
	for i, cells := range m.frame.Rows {
		var b strings.Builder
		for j, cell := range cells {
			style := CellStyle
			if m.frame.Missing[i][j] {
				style = NAStyle
			}
			if i == m.selected {
				style = style.Inherit(SelectedRowStyle)
			}
			b.WriteString(style.Render(cell))
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	status := []string{
		fmt.Sprintf("%s %s", m.frame.Sort.Key, sortArrow(m.frame.Sort.Direction)),
		fmt.Sprintf("%d rows", len(m.frame.Rows)),
		"updated " + updateAge(m.lastUpdate, time.Now()),
	}
	line := FooterStyle.Render(strings.Join(status, " | "))
	if m.paused {
		line += " " + PausedStyle.Render("PAUSED")
	}
	if m.frame.Err != nil {
		line += " " + StaleStyle.Render("STALE: "+m.frame.Err.Error())
	}
	return line + "\n" + FooterStyle.Render(m.help.ShortHelpView(keys.ShortHelp()))
}

func sortArrow(direction string) string {
	if direction == "asc" {
		return "▲"
	}
	return "▼"
}

// updateAge describes how long ago last was.
func updateAge(last, now time.Time) string {
	if last.IsZero() {
		return "never"
	}
	switch secs := int(now.Sub(last).Seconds()); secs {
	case 0:
		return "just now"
	case 1:
		return "1s ago"
	default:
		return fmt.Sprintf("%ds ago", secs)
	}
}

var (
	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Background(ColorSurfaceBg).
			Padding(1, 2)

	helpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			MarginBottom(1)
)

// renderHelpOverlay renders a centered box with every key binding.
func (m Model) renderHelpOverlay() string {
	lines := []string{
		helpTitleStyle.Render("Keyboard Shortcuts"),
		m.help.FullHelpView(keys.FullHelp()),
		"",
		CaptionStyle.Render("Press ? or esc to close"),
	}
	box := helpBoxStyle.Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

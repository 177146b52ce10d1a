package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minWidth = 40

	cellMinWidth       = 18
	defaultGridColumns = 4
)

type panelDimensions struct {
	contentW    int
	gridColumns int
	cellW       int
}

// computeDimensions sizes the grid so that cells never shrink below
// cellMinWidth and never exceed maxCols per row.
func computeDimensions(totalW, maxCols int) panelDimensions {
	if totalW < minWidth {
		totalW = minWidth
	}
	if maxCols < 1 {
		maxCols = defaultGridColumns
	}

	d := panelDimensions{contentW: totalW - 4}

	cols := d.contentW / cellMinWidth
	if cols > maxCols {
		cols = maxCols
	}
	if cols < 1 {
		cols = 1
	}
	d.gridColumns = cols
	d.cellW = d.contentW / cols
	return d
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	cellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	cellNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	cellCountStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	refreshingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")).
			Background(lipgloss.Color("62"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

func renderBorderedPanel(title, content string, w int) string {
	body := panelTitleStyle.Render(title) + "\n" + content
	return panelBorderStyle.
		Width(w - 2).
		Render(body)
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func (m Model) renderDashboard() string {
	width := m.width
	if width < minWidth {
		width = minWidth
	}
	dims := computeDimensions(width, m.cfg.Display.MaxGridColumns)

	header := m.renderHeader(width)
	summary := m.renderSummary()
	grid := renderBorderedPanel("Tool Breakdown", m.renderGrid(dims), width)
	logs := renderBorderedPanel("Recent Activity", m.renderLogTable(dims), width)
	footer := statusBarStyle.Render(" " + m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, header, summary, grid, logs, footer)
}

func (m Model) renderHeader(width int) string {
	title := " tooltop"
	source := ""
	if m.source != "" {
		source = " " + m.source
	}

	indicator := ""
	if m.refreshing() {
		indicator = " " + refreshingStyle.Render("[refreshing]")
	}

	label := m.lastUpdatedLabel() + " "

	padding := width - lipgloss.Width(title) - lipgloss.Width(source) - lipgloss.Width(indicator) - lipgloss.Width(label)
	if padding < 0 {
		padding = 0
	}

	return headerStyle.Width(width).Render(title + source + indicator + strings.Repeat(" ", padding) + label)
}

// lastUpdatedLabel shows a placeholder until the first successful refresh.
func (m Model) lastUpdatedLabel() string {
	if !m.display.Refreshed() {
		return m.locale.RefreshedPrefix + "--:--:--"
	}
	return m.display.RefreshedLabel
}

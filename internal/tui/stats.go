package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nixlim/tooltop/internal/dashboard"
)

const (
	timeColumnW   = 16
	toolColumnMin = 12
)

func (m Model) renderSummary() string {
	v := m.display.View
	total := cardStyle.Render(
		dimStyle.Render("Total Calls") + "\n" + cardValueStyle.Render(humanize.Comma(v.TotalCalls)))
	tools := cardStyle.Render(
		dimStyle.Render("Tools") + "\n" + cardValueStyle.Render(humanize.Comma(int64(v.ToolCount))))
	return lipgloss.JoinHorizontal(lipgloss.Top, total, " ", tools)
}

// renderGrid lays cells out row-major in payload order.
func (m Model) renderGrid(dims panelDimensions) string {
	cells := m.display.Cells
	if len(cells) == 0 {
		return dimStyle.Render("  No tool data")
	}

	var rows []string
	for start := 0; start < len(cells); start += dims.gridColumns {
		end := start + dims.gridColumns
		if end > len(cells) {
			end = len(cells)
		}
		rendered := make([]string, 0, end-start)
		for _, c := range cells[start:end] {
			rendered = append(rendered, renderCell(c, dims.cellW))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCell(c dashboard.Cell, w int) string {
	inner := w - 4
	if inner < 4 {
		inner = 4
	}
	name := cellNameStyle.Render(truncateStr(c.ToolName, inner))
	count := cellCountStyle.Render(humanize.Comma(c.Count))
	return cellStyle.Width(w - 2).Render(name + "\n" + count)
}

func (m Model) renderLogTable(dims panelDimensions) string {
	rows := m.display.Rows
	toolW := dims.contentW - timeColumnW - len(m.locale.StatusSuccess) - 6
	if toolW < toolColumnMin {
		toolW = toolColumnMin
	}

	lines := []string{
		fmt.Sprintf("  %-*s %-*s %s", toolW, "Tool", timeColumnW, "Time", "Status"),
		dimStyle.Render("  " + strings.Repeat("─", toolW+timeColumnW+len(m.locale.StatusSuccess)+2)),
	}
	if len(rows) == 0 {
		lines = append(lines, dimStyle.Render("  No recent activity"))
		return strings.Join(lines, "\n")
	}
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %s %-*s %s",
			padRight(truncateStr(r.ToolName, toolW), toolW),
			timeColumnW, r.Time,
			statusBadgeStyle.Render(r.Status)))
	}
	return strings.Join(lines, "\n")
}

func truncateStr(s string, maxLen int) string {
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > maxLen-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "."
}

// padRight pads by display width so wide runes keep the columns aligned.
func padRight(s string, w int) string {
	if gap := w - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// Package dashboard turns a stats payload into the structured view the
// terminal UI draws. Everything here is pure: the same payload always
// produces the same view.
package dashboard

import (
	"time"

	"github.com/nixlim/tooltop/internal/stats"
)

// Cell is one entry of the per-tool breakdown grid.
type Cell struct {
	ToolName string
	Count    int64
}

// LogRow is one row of the recent activity table.
type LogRow struct {
	ToolName string
	Time     string
	Status   string
}

// View is the complete content of the counters, grid and log table.
type View struct {
	TotalCalls int64
	ToolCount  int
	Cells      []Cell
	Rows       []LogRow
}

// DisplayState is what the dashboard currently shows. It is replaced as a
// whole after every successful refresh and never patched.
type DisplayState struct {
	View
	LastRefreshedAt time.Time
	RefreshedLabel  string
}

// Refreshed reports whether any successful refresh has been applied.
func (d DisplayState) Refreshed() bool {
	return !d.LastRefreshedAt.IsZero()
}

// BuildView maps the payload to cells and rows in payload order.
func BuildView(p stats.Payload, loc Locale) View {
	v := View{
		TotalCalls: p.TotalCalls(),
		ToolCount:  p.ToolCount(),
		Cells:      make([]Cell, 0, len(p.ToolStats)),
		Rows:       make([]LogRow, 0, len(p.RecentLogs)),
	}
	for _, tc := range p.ToolStats {
		v.Cells = append(v.Cells, Cell{ToolName: tc.ToolName, Count: tc.Count})
	}
	for _, le := range p.RecentLogs {
		v.Rows = append(v.Rows, LogRow{
			ToolName: le.ToolName,
			Time:     loc.FormatTimestamp(le.Timestamp),
			Status:   loc.StatusSuccess,
		})
	}
	return v
}

// Render builds a fresh DisplayState stamped with now, the wall-clock time of
// the successful fetch.
func Render(p stats.Payload, now time.Time, loc Locale) DisplayState {
	return DisplayState{
		View:            BuildView(p, loc),
		LastRefreshedAt: now,
		RefreshedLabel:  loc.RefreshedLabel(now),
	}
}

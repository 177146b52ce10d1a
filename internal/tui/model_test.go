package tui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nixlim/tooltop/internal/client"
	"github.com/nixlim/tooltop/internal/config"
	"github.com/nixlim/tooltop/internal/dashboard"
	"github.com/nixlim/tooltop/internal/refresh"
	"github.com/nixlim/tooltop/internal/stats"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type stubFetcher struct {
	payload stats.Payload
	err     error
}

func (s *stubFetcher) Fetch(context.Context) (stats.Payload, error) {
	return s.payload, s.err
}

// noTick arms nothing; the tests drive ticks and results by hand.
func noTick(time.Duration, func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg { return nil }
}

func examplePayload() stats.Payload {
	return stats.Payload{
		ToolStats: []stats.ToolCount{
			{ToolName: "search", Count: 3},
			{ToolName: "fetch", Count: 7},
		},
		RecentLogs: []stats.LogEntry{
			{ToolName: "fetch", Timestamp: "2024-01-01T10:00:00Z"},
		},
	}
}

func utcLocale() dashboard.Locale {
	loc := dashboard.ZhCN
	loc.Location = time.UTC
	return loc
}

func newTestModel(t *testing.T, opts ...ModelOption) (Model, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	sched := refresh.New(&stubFetcher{}, refresh.WithTickFunc(noTick))

	base := []ModelOption{
		WithScheduler(sched),
		WithLogger(zap.New(core)),
		WithLocale(utcLocale()),
	}
	m := NewModel(config.DefaultConfig(), append(base, opts...)...)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return updated.(Model), logs
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestUpdate_SuccessReplacesDisplay(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})

	d := m.Display()
	if d.TotalCalls != 10 {
		t.Errorf("TotalCalls = %d, want 10", d.TotalCalls)
	}
	if d.ToolCount != 2 {
		t.Errorf("ToolCount = %d, want 2", d.ToolCount)
	}
	if !d.LastRefreshedAt.Equal(fixedNow) {
		t.Errorf("LastRefreshedAt = %v, want %v", d.LastRefreshedAt, fixedNow)
	}
	wantCells := []dashboard.Cell{{ToolName: "search", Count: 3}, {ToolName: "fetch", Count: 7}}
	if !reflect.DeepEqual(d.Cells, wantCells) {
		t.Errorf("Cells = %+v, want %+v", d.Cells, wantCells)
	}
	wantRows := []dashboard.LogRow{{ToolName: "fetch", Time: "01/01 10:00:00", Status: "Success"}}
	if !reflect.DeepEqual(d.Rows, wantRows) {
		t.Errorf("Rows = %+v, want %+v", d.Rows, wantRows)
	}
}

func TestUpdate_SecondSuccessReplacesWholesale(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})

	later := fixedNow.Add(5 * time.Second)
	m = apply(t, m, refresh.ResultMsg{Payload: stats.Payload{
		ToolStats:  []stats.ToolCount{{ToolName: "read_url", Count: 1}},
		RecentLogs: []stats.LogEntry{},
	}, At: later})

	d := m.Display()
	if d.TotalCalls != 1 || d.ToolCount != 1 || len(d.Rows) != 0 {
		t.Errorf("display not replaced: %+v", d.View)
	}
	if d.Cells[0].ToolName != "read_url" {
		t.Errorf("Cells = %+v", d.Cells)
	}
	if !d.LastRefreshedAt.Equal(later) {
		t.Errorf("LastRefreshedAt = %v, want %v", d.LastRefreshedAt, later)
	}
}

func TestUpdate_FailureLeavesDisplayAndLogsOnce(t *testing.T) {
	m, logs := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})
	before := m.Display()
	beforeView := m.View()

	failure := &client.FetchError{
		URL:        "http://127.0.0.1:9191/api/stats",
		StatusCode: 500,
		Err:        errors.New("unexpected status 500 Internal Server Error"),
	}
	m = apply(t, m, refresh.ResultMsg{Err: failure, At: fixedNow.Add(5 * time.Second)})

	if !reflect.DeepEqual(m.Display(), before) {
		t.Errorf("display changed after failure:\nbefore %+v\nafter  %+v", before, m.Display())
	}
	if m.View() != beforeView {
		t.Error("rendered view changed after failure")
	}
	if logs.Len() != 1 {
		t.Fatalf("log entries = %d, want 1", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entry.Level)
	}
	if logs.FilterField(zap.Int("status", 500)).Len() != 1 {
		t.Error("expected the status code on the log entry")
	}
}

func TestUpdate_FailureBeforeFirstSuccess(t *testing.T) {
	m, logs := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Err: &client.FetchError{Err: errors.New("connection refused")}})

	if m.Display().Refreshed() {
		t.Error("failure must not mark the display refreshed")
	}
	if logs.Len() != 1 {
		t.Errorf("log entries = %d, want 1", logs.Len())
	}
	if !strings.Contains(stripAnsi(m.View()), "最后更新: --:--:--") {
		t.Error("label should keep its placeholder")
	}
}

func TestUpdate_RefreshKey(t *testing.T) {
	m, _ := newTestModel(t)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("refresh key should issue a cycle")
	}
	if !m.refreshing() {
		t.Error("refresh key should raise the refreshing flag")
	}
	if !strings.Contains(stripAnsi(m.View()), "[refreshing]") {
		t.Error("header should show the refreshing indicator")
	}

	m = apply(t, m, refresh.ClearMsg{})
	if m.refreshing() {
		t.Error("ClearMsg should drop the indicator")
	}
}

func TestUpdate_ManualFailureStillSchedulesClear(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

	_, cmd := m.Update(refresh.ResultMsg{Err: errors.New("boom"), Manual: true})
	if cmd == nil {
		t.Error("a failed manual cycle must still schedule the indicator clear")
	}
}

func TestUpdate_QuitKey(t *testing.T) {
	m, _ := newTestModel(t)
	m.Init()
	if m.scheduler.ActiveTimer() == 0 {
		t.Fatal("Init should arm the scheduler")
	}
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command should produce tea.QuitMsg")
	}
	if m.scheduler.ActiveTimer() != 0 {
		t.Error("quit should stop the scheduler")
	}
	if m.View() != "Shutting down...\n" {
		t.Errorf("View after quit = %q", m.View())
	}
}

func TestUpdate_WithoutScheduler(t *testing.T) {
	m := NewModel(config.DefaultConfig())
	if m.Init() != nil {
		t.Error("Init without scheduler should be nil")
	}
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd != nil {
		t.Error("refresh without scheduler should be a no-op")
	}
	updated.(Model).View()
}

func TestView_Regions(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})

	view := stripAnsi(m.View())
	for _, want := range []string{
		"tooltop",
		"最后更新: 12:00:00",
		"Total Calls",
		"10",
		"Tools",
		"Tool Breakdown",
		"search",
		"fetch",
		"Recent Activity",
		"01/01 10:00:00",
		"Success",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_EmptyPayload(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Payload: stats.Payload{
		ToolStats:  []stats.ToolCount{},
		RecentLogs: []stats.LogEntry{},
	}, At: fixedNow})

	view := stripAnsi(m.View())
	if !strings.Contains(view, "No tool data") {
		t.Error("empty grid should say so")
	}
	if !strings.Contains(view, "No recent activity") {
		t.Error("empty table should say so")
	}
	if !strings.Contains(view, "最后更新: 12:00:00") {
		t.Error("empty payload still counts as a successful refresh")
	}
}

func TestView_Idempotent(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})
	first := m.View()

	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})
	if m.View() != first {
		t.Error("rendering the same payload twice should produce the same view")
	}
}

func TestView_TruncatesToHeight(t *testing.T) {
	m, _ := newTestModel(t)
	m = apply(t, m, tea.WindowSizeMsg{Width: 120, Height: 5})
	m = apply(t, m, refresh.ResultMsg{Payload: examplePayload(), At: fixedNow})

	if got := len(strings.Split(m.View(), "\n")); got > 5 {
		t.Errorf("view has %d lines, want <= 5", got)
	}
}

func TestComputeDimensions(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		maxCols  int
		wantCols int
	}{
		{"wide capped by max", 200, 4, 4},
		{"narrow", 40, 4, 2},
		{"single column", 40, 1, 1},
		{"unset max falls back", 200, 0, defaultGridColumns},
		{"below minimum width", 10, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := computeDimensions(tt.width, tt.maxCols)
			if d.gridColumns != tt.wantCols {
				t.Errorf("gridColumns = %d, want %d", d.gridColumns, tt.wantCols)
			}
			if d.cellW*d.gridColumns > d.contentW {
				t.Errorf("cells overflow: %d x %d > %d", d.cellW, d.gridColumns, d.contentW)
			}
		})
	}
}

func TestTruncateStr(t *testing.T) {
	if got := truncateStr("web_search", 20); got != "web_search" {
		t.Errorf("short string changed: %q", got)
	}
	if got := truncateStr("google_search_extended", 10); got != "google_se." {
		t.Errorf("truncateStr = %q", got)
	}
}

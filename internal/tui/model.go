package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/client"
	"github.com/nixlim/tooltop/internal/config"
	"github.com/nixlim/tooltop/internal/dashboard"
	"github.com/nixlim/tooltop/internal/refresh"
)

// Model is the dashboard program. The display state is replaced only after a
// successful refresh; failed cycles are logged and otherwise invisible.
type Model struct {
	width    int
	height   int
	keys     KeyMap
	help     help.Model
	quitting bool

	cfg config.Config

	scheduler *refresh.Scheduler
	locale    dashboard.Locale
	logger    *zap.Logger
	source    string

	display dashboard.DisplayState
}

func NewModel(cfg config.Config, opts ...ModelOption) Model {
	m := Model{
		keys:   DefaultKeyMap(),
		help:   help.New(),
		cfg:    cfg,
		locale: dashboard.ZhCN,
		logger: zap.NewNop(),
		source: cfg.Client.StatsURL,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

type ModelOption func(*Model)

func WithScheduler(s *refresh.Scheduler) ModelOption {
	return func(m *Model) { m.scheduler = s }
}

func WithLogger(l *zap.Logger) ModelOption {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithLocale(l dashboard.Locale) ModelOption {
	return func(m *Model) { m.locale = l }
}

// WithSource sets the endpoint name shown in the header.
func WithSource(url string) ModelOption {
	return func(m *Model) { m.source = url }
}

func (m Model) Init() tea.Cmd {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Start()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case refresh.TickMsg:
		if m.scheduler == nil {
			return m, nil
		}
		return m, m.scheduler.HandleTick(msg)

	case refresh.ResultMsg:
		return m.applyResult(msg)

	case refresh.ClearMsg:
		if m.scheduler != nil {
			m.scheduler.HandleClear(msg)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) applyResult(msg refresh.ResultMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.scheduler != nil {
		cmd = m.scheduler.HandleResult(msg)
	}

	if msg.Err != nil {
		fields := []zap.Field{zap.Bool("manual", msg.Manual), zap.Error(msg.Err)}
		var fe *client.FetchError
		if errors.As(msg.Err, &fe) && fe.StatusCode != 0 {
			fields = append(fields, zap.Int("status", fe.StatusCode))
		}
		m.logger.Warn("failed to fetch stats", fields...)
		return m, cmd
	}

	m.display = dashboard.Render(msg.Payload, msg.At, m.locale)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.scheduler != nil {
			m.scheduler.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		if m.scheduler == nil {
			return m, nil
		}
		return m, m.scheduler.ManualRefresh()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	return m, nil
}

// Display returns the state currently on screen.
func (m Model) Display() dashboard.DisplayState {
	return m.display
}

func (m Model) refreshing() bool {
	return m.scheduler != nil && m.scheduler.Refreshing()
}

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	output := m.renderDashboard()

	if m.height > 0 {
		lines := strings.Split(output, "\n")
		if len(lines) > m.height {
			lines = lines[:m.height]
			output = strings.Join(lines, "\n")
		}
	}

	return output
}

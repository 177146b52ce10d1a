// Package refresh drives the dashboard's fetch cycles: an immediate fetch on
// start, a repeating interval timer, and manual refreshes that restart the
// interval.
//
// A Scheduler is owned by the bubbletea Update loop and must only be touched
// from there. Timer cancellation is expressed with generations: every tick
// carries the generation of the timer that produced it, and re-arming bumps
// the generation so ticks from the previous timer are ignored. Because the
// bump and the new tick command are produced in the same Update turn, at most
// one timer is live at any moment.
package refresh

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixlim/tooltop/internal/stats"
)

const (
	DefaultInterval   = 5000 * time.Millisecond
	DefaultMinVisible = 500 * time.Millisecond
)

// Fetcher performs one stats fetch.
type Fetcher interface {
	Fetch(ctx context.Context) (stats.Payload, error)
}

// TickMsg is delivered when an interval timer fires.
type TickMsg struct {
	Gen uint64
	At  time.Time
}

// ResultMsg carries the outcome of one refresh cycle. At is the wall-clock
// time the fetch resolved.
type ResultMsg struct {
	Payload stats.Payload
	Err     error
	Manual  bool
	At      time.Time
}

// ClearMsg ends the visual refreshing indicator of a manual refresh.
type ClearMsg struct{}

// TickFunc schedules fn after d. tea.Tick is the production implementation.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

type Scheduler struct {
	fetcher    Fetcher
	ctx        context.Context
	interval   time.Duration
	minVisible time.Duration
	tick       TickFunc
	now        func() time.Time

	gen        uint64
	armed      bool
	refreshing bool
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func WithMinVisible(d time.Duration) Option {
	return func(s *Scheduler) { s.minVisible = d }
}

func WithTickFunc(fn TickFunc) Option {
	return func(s *Scheduler) { s.tick = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithContext sets the context handed to every fetch. Cancelling it is the
// only way an in-flight fetch is abandoned.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) { s.ctx = ctx }
}

func New(f Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:    f,
		ctx:        context.Background(),
		interval:   DefaultInterval,
		minVisible: DefaultMinVisible,
		tick:       tea.Tick,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start issues an immediate cycle and arms the repeating timer.
func (s *Scheduler) Start() tea.Cmd {
	return tea.Batch(s.cycle(false), s.rearm())
}

// ManualRefresh raises the refreshing flag, issues a cycle, and replaces the
// armed timer with a fresh full-interval one. Earlier manual cycles that are
// still in flight are not affected.
func (s *Scheduler) ManualRefresh() tea.Cmd {
	s.refreshing = true
	return tea.Batch(s.cycle(true), s.rearm())
}

// HandleTick runs a cycle for the live timer and re-arms it at the same
// generation. Ticks from cancelled timers are dropped.
func (s *Scheduler) HandleTick(msg TickMsg) tea.Cmd {
	if !s.armed || msg.Gen != s.gen {
		return nil
	}
	return tea.Batch(s.cycle(false), s.tickCmd(s.gen))
}

// HandleResult schedules the end of the refreshing indicator once a manual
// cycle has settled, whether it succeeded or failed.
func (s *Scheduler) HandleResult(msg ResultMsg) tea.Cmd {
	if !msg.Manual {
		return nil
	}
	return s.tick(s.minVisible, func(time.Time) tea.Msg {
		return ClearMsg{}
	})
}

func (s *Scheduler) HandleClear(ClearMsg) {
	s.refreshing = false
}

// Stop disarms the timer; pending ticks become no-ops.
func (s *Scheduler) Stop() {
	s.armed = false
	s.gen++
}

func (s *Scheduler) Refreshing() bool { return s.refreshing }

// ActiveTimer is the generation of the live timer, or 0 if none is armed.
func (s *Scheduler) ActiveTimer() uint64 {
	if !s.armed {
		return 0
	}
	return s.gen
}

func (s *Scheduler) rearm() tea.Cmd {
	s.gen++
	s.armed = true
	return s.tickCmd(s.gen)
}

func (s *Scheduler) tickCmd(gen uint64) tea.Cmd {
	return s.tick(s.interval, func(t time.Time) tea.Msg {
		return TickMsg{Gen: gen, At: t}
	})
}

func (s *Scheduler) cycle(manual bool) tea.Cmd {
	f, ctx, now := s.fetcher, s.ctx, s.now
	return func() tea.Msg {
		p, err := f.Fetch(ctx)
		return ResultMsg{Payload: p, Err: err, Manual: manual, At: now()}
	}
}

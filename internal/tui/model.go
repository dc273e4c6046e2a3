// Package tui renders a live view of one or more orders: the delivery stage,
// the countdown to the next delivery and the cancel action.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/order"
)

type SessionState int

const (
	StateWatch SessionState = iota
	StateConfirmCancel
)

// Tab is one watched order.
type Tab struct {
	Controller *order.Controller
	Label      string
}

type ConfirmationFormModel struct {
	Confirmed bool
}

type Model struct {
	tabs     []Tab
	snaps    []order.Snapshot
	selected int
	state    SessionState
	keys     KeyMap
	help     help.Model
	form     *huh.Form
	confirm  *ConfirmationFormModel
	interval time.Duration
	now      func() time.Time
	timeout  time.Duration
	notice   string
	err      error
	quitting bool
	width    int
	height   int
}

type Option func(*Model)

// WithInterval sets the refresh cadence.
func WithInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

func NewModel(tabs []Tab, opts ...Option) Model {
	m := Model{
		tabs:     tabs,
		snaps:    make([]order.Snapshot, len(tabs)),
		state:    StateWatch,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		interval: constants.DefaultCountdownInterval,
		now:      time.Now,
		timeout:  constants.DefaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh(m.now())
	return m
}

type TickMsg time.Time

type cancelResultMsg struct {
	index int
	err   error
}

type reloadResultMsg struct {
	index int
	err   error
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Selected returns the snapshot of the order on screen.
func (m Model) Selected() (order.Snapshot, bool) {
	if len(m.snaps) == 0 {
		return order.Snapshot{}, false
	}
	return m.snaps[m.selected], true
}

func (m *Model) refresh(now time.Time) {
	for i, t := range m.tabs {
		m.snaps[i] = t.Controller.Evaluate(now)
	}
}

func (m Model) cancelCmd(index int) tea.Cmd {
	c := m.tabs[index].Controller
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return cancelResultMsg{index: index, err: c.Cancel(ctx)}
	}
}

func (m Model) reloadCmd(index int) tea.Cmd {
	c := m.tabs[index].Controller
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return reloadResultMsg{index: index, err: c.Load(ctx)}
	}
}

func newConfirmationForm(fm *ConfirmationFormModel, label string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Cancel order " + label + "?").
				Description("Remaining deliveries will not be made.").
				Affirmative("Cancel order").
				Negative("Keep it").
				Value(&fm.Confirmed),
		),
	).WithTheme(huh.ThemeDracula())
}

package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/order"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		m.refresh(time.Time(msg))
		return m, m.tick()

	case cancelResultMsg:
		m.refresh(m.now())
		label := m.label(msg.index)
		switch {
		case msg.err == nil:
			m.err = nil
			m.notice = "Order " + label + " cancelled."
		case errors.Is(msg.err, order.ErrCancelInFlight):
			m.notice = "A cancellation is already in progress."
		default:
			logger.Warn("Cancel from watch view failed", "order", m.tabs[msg.index].Controller.OrderID(), "error", msg.err)
			m.err = msg.err
			m.notice = ""
		}
		return m, nil

	case reloadResultMsg:
		m.refresh(m.now())
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.notice = "Reloaded " + m.label(msg.index) + "."
		}
		return m, nil
	}

	if m.state == StateConfirmCancel {
		return m.updateConfirmation(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Tab):
			if n := len(m.tabs); n > 0 {
				m.selected = (m.selected + 1) % n
			}
		case key.Matches(msg, m.keys.ShiftTab):
			if n := len(m.tabs); n > 0 {
				m.selected = (m.selected - 1 + n) % n
			}
		case key.Matches(msg, m.keys.Reload):
			if len(m.tabs) > 0 {
				m.notice = "Reloading..."
				return m, m.reloadCmd(m.selected)
			}
		case key.Matches(msg, m.keys.Cancel):
			return m.startCancel()
		}
	}
	return m, nil
}

func (m Model) startCancel() (tea.Model, tea.Cmd) {
	snap, ok := m.Selected()
	if !ok {
		return m, nil
	}
	if !snap.CanCancel() {
		switch {
		case snap.CancelInFlight:
			m.notice = "A cancellation is already in progress."
		case snap.Message != "":
			m.notice = snap.Message
		default:
			m.notice = "This order cannot be cancelled right now."
		}
		return m, nil
	}
	m.confirm = &ConfirmationFormModel{}
	m.form = newConfirmationForm(m.confirm, m.label(m.selected))
	m.state = StateConfirmCancel
	return m, m.form.Init()
}

func (m Model) updateConfirmation(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateWatch
		m.form = nil
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if m.confirm != nil && m.confirm.Confirmed {
			m.notice = "Cancelling..."
			cmds = append(cmds, m.cancelCmd(m.selected))
		}
		m.state = StateWatch
		m.form = nil
	case huh.StateAborted:
		m.state = StateWatch
		m.form = nil
	}
	return m, tea.Batch(cmds...)
}

func (m Model) label(i int) string {
	if i < 0 || i >= len(m.tabs) {
		return ""
	}
	if m.tabs[i].Label != "" {
		return m.tabs[i].Label
	}
	return m.tabs[i].Controller.OrderID()
}

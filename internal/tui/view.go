package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/order"
)

var pipeline = []models.DeliveryStage{
	models.StageConfirmed,
	models.StagePreparing,
	models.StageOutForDelivery,
	models.StageDelivered,
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if len(m.tabs) == 0 {
		return titleStyle.Render("No orders to watch.")
	}

	var content string
	switch m.state {
	case StateConfirmCancel:
		content = m.form.View()
	default:
		content = m.viewOrder(m.snaps[m.selected])
	}

	parts := []string{}
	if len(m.tabs) > 1 {
		parts = append(parts, m.viewTabs())
	}
	parts = append(parts, docStyle.Render(content))
	if line := m.viewStatusLine(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, m.help.View(m.keys))

	ui := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, ui)
	}
	return ui
}

func (m Model) viewTabs() string {
	var tabs []string
	for i := range m.tabs {
		if i == m.selected {
			tabs = append(tabs, activeTabStyle.Render(m.label(i)))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(m.label(i)))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewOrder(snap order.Snapshot) string {
	title := titleStyle.Render("Order " + m.label(m.selected))

	if snap.Condition != order.ConditionActive {
		msg := snap.Message
		if msg == "" {
			msg = snap.Condition.Message()
		}
		style := mutedStyle
		if snap.Condition == order.ConditionNotFound {
			style = dangerStyle
		}
		return lipgloss.JoinVertical(lipgloss.Center, title, stageStyle.Render(style.Render(msg)))
	}

	lines := []string{title, stageStyle.Render(snap.Stage.Label()), viewPipeline(snap.Stage)}
	if snap.ShowCountdown() {
		lines = append(lines, countdownStyle.Render(snap.Countdown.String()))
	}
	if c := snap.Candidate; c != nil {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s arrives %s", capitalize(string(c.MealCategory)), snap.Framing)))
	}
	if snap.CancelInFlight {
		lines = append(lines, warningStyle.Render("Cancelling..."))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func viewPipeline(current models.DeliveryStage) string {
	steps := make([]string, 0, len(pipeline))
	for _, s := range pipeline {
		if s == current {
			steps = append(steps, currentStepStyle.Render(s.Label()))
		} else {
			steps = append(steps, mutedStyle.Render(s.Label()))
		}
	}
	return strings.Join(steps, mutedStyle.Render(" › "))
}

func (m Model) viewStatusLine() string {
	if m.err != nil {
		return dangerStyle.Render("Error: " + m.err.Error())
	}
	if m.notice != "" {
		return warningStyle.Render(m.notice)
	}
	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

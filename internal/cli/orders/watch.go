package orders

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/tui"
)

type WatchCmd struct {
	IDs []string `arg:"" optional:"" help:"Order ids to watch. Defaults to every tracked order."`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings()
	if err != nil {
		return err
	}

	tabs, err := c.tabs(ctx)
	if err != nil {
		return err
	}
	if len(tabs) == 0 {
		return errors.New("nothing to watch: pass an order id or track one with 'dietline orders track <id>'")
	}

	notify, closeNotify := ctx.Notifications(settings)
	defer closeNotify()

	for i := range tabs {
		ctrl, err := ctx.NewController(tabs[i].id, settings, notify)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		if err := ctrl.Load(reqCtx); err != nil {
			logger.Warn("Failed to load order for watch", "order", tabs[i].id, "error", err)
		}
		cancel()
		tabs[i].Controller = ctrl
	}

	model := tui.NewModel(toTUITabs(tabs),
		tui.WithInterval(settings.CountdownInterval()),
		tui.WithNow(ctx.Clock))
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view failed: %w", err)
	}
	return nil
}

type watchTab struct {
	tui.Tab
	id string
}

func (c *WatchCmd) tabs(ctx *cli.Context) ([]watchTab, error) {
	if len(c.IDs) > 0 {
		tabs := make([]watchTab, 0, len(c.IDs))
		for _, id := range c.IDs {
			tab := watchTab{id: id}
			if t, err := ctx.Store.GetTrackedOrder(id); err == nil {
				tab.Label = t.Label
			}
			tabs = append(tabs, tab)
		}
		return tabs, nil
	}

	tracked, err := ctx.Store.GetAllTrackedOrders()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked orders: %w", err)
	}
	tabs := make([]watchTab, 0, len(tracked))
	for _, t := range tracked {
		tabs = append(tabs, watchTab{id: t.OrderID, Tab: tui.Tab{Label: t.Label}})
	}
	return tabs, nil
}

func toTUITabs(tabs []watchTab) []tui.Tab {
	out := make([]tui.Tab, len(tabs))
	for i, t := range tabs {
		out[i] = t.Tab
	}
	return out
}

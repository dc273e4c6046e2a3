package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/storage"
)

type TrackCmd struct {
	ID     string `arg:"" help:"Order id."`
	Label  string `help:"Friendly name shown instead of the id."`
	Verify bool   `help:"Fetch the order once before tracking it." default:"true" negatable:""`
}

func (c *TrackCmd) Run(ctx *cli.Context) error {
	now := ctx.Clock().UTC()
	t := models.TrackedOrder{
		OrderID:   strings.TrimSpace(c.ID),
		Label:     strings.TrimSpace(c.Label),
		AddedAt:   now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return err
	}

	if c.Verify {
		settings, err := ctx.Settings()
		if err != nil {
			return err
		}
		svc, err := ctx.OrderService(settings)
		if err != nil {
			return err
		}
		reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ord, err := svc.FetchOrder(reqCtx, t.OrderID)
		if err != nil {
			return fmt.Errorf("failed to verify order %s: %w", t.OrderID, err)
		}
		t.LastStatus = ord.Status
	}

	if err := ctx.Store.AddTrackedOrder(t); err != nil {
		if errors.Is(err, storage.ErrAlreadyTracked) {
			return fmt.Errorf("order %s is already tracked", t.OrderID)
		}
		return fmt.Errorf("failed to track order: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "Tracking order %s\n", displayName(t))
	return nil
}

type UntrackCmd struct {
	ID string `arg:"" help:"Order id."`
}

func (c *UntrackCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.RemoveTrackedOrder(c.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("order %s is not tracked", c.ID)
		}
		return fmt.Errorf("failed to untrack order: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "Stopped tracking order %s\n", c.ID)
	return nil
}

type ListCmd struct {
	JSON bool `help:"Print as JSON."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	tracked, err := ctx.Store.GetAllTrackedOrders()
	if err != nil {
		return fmt.Errorf("failed to list tracked orders: %w", err)
	}

	out := ctx.Stdout()
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tracked)
	}

	if len(tracked) == 0 {
		fmt.Fprintln(out, "No tracked orders. Use 'dietline orders track <id>' to add one.")
		return nil
	}
	fmt.Fprintf(out, "%-24s %-20s %-10s %-18s %s\n", "ORDER", "LABEL", "STATUS", "STAGE", "UPDATED")
	for _, t := range tracked {
		status := string(t.LastStatus)
		if status == "" {
			status = "-"
		}
		stage := "-"
		if t.LastStage != "" {
			stage = t.LastStage.Label()
		}
		fmt.Fprintf(out, "%-24s %-20s %-10s %-18s %s\n",
			t.OrderID, t.Label, status, stage, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func displayName(t models.TrackedOrder) string {
	if t.Label != "" {
		return fmt.Sprintf("%s (%s)", t.OrderID, t.Label)
	}
	return t.OrderID
}

package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/order"
)

type StatusCmd struct {
	ID   string `arg:"" help:"Order id."`
	JSON bool   `help:"Print the snapshot as JSON."`
}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	snap, err := loadSnapshot(ctx, c.ID)
	if err != nil && !errors.Is(err, order.ErrDataLoad) {
		return err
	}

	out := ctx.Stdout()
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(snap); encErr != nil {
			return encErr
		}
		return err
	}
	printSnapshot(out, snap)
	return err
}

// loadSnapshot fetches the order once and evaluates it at the current
// instant. On a load failure the not-found snapshot is returned together
// with the error.
func loadSnapshot(ctx *cli.Context, id string) (order.Snapshot, error) {
	settings, err := ctx.Settings()
	if err != nil {
		return order.Snapshot{}, err
	}
	now, _, err := ctx.NowIn(settings)
	if err != nil {
		return order.Snapshot{}, err
	}
	ctrl, err := ctx.NewController(id, settings)
	if err != nil {
		return order.Snapshot{}, err
	}
	defer ctrl.Close()

	reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	loadErr := ctrl.Load(reqCtx)
	return ctrl.Evaluate(now), loadErr
}

func printSnapshot(w io.Writer, snap order.Snapshot) {
	fmt.Fprintf(w, "Order %s\n", snap.OrderID)
	if snap.Condition != order.ConditionActive {
		fmt.Fprintf(w, "  %s\n", snap.Message)
		return
	}
	fmt.Fprintf(w, "  Stage:     %s\n", snap.Stage.Label())
	if c := snap.Candidate; c != nil {
		meal := string(c.MealCategory)
		if meal != "" {
			meal = strings.ToUpper(meal[:1]) + meal[1:]
		}
		fmt.Fprintf(w, "  Next:      %s %s\n", meal, snap.Framing)
	}
	if snap.ShowCountdown() {
		fmt.Fprintf(w, "  Countdown: %s\n", snap.Countdown)
	}
}

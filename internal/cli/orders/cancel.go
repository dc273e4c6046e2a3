package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/order"
)

// confirmFunc asks the user to confirm a cancellation.
var confirmFunc = func(title string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description("Remaining deliveries will not be made.").
		Affirmative("Cancel order").
		Negative("Keep it").
		Value(&confirmed).
		Run()
	return confirmed, err
}

// requestTimeout bounds each call to the order service.
var requestTimeout = constants.DefaultHTTPTimeout

type CancelCmd struct {
	ID  string `arg:"" help:"Order id."`
	Yes bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *CancelCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings()
	if err != nil {
		return err
	}
	now, _, err := ctx.NowIn(settings)
	if err != nil {
		return err
	}
	ctrl, err := ctx.NewController(c.ID, settings)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), requestTimeout)
	err = ctrl.Load(loadCtx)
	cancelLoad()
	if err != nil {
		return err
	}

	snap := ctrl.Evaluate(now)
	out := ctx.Stdout()
	if snap.Condition == order.ConditionCancelled {
		fmt.Fprintf(out, "Order %s is already cancelled.\n", c.ID)
		return nil
	}
	if !snap.CanCancel() {
		return fmt.Errorf("order %s cannot be cancelled: %s", c.ID, snap.Message)
	}

	if !c.Yes {
		ok, err := confirmFunc(fmt.Sprintf("Cancel order %s?", c.ID))
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Order kept.")
			return nil
		}
	}

	// The cancel gets its own deadline, started after the prompt returns.
	reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := ctrl.Cancel(reqCtx); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Order %s cancelled.\n", c.ID)
	return nil
}

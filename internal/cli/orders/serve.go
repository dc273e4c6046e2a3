package orders

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/dietline/internal/api"
	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/order"
)

type ServeCmd struct {
	Addr   string        `help:"Address for the HTTP API." default:"127.0.0.1:8787"`
	Reload time.Duration `help:"Refetch each order on this cadence (0 disables)." default:"5m"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.serve(runCtx, ctx)
}

func (c *ServeCmd) serve(runCtx context.Context, ctx *cli.Context) error {
	settings, err := ctx.Settings()
	if err != nil {
		return err
	}
	tracked, err := ctx.Store.GetAllTrackedOrders()
	if err != nil {
		return fmt.Errorf("failed to list tracked orders: %w", err)
	}

	notify, closeNotify := ctx.Notifications(settings)
	defer closeNotify()

	fleet := order.NewFleet(order.WithReload(c.Reload))
	defer fleet.Close()
	for _, t := range tracked {
		ctrl, err := ctx.NewController(t.OrderID, settings, notify)
		if err != nil {
			return err
		}
		fleet.Add(ctrl)
	}
	logger.Info("Serving orders", "count", len(tracked), "addr", c.Addr)

	fleetDone := make(chan error, 1)
	go func() { fleetDone <- fleet.Run(runCtx) }()

	srvErr := api.NewServer(c.Addr, fleet).ListenAndServe(runCtx)
	if srvErr != nil {
		logger.Warn("HTTP API stopped unexpectedly, stopping controllers", "error", srvErr)
		fleet.Close()
	}
	if err := <-fleetDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return srvErr
}

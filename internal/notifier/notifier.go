// Package notifier delivers order transitions to the outside world: the
// desktop tray app, a Telegram chat and an AMQP topic exchange.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/order"
)

// Notifier sends a short human readable message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Observer turns every order event into a message and hands it to each
// notifier. All notifiers are tried and their errors joined. A tray app that
// is not running is not an error.
func Observer(notifiers ...Notifier) order.Observer {
	return order.ObserverFunc(func(ctx context.Context, ev order.Event) error {
		text := Text(ev)
		if text == "" {
			return nil
		}
		var errs []error
		for _, n := range notifiers {
			err := n.Notify(ctx, text)
			switch {
			case err == nil:
			case errors.Is(err, ErrTrayNotRunning):
				logger.Debug("Skipping tray notification", "error", err)
			default:
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Multi fans a single event out to several observers.
func Multi(observers ...order.Observer) order.Observer {
	return order.ObserverFunc(func(ctx context.Context, ev order.Event) error {
		var errs []error
		for _, o := range observers {
			if o == nil {
				continue
			}
			if err := o.Observe(ctx, ev); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Text renders the message for an event. Stage events for terminal stages
// are left to the matching status event and render as "".
func Text(ev order.Event) string {
	tr := ev.Transition
	switch tr.Kind {
	case models.TransitionStatus:
		switch models.OrderStatus(tr.To) {
		case models.StatusCancelled:
			return fmt.Sprintf("Order %s has been cancelled.", tr.OrderID)
		case models.StatusDelivered:
			return fmt.Sprintf("Order %s: all deliveries completed.", tr.OrderID)
		case models.StatusActive:
			return fmt.Sprintf("Order %s is active.", tr.OrderID)
		}
	case models.TransitionStage:
		stage := models.DeliveryStage(tr.To)
		if stage == models.StageCompleted || stage == "" {
			return ""
		}
		text := fmt.Sprintf("Order %s: %s", tr.OrderID, stage.Label())
		if c := ev.Snapshot.Candidate; c != nil {
			text += fmt.Sprintf(" (%s", c.MealCategory)
			if ev.Snapshot.Framing != "" {
				text += ", " + ev.Snapshot.Framing
			}
			text += ")"
		}
		return text
	}
	return ""
}

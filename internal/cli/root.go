package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/dietline/internal/config"
	"github.com/julianstephens/dietline/internal/keyring"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/notifier"
	"github.com/julianstephens/dietline/internal/order"
	"github.com/julianstephens/dietline/internal/orderapi"
	"github.com/julianstephens/dietline/internal/storage"
	"github.com/julianstephens/dietline/internal/utils"
)

// OrderService is the remote order service: a source of order documents
// and the sink for cancel commands.
type OrderService interface {
	order.Source
	order.Sink
}

type Context struct {
	Store  storage.Provider
	Config config.Config
	// Service overrides the HTTP client built from settings.
	Service OrderService
	Out     io.Writer
	Now     func() time.Time
}

func (c *Context) Stdout() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stdout
}

// Clock returns the current time, honouring an injected Now.
func (c *Context) Clock() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Settings returns the stored settings with defaults filled in and the
// environment applied on top.
func (c *Context) Settings() (models.Settings, error) {
	s, err := c.Store.GetSettings()
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&s)
	return c.Config.Apply(s), nil
}

// NowIn returns the current time in the configured timezone.
func (c *Context) NowIn(s models.Settings) (time.Time, *time.Location, error) {
	loc, err := utils.LoadLocation(s.Timezone)
	if err != nil {
		return time.Time{}, nil, err
	}
	return c.Clock().In(loc), loc, nil
}

// OrderService returns the configured service, building an HTTP client for
// the settings' base URL when none was injected.
func (c *Context) OrderService(s models.Settings) (OrderService, error) {
	if c.Service != nil {
		return c.Service, nil
	}
	loc, err := utils.LoadLocation(s.Timezone)
	if err != nil {
		return nil, err
	}
	client, err := orderapi.New(s.APIBaseURL,
		orderapi.WithLocation(loc),
		orderapi.WithTokenSource(c.apiToken))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// apiToken prefers the environment over the keyring. No token at all is
// allowed; the service decides whether it needs one.
func (c *Context) apiToken() (string, error) {
	if c.Config.APIToken != "" {
		return c.Config.APIToken, nil
	}
	token, err := keyring.GetAPIToken()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		logger.Debug("API token unavailable from keyring", "error", err)
		return "", nil
	}
	return token, nil
}

// NewController builds a controller for orderID that journals its
// transitions to the store. A tracked order resumes from its last known
// status and stage. Extra observers are appended after the journal.
func (c *Context) NewController(orderID string, s models.Settings, extra ...order.Observer) (*order.Controller, error) {
	svc, err := c.OrderService(s)
	if err != nil {
		return nil, err
	}
	opts := []order.Option{
		order.WithIntervals(s.StageInterval(), s.CountdownInterval()),
		order.WithObserver(order.Journal(c.Store)),
	}
	if c.Now != nil {
		opts = append(opts, order.WithNow(c.Now))
	}
	tracked, err := c.Store.GetTrackedOrder(orderID)
	switch {
	case err == nil:
		opts = append(opts, order.WithLastKnown(tracked.LastStatus, tracked.LastStage))
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}
	for _, o := range extra {
		if o != nil {
			opts = append(opts, order.WithObserver(o))
		}
	}
	return order.New(orderID, svc, svc, opts...), nil
}

// Notifications builds the observer that forwards transitions to every
// configured channel. The returned close func releases broker connections.
// Channels that fail to start are logged and skipped.
func (c *Context) Notifications(s models.Settings) (order.Observer, func()) {
	var (
		notifiers []notifier.Notifier
		observers []order.Observer
		closers   []func()
	)
	if s.NotificationsEnabled {
		notifiers = append(notifiers, notifier.NewTray())
	}
	if c.Config.Telegram.Enabled() {
		tg, err := notifier.NewTelegram(c.Config.Telegram.Token, c.Config.Telegram.ChatID)
		if err != nil {
			logger.Warn("Telegram notifications disabled", "error", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	if len(notifiers) > 0 {
		observers = append(observers, notifier.Observer(notifiers...))
	}
	if c.Config.AMQP.Enabled() {
		pub, err := notifier.DialPublisher(c.Config.AMQP.URL)
		if err != nil {
			logger.Warn("AMQP event publishing disabled", "error", err)
		} else {
			observers = append(observers, pub)
			closers = append(closers, func() { _ = pub.Close() })
		}
	}

	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}
	if len(observers) == 0 {
		return nil, closeAll
	}
	return notifier.Multi(observers...), closeAll
}

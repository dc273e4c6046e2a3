package storage

import (
	"errors"

	"github.com/julianstephens/dietline/internal/migration"
	"github.com/julianstephens/dietline/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyTracked = errors.New("order is already tracked")
	ErrNotInitialized = errors.New("storage not initialized, run 'dietline init' first")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Tracked orders
	AddTrackedOrder(models.TrackedOrder) error
	GetTrackedOrder(orderID string) (models.TrackedOrder, error)
	GetAllTrackedOrders() ([]models.TrackedOrder, error)
	UpdateTrackedOrder(models.TrackedOrder) error
	RemoveTrackedOrder(orderID string) error

	// Transition journal
	RecordTransition(models.Transition) error
	// GetTransitions returns the journal of one order, oldest first. A
	// positive limit keeps only the most recent entries.
	GetTransitions(orderID string, limit int) ([]models.Transition, error)

	// Migrations
	MigrationStatus() (migration.Status, error)

	// Utils
	GetConfigPath() string
}

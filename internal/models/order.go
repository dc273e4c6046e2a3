package models

import (
	"strings"
	"time"

	"github.com/julianstephens/dietline/internal/constants"
)

type OrderStatus string

const (
	StatusActive    OrderStatus = "active"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// ParseRemoteStatus maps the order service's status string onto a local
// status. Anything that is not Cancelled or Delivered counts as Active.
func ParseRemoteStatus(s string) OrderStatus {
	switch {
	case strings.EqualFold(s, constants.RemoteStatusCancelled):
		return StatusCancelled
	case strings.EqualFold(s, constants.RemoteStatusDelivered):
		return StatusDelivered
	default:
		return StatusActive
	}
}

// DeliveryStage is derived from the next candidate, never stored as truth.
type DeliveryStage string

const (
	StageConfirmed      DeliveryStage = "confirmed"
	StagePreparing      DeliveryStage = "preparing"
	StageOutForDelivery DeliveryStage = "out_for_delivery"
	StageDelivered      DeliveryStage = "delivered"
	StageCompleted      DeliveryStage = "completed"
)

func (s DeliveryStage) Label() string {
	switch s {
	case StageConfirmed:
		return "Order Confirmed"
	case StagePreparing:
		return "Preparing"
	case StageOutForDelivery:
		return "Out for Delivery"
	case StageDelivered:
		return "Delivered"
	case StageCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// DeliveryCandidate is the resolver's answer for a single instant.
type DeliveryCandidate struct {
	MealCategory MealCategory `json:"meal_category"`
	ScheduledAt  time.Time    `json:"scheduled_at"`
	MinutesUntil int          `json:"minutes_until"`
	IsToday      bool         `json:"is_today"`
}

type OrderItem struct {
	Name         string `json:"name"`
	MealType     string `json:"meal_type,omitempty"`
	DeliveryTime string `json:"delivery_time,omitempty"`
}

// Order is the loaded view of one subscription order.
type Order struct {
	ID       string      `json:"id"`
	Items    []OrderItem `json:"items"`
	Schedule Schedule    `json:"schedule"`
	Status   OrderStatus `json:"status"`
}

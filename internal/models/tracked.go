package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackedOrder is an entry in the local watch list.
type TrackedOrder struct {
	OrderID    string        `json:"order_id"`
	Label      string        `json:"label,omitempty"`
	LastStatus OrderStatus   `json:"last_status"`
	LastStage  DeliveryStage `json:"last_stage,omitempty"`
	AddedAt    time.Time     `json:"added_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (t TrackedOrder) Validate() error {
	if strings.TrimSpace(t.OrderID) == "" {
		return fmt.Errorf("order id is required")
	}
	if strings.ContainsAny(t.OrderID, "/?# ") {
		return fmt.Errorf("order id %q contains invalid characters", t.OrderID)
	}
	switch t.LastStatus {
	case "", StatusActive, StatusDelivered, StatusCancelled:
	default:
		return fmt.Errorf("invalid status %q", t.LastStatus)
	}
	return nil
}

type TransitionKind string

const (
	TransitionStatus TransitionKind = "status"
	TransitionStage  TransitionKind = "stage"
)

// Transition is one journal entry: a status change or a stage change
// observed by a controller.
type Transition struct {
	ID      uuid.UUID      `json:"id"`
	OrderID string         `json:"order_id"`
	Kind    TransitionKind `json:"kind"`
	From    string         `json:"from"`
	To      string         `json:"to"`
	Reason  string         `json:"reason,omitempty"`
	At      time.Time      `json:"at"`
}

func NewTransition(orderID string, kind TransitionKind, from, to, reason string, at time.Time) Transition {
	return Transition{
		ID:      uuid.New(),
		OrderID: orderID,
		Kind:    kind,
		From:    from,
		To:      to,
		Reason:  reason,
		At:      at,
	}
}

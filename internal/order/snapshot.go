package order

import (
	"time"

	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/countdown"
	"github.com/julianstephens/dietline/internal/models"
)

// Condition is what a view should render for the order.
type Condition string

const (
	ConditionLoading   Condition = "loading"
	ConditionActive    Condition = "active"
	ConditionCancelled Condition = "cancelled"
	ConditionCompleted Condition = "completed"
	ConditionNotFound  Condition = "not_found"
)

func (c Condition) IsTerminal() bool {
	return c == ConditionCancelled || c == ConditionCompleted || c == ConditionNotFound
}

func (c Condition) Message() string {
	switch c {
	case ConditionCancelled:
		return constants.MessageCancelled
	case ConditionCompleted:
		return constants.MessageCompleted
	case ConditionNotFound:
		return constants.MessageNotFound
	case ConditionLoading:
		return "Loading order..."
	default:
		return ""
	}
}

// Snapshot is the result of one evaluation. Candidate and Countdown are nil
// unless the order is active with a delivery ahead.
type Snapshot struct {
	OrderID        string                    `json:"order_id"`
	Condition      Condition                 `json:"condition"`
	Status         models.OrderStatus        `json:"status"`
	Stage          models.DeliveryStage      `json:"stage"`
	Candidate      *models.DeliveryCandidate `json:"candidate,omitempty"`
	Countdown      *countdown.Breakdown      `json:"countdown,omitempty"`
	Framing        string                    `json:"framing,omitempty"`
	Message        string                    `json:"message,omitempty"`
	CancelInFlight bool                      `json:"cancel_in_flight,omitempty"`
	At             time.Time                 `json:"at"`
}

// ShowCountdown reports whether the countdown digits should be rendered.
func (s Snapshot) ShowCountdown() bool {
	return s.Condition == ConditionActive && s.Countdown != nil
}

// CanCancel reports whether a cancel command makes sense right now.
func (s Snapshot) CanCancel() bool {
	return s.Condition == ConditionActive && !s.CancelInFlight
}

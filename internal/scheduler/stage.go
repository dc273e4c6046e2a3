package scheduler

import (
	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/models"
)

// DeriveStage maps the resolver's answer to a delivery stage. Only Active
// orders have a live stage; anything else reports Completed.
func DeriveStage(c models.DeliveryCandidate, ok bool, status models.OrderStatus) models.DeliveryStage {
	if status != models.StatusActive || !ok {
		return models.StageCompleted
	}
	switch {
	case c.MinutesUntil <= 0:
		return models.StageDelivered
	case c.MinutesUntil <= constants.OutForDeliveryWithinMin:
		return models.StageOutForDelivery
	case c.MinutesUntil <= constants.PreparingWithinMin:
		return models.StagePreparing
	default:
		return models.StageConfirmed
	}
}

package scheduler

import (
	"math"
	"time"

	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/utils"
)

type slot struct {
	category models.MealCategory
	tod      models.TimeOfDay
}

// Resolve returns the next delivery of s as seen at now. The second value is
// false when the schedule has no delivery left, either because the window
// has ended or because none of its times parse.
//
// The active day is re-anchored to now's calendar date on every call; days
// that were skipped while nobody asked are not replayed.
func Resolve(s models.Schedule, now time.Time) (models.DeliveryCandidate, bool) {
	loc := s.Loc()
	now = now.In(loc)
	today := models.DateOf(now, loc)

	if today.After(s.EndDate) {
		return models.DeliveryCandidate{}, false
	}

	slots := parseSlots(s)
	if len(slots) == 0 {
		return models.DeliveryCandidate{}, false
	}

	if today.Before(s.StartDate) {
		return earliestOn(s.StartDate, slots, now), true
	}

	// Same-day upcoming match always beats rolling forward.
	best := -1
	var bestAt time.Time
	for i, sl := range slots {
		at := sl.tod.On(today)
		if !at.After(now) {
			continue
		}
		if best < 0 || at.Before(bestAt) {
			best, bestAt = i, at
		}
	}
	if best >= 0 {
		return candidate(slots[best].category, bestAt, now), true
	}

	tomorrow := today.AddDate(0, 0, 1)
	if tomorrow.After(s.EndDate) {
		return models.DeliveryCandidate{}, false
	}
	return earliestOn(tomorrow, slots, now), true
}

// earliestOn picks the earliest time of day on day. Ties keep the first
// declared category.
func earliestOn(day time.Time, slots []slot, now time.Time) models.DeliveryCandidate {
	best := 0
	for i := 1; i < len(slots); i++ {
		if slots[i].tod.Minutes() < slots[best].tod.Minutes() {
			best = i
		}
	}
	return candidate(slots[best].category, slots[best].tod.On(day), now)
}

func candidate(category models.MealCategory, at, now time.Time) models.DeliveryCandidate {
	return models.DeliveryCandidate{
		MealCategory: category,
		ScheduledAt:  at,
		MinutesUntil: MinutesBetween(now, at),
		IsToday:      utils.IsSameDay(at, now, now.Location()),
	}
}

// MinutesBetween returns the signed whole minutes from now until at,
// rounded toward negative infinity.
func MinutesBetween(now, at time.Time) int {
	return int(math.Floor(at.Sub(now).Minutes()))
}

func parseSlots(s models.Schedule) []slot {
	slots := make([]slot, 0, len(s.DeliveryTimes))
	for _, mt := range s.DeliveryTimes {
		tod, err := models.ParseTimeOfDay(mt.Time)
		if err != nil {
			logger.Debug("Skipping malformed delivery time", "category", mt.Category, "time", mt.Time, "error", err)
			continue
		}
		slots = append(slots, slot{category: mt.Category, tod: tod})
	}
	return slots
}

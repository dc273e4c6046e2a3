package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dietline/internal/constants"
)

// MealCategory is an independent recurring sub-schedule within one order.
type MealCategory string

const (
	MealBreakfast MealCategory = constants.MealBreakfast
	MealLunch     MealCategory = constants.MealLunch
	MealDinner    MealCategory = constants.MealDinner
	MealSnacks    MealCategory = constants.MealSnacks
)

var ErrInvalidWindow = errors.New("start date is after end date")

// ParseMealCategory normalizes a meal type reported by the order service.
// The second return value is false for anything that is not one of the four
// known categories.
func ParseMealCategory(s string) (MealCategory, bool) {
	switch MealCategory(strings.ToLower(strings.TrimSpace(s))) {
	case MealBreakfast:
		return MealBreakfast, true
	case MealLunch:
		return MealLunch, true
	case MealDinner:
		return MealDinner, true
	case MealSnacks, "snack":
		return MealSnacks, true
	default:
		return "", false
	}
}

// MealTime is one meal category's delivery time of day.
type MealTime struct {
	Category MealCategory `json:"category"`
	Time     string       `json:"time"` // HH:MM or HHMM, kept raw so bad entries can be skipped
}

// TimeOfDay is a validated 24-hour clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM") and the compact "HHMM" form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	layout := constants.TimeFormat
	if !strings.Contains(s, ":") {
		if len(s) != 4 {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		layout = constants.CompactTimeFormat
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On returns the instant at this time of day on the given calendar day.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Schedule is the recurring delivery plan of one order. Build it with
// NewSchedule and treat it as read-only afterwards.
type Schedule struct {
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"` // inclusive
	DeliveryTimes []MealTime     `json:"delivery_times"`
	Location      *time.Location `json:"-"`
}

// NewSchedule normalizes both dates to midnight in loc and keeps the first
// entry for any category that is declared twice.
func NewSchedule(start, end time.Time, times []MealTime, loc *time.Location) (Schedule, error) {
	if loc == nil {
		loc = time.Local
	}
	s := Schedule{
		StartDate: DateOf(start, loc),
		EndDate:   DateOf(end, loc),
		Location:  loc,
	}
	if s.StartDate.After(s.EndDate) {
		return Schedule{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow,
			s.StartDate.Format(constants.DateFormat), s.EndDate.Format(constants.DateFormat))
	}

	seen := make(map[MealCategory]bool, len(times))
	for _, mt := range times {
		if seen[mt.Category] {
			continue
		}
		seen[mt.Category] = true
		s.DeliveryTimes = append(s.DeliveryTimes, mt)
	}
	return s, nil
}

// Loc returns the schedule's calendar location, defaulting to time.Local.
func (s Schedule) Loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// DateOf returns midnight of t's calendar date as seen from loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

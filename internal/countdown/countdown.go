// Package countdown turns a target instant into a live remaining-time
// breakdown.
package countdown

import (
	"fmt"
	"time"

	"github.com/julianstephens/dietline/internal/constants"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Breakdown is the remaining time until a target, floor-divided into units.
type Breakdown struct {
	Days       int  `json:"days"`
	Hours      int  `json:"hours"`
	Minutes    int  `json:"minutes"`
	Seconds    int  `json:"seconds"`
	IsToday    bool `json:"is_today"`
	IsTomorrow bool `json:"is_tomorrow"`
	Done       bool `json:"done"`
}

// Remaining computes the breakdown from the millisecond difference between
// target and now. Once the difference is no longer positive every field is
// zero and Done is set.
func Remaining(target, now time.Time) Breakdown {
	diff := target.Sub(now).Milliseconds()
	if diff <= 0 {
		return Breakdown{Done: true}
	}

	b := Breakdown{
		Days:    int(diff / msPerDay),
		Hours:   int(diff % msPerDay / msPerHour),
		Minutes: int(diff % msPerHour / msPerMinute),
		Seconds: int(diff % msPerMinute / msPerSecond),
	}
	switch dayOffset(target, now) {
	case 0:
		b.IsToday = true
	case 1:
		b.IsTomorrow = true
	}
	return b
}

// Duration converts the breakdown back to a duration, truncated to seconds.
func (b Breakdown) Duration() time.Duration {
	return time.Duration(b.Days)*24*time.Hour +
		time.Duration(b.Hours)*time.Hour +
		time.Duration(b.Minutes)*time.Minute +
		time.Duration(b.Seconds)*time.Second
}

// String renders the significant fields, e.g. "1d 02h 03m 04s". Days are
// left out when zero.
func (b Breakdown) String() string {
	if b.Days > 0 {
		return fmt.Sprintf("%dd %02dh %02dm %02ds", b.Days, b.Hours, b.Minutes, b.Seconds)
	}
	return fmt.Sprintf("%02dh %02dm %02ds", b.Hours, b.Minutes, b.Seconds)
}

// Framing describes when target happens relative to now, in target's
// location: "today at 19:00", "tomorrow at 08:00" or
// "on Monday, Oct 19 at 08:00".
func Framing(target, now time.Time) string {
	clock := target.Format(constants.TimeFormat)
	switch dayOffset(target, now) {
	case 0:
		return "today at " + clock
	case 1:
		return "tomorrow at " + clock
	default:
		return fmt.Sprintf("on %s at %s", target.Format("Monday, Jan 2"), clock)
	}
}

// dayOffset returns how many calendar days target lies after now, both read
// in target's location.
func dayOffset(target, now time.Time) int {
	loc := target.Location()
	ty, tm, td := target.Date()
	ny, nm, nd := now.In(loc).Date()
	t := time.Date(ty, tm, td, 12, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 12, 0, 0, 0, time.UTC)
	return int(t.Sub(n).Hours() / 24)
}

package alert

import (
	"time"

	"github.com/stockpulse/stockpulse/internal/model"
)

// Minimum gaps between fires, one hour under the exact cadence length to
// tolerate trigger jitter around the scheduled hour.
const (
	MinGapDaily  = 23 * time.Hour
	MinGapWeekly = 167 * time.Hour
)

// Cadence is the recurrence rule shared by both schedule variants.
// Hours and weekdays are evaluated in UTC; there is no per-tenant timezone.
type Cadence struct {
	ScheduleType string
	HourOfDay    int
	DayOfWeek    int // time.Weekday numbering, weekly only
	IsActive     bool
}

// Due reports whether a schedule should fire at now. lastRun may be nil
// for a schedule that has never fired.
//
// The gap check is best-effort: it is a read-then-write guard, not a
// compare-and-swap, so two truly concurrent invocations can still both
// pass it.
func Due(c Cadence, lastRun *time.Time, now time.Time) bool {
	if !c.IsActive {
		return false
	}
	switch c.ScheduleType {
	case model.ScheduleDaily, model.ScheduleWeekly:
	default:
		return false
	}

	now = now.UTC()
	if now.Hour() != c.HourOfDay {
		return false
	}
	if c.ScheduleType == model.ScheduleWeekly && int(now.Weekday()) != c.DayOfWeek {
		return false
	}
	if lastRun != nil && now.Sub(*lastRun) < minGap(c.ScheduleType) {
		return false
	}
	return true
}

func minGap(scheduleType string) time.Duration {
	if scheduleType == model.ScheduleWeekly {
		return MinGapWeekly
	}
	return MinGapDaily
}

package sweep

import (
	"fmt"
	"time"

	"sweep-go/internal/config"
)

// ScheduleGate decides whether a retention scan should run now, given
// the configured day/time schedule and the monitor's poll interval.
type ScheduleGate struct {
	clock Clock
}

// NewScheduleGate creates a gate using the given clock.
func NewScheduleGate(clock Clock) *ScheduleGate {
	return &ScheduleGate{clock: clock}
}

// IsDue reports whether a scan should run now.
//
// With scheduling disabled, or with an empty schedule list, every check
// is due. Otherwise any single entry whose weekday matches today and
// whose HH:MM is within half of checkInterval of now makes the check
// due. The half-interval tolerance is what keeps a poll-based loop from
// stepping over the scheduled instant.
func (g *ScheduleGate) IsDue(enabled bool, schedules []config.ScheduleEntry, checkInterval time.Duration) bool {
	if !enabled {
		return true
	}
	if len(schedules) == 0 {
		return true
	}

	now := g.clock.Now()
	today := mondayWeekday(now.Weekday())

	for _, entry := range schedules {
		if !containsDay(entry.Days, today) {
			continue
		}

		var hour, minute int
		if _, err := fmt.Sscanf(entry.Time, "%d:%d", &hour, &minute); err != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			// Malformed time: fall back to exact string equality.
			if now.Format("15:04") == entry.Time {
				return true
			}
			continue
		}

		scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		diff := now.Sub(scheduled)
		if diff < 0 {
			diff = -diff
		}
		if diff <= checkInterval/2 {
			return true
		}
	}
	return false
}

// mondayWeekday converts Go's Sunday-based weekday to the config encoding
// used by schedule entries: 0=Monday .. 6=Sunday.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

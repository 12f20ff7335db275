package sweep_test

import (
	"testing"
	"time"

	"sweep-go/internal/config"
	"sweep-go/internal/sweep"
	"sweep-go/internal/testutil"
)

func TestScheduleGate_IsDue(t *testing.T) {
	// 2026-01-15 is a Thursday: 3 in the Monday-based day encoding.
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	interval := 60 * time.Minute

	gate := func() *sweep.ScheduleGate {
		return sweep.NewScheduleGate(testutil.NewStubClock(now))
	}

	t.Run("disabled schedule is always due", func(t *testing.T) {
		schedules := []config.ScheduleEntry{{Days: []int{0}, Time: "23:59"}}
		if !gate().IsDue(false, schedules, interval) {
			t.Error("IsDue() = false with scheduling disabled, want true")
		}
	})

	t.Run("empty schedule list is always due", func(t *testing.T) {
		if !gate().IsDue(true, nil, interval) {
			t.Error("IsDue() = false with no entries, want true")
		}
	})

	t.Run("due within half interval of the scheduled time", func(t *testing.T) {
		tests := []struct {
			name string
			at   string
			want bool
		}{
			{"exactly on time", "10:30", true},
			{"just inside the window before", "10:00", true},
			{"just inside the window after", "11:00", true},
			{"outside the window", "11:31", false},
			{"hours away", "03:00", false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				schedules := []config.ScheduleEntry{{Days: []int{3}, Time: tt.at}}
				if got := gate().IsDue(true, schedules, interval); got != tt.want {
					t.Errorf("IsDue(entry at %s) = %v, want %v", tt.at, got, tt.want)
				}
			})
		}
	})

	t.Run("wrong weekday is not due", func(t *testing.T) {
		schedules := []config.ScheduleEntry{{Days: []int{0, 5, 6}, Time: "10:30"}}
		if gate().IsDue(true, schedules, interval) {
			t.Error("IsDue() = true on a day not in the entry, want false")
		}
	})

	t.Run("any matching entry makes the check due", func(t *testing.T) {
		schedules := []config.ScheduleEntry{
			{Days: []int{0}, Time: "10:30"},
			{Days: []int{3}, Time: "10:45"},
		}
		if !gate().IsDue(true, schedules, interval) {
			t.Error("IsDue() = false, want true from the second entry")
		}
	})

	t.Run("malformed time falls back to exact string match", func(t *testing.T) {
		schedules := []config.ScheduleEntry{{Days: []int{3}, Time: "half past ten"}}
		if gate().IsDue(true, schedules, interval) {
			t.Error("IsDue() = true for malformed non-matching time, want false")
		}
	})
}

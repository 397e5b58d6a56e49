package monitor

import (
	"time"

	"api-monitor/model"
)

// DueTolerance lets a monitor run slightly early so trigger jitter does not
// push it to the next cycle.
const DueTolerance = 0.9

// IsDue reports whether m should be probed at now.
func IsDue(m *model.Monitor, now time.Time) bool {
	if m.LastCheckedAt == nil {
		return true
	}
	elapsed := now.Sub(*m.LastCheckedAt).Seconds()
	return elapsed >= DueTolerance*float64(m.IntervalSeconds)
}

// FilterDue returns the monitors due at now, or all of them when force is set.
func FilterDue(monitors []model.Monitor, now time.Time, force bool) []model.Monitor {
	if force {
		return monitors
	}
	due := make([]model.Monitor, 0, len(monitors))
	for i := range monitors {
		if IsDue(&monitors[i], now) {
			due = append(due, monitors[i])
		}
	}
	return due
}

// utcNow is the clock for persisted timestamps; SQLite compares them as text.
func utcNow() time.Time {
	return time.Now().UTC()
}

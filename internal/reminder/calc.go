// Package reminder computes when task reminders should fire and dispatches
// due reminders to the message bus for the external push transport.
package reminder

import (
	"time"

	"choreplan/internal/model"
)

// DefaultLeadHours is subtracted from the due instant when a task carries
// no lead of its own.
const DefaultLeadHours = 6

// dueWindow is how far ahead of its firing time a reminder counts as due,
// sized to the poll interval so a tick shortly before the firing time still
// picks it up.
const dueWindow = time.Hour

// NotificationTime returns the instant a reminder should fire: the combined
// due date and time-of-day minus the lead. It reports false when the task
// has no due date or no time-of-day; a reminder cannot be anchored on a
// dateless or timeless task.
func NotificationTime(task model.TaskInstance) (time.Time, bool) {
	if task.DueDate == nil || task.DueTime == nil {
		return time.Time{}, false
	}

	tod, err := time.Parse("15:04", *task.DueTime)
	if err != nil {
		return time.Time{}, false
	}

	d := *task.DueDate
	dueAt := time.Date(d.Year(), d.Month(), d.Day(),
		tod.Hour(), tod.Minute(), 0, 0, d.Location())

	lead := task.NotificationLeadHours
	if lead <= 0 {
		lead = DefaultLeadHours
	}

	return dueAt.Add(-time.Duration(lead) * time.Hour), true
}

// IsReminderDueNow reports whether the reminder's firing time falls within
// [now, now+1h]. Used by the polling dispatcher to decide whether to fire.
func IsReminderDueNow(task model.TaskInstance, now time.Time) bool {
	notifyAt, ok := NotificationTime(task)
	if !ok {
		return false
	}
	diff := notifyAt.Sub(now)
	return diff >= 0 && diff <= dueWindow
}

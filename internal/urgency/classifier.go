// Package urgency partitions outstanding tasks into ordered display
// buckets, most urgent first.
package urgency

import (
	"sort"
	"time"

	"choreplan/internal/model"
	"choreplan/internal/recurrence"
)

// Buckets are disjoint; their union is the set of non-completed,
// non-archived input tasks. Overdue-first encodes the product priority:
// surface neglected work before upcoming work.
type Buckets struct {
	Overdue    []model.TaskInstance `json:"overdue"`
	Today      []model.TaskInstance `json:"today"`
	ThisWeek   []model.TaskInstance `json:"this_week"`
	ComingSoon []model.TaskInstance `json:"coming_soon"`
	Later      []model.TaskInstance `json:"later"`
}

// Classify routes each open task by its start-of-day due date: before today
// is overdue, today is today, inside 7 days is this week, inside 14 is
// coming soon, anything else (including no due date) is later. A task
// deferred past today is routed by its defer date instead, so it stays
// hidden from the urgent buckets until the defer date regardless of how
// overdue it really is. Malformed tasks degrade to Later; Classify never
// panics.
func Classify(tasks []model.TaskInstance, now time.Time) Buckets {
	today := recurrence.StartOfDay(now)
	weekEnd := today.AddDate(0, 0, 7)
	fortnightEnd := today.AddDate(0, 0, 14)

	var b Buckets
	for _, t := range tasks {
		if !t.Open() {
			continue
		}

		if t.DeferUntil != nil {
			deferDate := recurrence.StartOfDay(*t.DeferUntil)
			if deferDate.After(today) {
				switch {
				case deferDate.Before(weekEnd):
					b.ThisWeek = append(b.ThisWeek, t)
				case deferDate.Before(fortnightEnd):
					b.ComingSoon = append(b.ComingSoon, t)
				default:
					b.Later = append(b.Later, t)
				}
				continue
			}
		}

		if t.DueDate == nil {
			b.Later = append(b.Later, t)
			continue
		}

		due := recurrence.StartOfDay(*t.DueDate)
		switch {
		case due.Equal(today):
			b.Today = append(b.Today, t)
		case due.Before(today):
			b.Overdue = append(b.Overdue, t)
		case due.Before(weekEnd):
			b.ThisWeek = append(b.ThisWeek, t)
		case due.Before(fortnightEnd):
			b.ComingSoon = append(b.ComingSoon, t)
		default:
			b.Later = append(b.Later, t)
		}
	}

	sortByDueDate(b.Overdue)
	sortByDueDate(b.Today)
	sortByDueDate(b.ThisWeek)
	sortByDueDate(b.ComingSoon)
	sortByDueDate(b.Later)
	return b
}

// sortByDueDate orders ascending by due date, tasks without one last.
func sortByDueDate(tasks []model.TaskInstance) {
	sort.SliceStable(tasks, func(i, j int) bool {
		di, dj := tasks[i].DueDate, tasks[j].DueDate
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return di.Before(*dj)
	})
}

// Size returns the total number of classified tasks.
func (b Buckets) Size() int {
	return len(b.Overdue) + len(b.Today) + len(b.ThisWeek) + len(b.ComingSoon) + len(b.Later)
}

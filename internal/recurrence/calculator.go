package recurrence

import (
	"sort"
	"time"
)

const (
	// Hard cap on the number of dates returned for one window, as a
	// runaway-loop guard.
	maxOccurrences = 200

	// Cap on sequential next-occurrence steps in the fallback walk.
	maxWalkIterations = 100

	fallbackGapDays = 7
)

// gapPatterns maps a times-per-week count to the day gaps between
// occurrences. Each pattern sums to 7 so the weekly count holds over any
// whole number of weeks.
var gapPatterns = map[int][]int{
	1: {7},
	2: {3, 4},
	3: {2, 2, 3},
	4: {2, 1, 2, 2},
	5: {1, 2, 1, 1, 2},
	6: {1, 1, 1, 1, 1, 2},
	7: {1},
}

// StartOfDay strips the time-of-day component. All recurrence math compares
// dates at day granularity.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// NextOccurrence returns the occurrence date that follows anchor under rule.
// A zero anchor means "now". The result is at day granularity.
func NextOccurrence(rule Rule, anchor time.Time) time.Time {
	if anchor.IsZero() {
		anchor = time.Now()
	}
	anchor = StartOfDay(anchor)

	switch rule.Frequency() {
	case FrequencyDaily:
		return anchor.AddDate(0, 0, rule.Interval())
	case FrequencyWeekly:
		return anchor.AddDate(0, 0, 7*rule.Interval())
	case FrequencyMonthly:
		return anchor.AddDate(0, rule.Interval(), 0)
	case FrequencyTimesPerWeek:
		if rule.HasPinnedDays() {
			return nextPinnedDay(rule.PinnedDays(), anchor)
		}
		gaps := gapPattern(rule.Interval())
		return anchor.AddDate(0, 0, gaps[0])
	case FrequencyCustom:
		unit, count, ok := parseCustomExpression(rule.Expression())
		if !ok {
			return anchor.AddDate(0, 0, fallbackGapDays)
		}
		switch unit {
		case unitDay:
			return anchor.AddDate(0, 0, count)
		case unitWeek:
			return anchor.AddDate(0, 0, 7*count)
		default:
			return anchor.AddDate(0, count, 0)
		}
	default:
		return anchor.AddDate(0, 0, fallbackGapDays)
	}
}

// OccurrencesInRange returns the rule's occurrence dates inside the
// half-open range [start, end), ordered and deduplicated, capped at
// maxOccurrences entries.
//
// Rules with pinned weekdays get an exact day-of-week schedule: for every
// week overlapping the range, each pinned weekday's date is emitted if it
// falls inside. All other rules walk NextOccurrence from start.
func OccurrencesInRange(rule Rule, start, end time.Time) []time.Time {
	start = StartOfDay(start)
	end = StartOfDay(end)
	if !end.After(start) {
		return nil
	}

	var dates []time.Time
	if rule.HasPinnedDays() {
		dates = pinnedOccurrences(rule.PinnedDays(), start, end)
	} else {
		dates = walkOccurrences(rule, start, end)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	dates = dedupDates(dates)
	if len(dates) > maxOccurrences {
		dates = dates[:maxOccurrences]
	}
	return dates
}

// pinnedOccurrences emits every pinned weekday of every week overlapping
// [start, end).
func pinnedOccurrences(days []time.Weekday, start, end time.Time) []time.Time {
	// Back up to the Sunday of start's week.
	weekStart := start.AddDate(0, 0, -int(start.Weekday()))

	var dates []time.Time
	for weekStart.Before(end) && len(dates) < maxOccurrences {
		for _, day := range days {
			date := weekStart.AddDate(0, 0, int(day))
			if !date.Before(start) && date.Before(end) {
				dates = append(dates, date)
				if len(dates) >= maxOccurrences {
					break
				}
			}
		}
		weekStart = weekStart.AddDate(0, 0, 7)
	}
	return dates
}

// walkOccurrences emits start and then repeated next occurrences until the
// walk passes end. times_per_week cycles its full gap pattern so the spread
// matches the lookup table rather than a fixed stride.
func walkOccurrences(rule Rule, start, end time.Time) []time.Time {
	var dates []time.Time

	if rule.Frequency() == FrequencyTimesPerWeek {
		gaps := gapPattern(rule.Interval())
		cur := start
		for i := 0; i < maxWalkIterations && cur.Before(end); i++ {
			dates = append(dates, cur)
			cur = cur.AddDate(0, 0, gaps[i%len(gaps)])
		}
		return dates
	}

	cur := start
	for i := 0; i < maxWalkIterations && cur.Before(end); i++ {
		dates = append(dates, cur)
		cur = NextOccurrence(rule, cur)
	}
	return dates
}

// nextPinnedDay returns the first pinned weekday strictly after anchor.
// With at least one pinned day the scan always lands within a week.
func nextPinnedDay(days []time.Weekday, anchor time.Time) time.Time {
	for offset := 1; offset <= 7; offset++ {
		next := anchor.AddDate(0, 0, offset)
		for _, d := range days {
			if next.Weekday() == d {
				return next
			}
		}
	}
	return anchor.AddDate(0, 0, 7)
}

func gapPattern(count int) []int {
	if p, ok := gapPatterns[count]; ok {
		return p
	}
	return gapPatterns[1]
}

func dedupDates(sorted []time.Time) []time.Time {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, d := range sorted[1:] {
		if !d.Equal(out[len(out)-1]) {
			out = append(out, d)
		}
	}
	return out
}

package recurrence

import (
	"time"
)

type Frequency string

const (
	FrequencyDaily        Frequency = "daily"
	FrequencyWeekly       Frequency = "weekly"
	FrequencyMonthly      Frequency = "monthly"
	FrequencyTimesPerWeek Frequency = "times_per_week"
	FrequencyCustom       Frequency = "custom"
)

// Rule is a discriminated recurrence rule. Constructors only set the fields
// that belong to the chosen frequency, so a daily rule cannot carry pinned
// weekdays and a custom rule cannot carry an interval.
type Rule struct {
	freq     Frequency
	interval int
	days     []time.Weekday // times_per_week only
	expr     string         // custom only
}

// Daily recurs every interval days.
func Daily(interval int) Rule {
	return Rule{freq: FrequencyDaily, interval: normalizeInterval(interval)}
}

// Weekly recurs every interval weeks.
func Weekly(interval int) Rule {
	return Rule{freq: FrequencyWeekly, interval: normalizeInterval(interval)}
}

// Monthly recurs every interval calendar months.
func Monthly(interval int) Rule {
	return Rule{freq: FrequencyMonthly, interval: normalizeInterval(interval)}
}

// TimesPerWeek recurs count times per week. Count is clamped to [1,7].
// When days are given and their number equals the clamped count, occurrences
// are pinned to exactly those weekdays; otherwise the days are ignored and
// the spread falls back to the gap table.
func TimesPerWeek(count int, days ...time.Weekday) Rule {
	if count < 1 {
		count = 1
	}
	if count > 7 {
		count = 7
	}

	r := Rule{freq: FrequencyTimesPerWeek, interval: count}
	if nd := normalizeDays(days); len(nd) == count {
		r.days = nd
	}
	return r
}

// Custom recurs per a free-text expression, parsed best-effort.
func Custom(expr string) Rule {
	return Rule{freq: FrequencyCustom, expr: expr}
}

// FromParts reconstructs a rule from its stored representation. Unknown
// frequency strings degrade to a weekly rule rather than failing the load.
func FromParts(freq string, interval int, days []int, expr string) Rule {
	switch Frequency(freq) {
	case FrequencyDaily:
		return Daily(interval)
	case FrequencyWeekly:
		return Weekly(interval)
	case FrequencyMonthly:
		return Monthly(interval)
	case FrequencyTimesPerWeek:
		wd := make([]time.Weekday, 0, len(days))
		for _, d := range days {
			if d >= 0 && d <= 6 {
				wd = append(wd, time.Weekday(d))
			}
		}
		return TimesPerWeek(interval, wd...)
	case FrequencyCustom:
		return Custom(expr)
	default:
		return Weekly(1)
	}
}

func (r Rule) Frequency() Frequency { return r.freq }

// Interval returns the rule's interval; for times_per_week it is the
// per-week occurrence count.
func (r Rule) Interval() int { return r.interval }

// PinnedDays returns the pinned weekdays, sorted, or nil.
func (r Rule) PinnedDays() []time.Weekday { return r.days }

// HasPinnedDays reports whether occurrences are pinned to exact weekdays.
func (r Rule) HasPinnedDays() bool { return len(r.days) > 0 }

func (r Rule) Expression() string { return r.expr }

// DayNumbers returns the pinned weekdays as 0-6 ints for storage.
func (r Rule) DayNumbers() []int {
	if len(r.days) == 0 {
		return nil
	}
	out := make([]int, len(r.days))
	for i, d := range r.days {
		out[i] = int(d)
	}
	return out
}

func normalizeInterval(interval int) int {
	if interval <= 0 {
		return 1
	}
	return interval
}

// normalizeDays sorts and deduplicates, Sunday first.
func normalizeDays(days []time.Weekday) []time.Weekday {
	seen := [7]bool{}
	for _, d := range days {
		if d >= 0 && d <= 6 {
			seen[d] = true
		}
	}
	out := make([]time.Weekday, 0, len(days))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out
}

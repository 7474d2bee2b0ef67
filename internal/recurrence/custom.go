package recurrence

import (
	"regexp"
	"strconv"
	"strings"
)

// The custom frequency parser extracts a unit and count from free text in
// either English or Hebrew ("every 3 days", "כל 3 ימים"). It is heuristic by
// design: anything it cannot read falls back to a 7-day cycle in the caller.

type customUnit int

const (
	unitDay customUnit = iota
	unitWeek
	unitMonth
)

var numberPattern = regexp.MustCompile(`\d+`)

var dayKeywords = []string{
	"daily", "days", "day",
	"יומי", "ימים", "יום",
}

var weekKeywords = []string{
	"weekly", "weeks", "week",
	"שבועי", "שבועות", "שבוע",
}

var monthKeywords = []string{
	"monthly", "months", "month",
	"חודשי", "חודשים", "חודש",
}

// parseCustomExpression returns the recognized unit and count. The count
// defaults to 1 when the text names a unit without a number. ok is false
// when no unit keyword is present.
func parseCustomExpression(expr string) (customUnit, int, bool) {
	text := strings.ToLower(strings.TrimSpace(expr))
	if text == "" {
		return unitDay, 0, false
	}

	unit, ok := matchUnit(text)
	if !ok {
		return unitDay, 0, false
	}

	count := 1
	if m := numberPattern.FindString(text); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			count = n
		}
	}

	return unit, count, true
}

func matchUnit(text string) (customUnit, bool) {
	// Day keywords are checked last: "יום" is a substring of "יומי" but
	// also of weekday names, and English "day" hides in "weekday".
	for _, kw := range weekKeywords {
		if strings.Contains(text, kw) {
			return unitWeek, true
		}
	}
	for _, kw := range monthKeywords {
		if strings.Contains(text, kw) {
			return unitMonth, true
		}
	}
	for _, kw := range dayKeywords {
		if strings.Contains(text, kw) {
			return unitDay, true
		}
	}
	return unitDay, false
}

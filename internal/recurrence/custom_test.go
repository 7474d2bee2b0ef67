package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCustomExpression(t *testing.T) {
	tests := []struct {
		expr      string
		wantUnit  customUnit
		wantCount int
		wantOK    bool
	}{
		{"every 3 days", unitDay, 3, true},
		{"every day", unitDay, 1, true},
		{"Daily", unitDay, 1, true},
		{"every 2 weeks", unitWeek, 2, true},
		{"weekly", unitWeek, 1, true},
		{"every 6 months", unitMonth, 6, true},
		{"monthly deep clean", unitMonth, 1, true},

		{"כל 3 ימים", unitDay, 3, true},
		{"כל יום", unitDay, 1, true},
		{"יומי", unitDay, 1, true},
		{"כל שבועיים", unitWeek, 1, true},
		{"כל 2 שבועות", unitWeek, 2, true},
		{"כל חודש", unitMonth, 1, true},
		{"חודשי", unitMonth, 1, true},

		// A week keyword wins even when a day keyword is also present.
		{"3 days every week", unitWeek, 3, true},

		{"", unitDay, 0, false},
		{"   ", unitDay, 0, false},
		{"whenever it rains", unitDay, 0, false},
		{"every 5", unitDay, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			unit, count, ok := parseCustomExpression(tt.expr)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantUnit, unit)
				assert.Equal(t, tt.wantCount, count)
			}
		})
	}
}

func TestParseCustomExpressionIgnoresZeroCount(t *testing.T) {
	// A zero in the text cannot produce a zero-length cycle.
	_, count, ok := parseCustomExpression("every 0 days")
	assert.True(t, ok)
	assert.Equal(t, 1, count)
}

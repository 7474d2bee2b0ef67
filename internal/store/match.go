package store

import (
	"fmt"
	"time"

	"choreplan/internal/model"
)

// matchTemplate evaluates a filter against a template in memory. The field
// names mirror the Postgres column names so the two implementations accept
// the same filters.
func matchTemplate(t model.Template, f Filter) bool {
	for _, p := range f {
		v, ok := templateFieldValue(t, p.Field)
		if !ok {
			return false
		}
		if !applyOp(p.Op, v, p.Value) {
			return false
		}
	}
	return true
}

func matchTask(t model.TaskInstance, f Filter) bool {
	for _, p := range f {
		v, ok := taskFieldValue(t, p.Field)
		if !ok {
			return false
		}
		if !applyOp(p.Op, v, p.Value) {
			return false
		}
	}
	return true
}

// templateFieldValue covers the same field set as templateColumns so filters
// behave alike against both stores.
func templateFieldValue(t model.Template, field string) (any, bool) {
	switch field {
	case "id":
		return t.ID, true
	case "household_id":
		return t.HouseholdID, true
	case "title":
		return t.Title, true
	case "category":
		return t.Category, true
	case "priority":
		return t.Priority, true
	case "assigned_to":
		return t.AssignedTo, true
	case "duration_minutes":
		return t.DurationMinutes, true
	case "location":
		return t.Location, true
	case "due_time":
		return t.DueTime, true
	case "is_active":
		return t.IsActive, true
	case "auto_generate":
		return t.AutoGenerate, true
	case "generation_offset_days":
		return t.GenerationOffsetDays, true
	case "notification_lead_hours":
		return t.NotificationLeadHours, true
	default:
		return nil, false
	}
}

// taskFieldValue covers the same field set as taskColumns.
func taskFieldValue(t model.TaskInstance, field string) (any, bool) {
	switch field {
	case "id":
		return t.ID, true
	case "template_id":
		return t.TemplateID, true
	case "household_id":
		return t.HouseholdID, true
	case "title":
		return t.Title, true
	case "category":
		return t.Category, true
	case "priority":
		return t.Priority, true
	case "assigned_to":
		return t.AssignedTo, true
	case "duration_minutes":
		return t.DurationMinutes, true
	case "location":
		return t.Location, true
	case "due_date":
		return t.DueDate, true
	case "due_time":
		return t.DueTime, true
	case "notification_lead_hours":
		return t.NotificationLeadHours, true
	case "status":
		return t.Status, true
	case "is_archived":
		return t.IsArchived, true
	case "completion_date":
		return t.CompletionDate, true
	case "defer_until":
		return t.DeferUntil, true
	case "defer_count":
		return t.DeferCount, true
	default:
		return nil, false
	}
}

// validateTemplateFilter rejects unknown fields the way buildWhere does, so
// the memory store stays a faithful double of the Postgres one.
func validateTemplateFilter(f Filter) error {
	var zero model.Template
	for _, p := range f {
		if _, ok := templateFieldValue(zero, p.Field); !ok {
			return fmt.Errorf("unknown filter field: %s", p.Field)
		}
	}
	return nil
}

func validateTaskFilter(f Filter) error {
	var zero model.TaskInstance
	for _, p := range f {
		if _, ok := taskFieldValue(zero, p.Field); !ok {
			return fmt.Errorf("unknown filter field: %s", p.Field)
		}
	}
	return nil
}

func applyOp(op Op, have, want any) bool {
	eq := looseEqual(have, want)
	if op == OpNotEq {
		return !eq
	}
	return eq
}

// looseEqual compares after unwrapping pointers and domain string types, so
// Eq("status", "completed") and Eq("status", model.TaskStatusCompleted)
// behave alike, and Eq("template_id", nil) matches manual tasks.
func looseEqual(a, b any) bool {
	na, nb := normalizeValue(a), normalizeValue(b)
	if ta, ok := na.(time.Time); ok {
		if tb, ok := nb.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return na == nb
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case model.TaskStatus:
		return string(val)
	case model.Priority:
		return string(val)
	case *int:
		if val == nil {
			return nil
		}
		return *val
	case *string:
		if val == nil {
			return nil
		}
		return *val
	case *time.Time:
		if val == nil {
			return nil
		}
		return DateOnly(*val)
	case time.Time:
		return DateOnly(val)
	default:
		return v
	}
}

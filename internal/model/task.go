package model

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskInstance is a concrete, dated task materialized from a template.
// Manually created tasks carry no template id. At most one non-archived,
// non-completed instance exists per (template_id, due_date).
type TaskInstance struct {
	ID                    int        `json:"id"`
	TemplateID            *int       `json:"template_id,omitempty"`
	HouseholdID           int        `json:"household_id"`
	Title                 string     `json:"title"`
	Category              string     `json:"category"`
	Priority              Priority   `json:"priority"`
	AssignedTo            *int       `json:"assigned_to,omitempty"`
	DurationMinutes       *int       `json:"duration_minutes,omitempty"`
	Location              string     `json:"location,omitempty"`
	DueDate               *time.Time `json:"due_date,omitempty"` // date component only
	DueTime               *string    `json:"due_time,omitempty"` // "HH:MM"
	NotificationLeadHours int        `json:"notification_lead_hours"`
	Status                TaskStatus `json:"status"`
	IsArchived            bool       `json:"is_archived"`
	CompletionDate        *time.Time `json:"completion_date,omitempty"`
	DeferUntil            *time.Time `json:"defer_until,omitempty"`
	DeferCount            int        `json:"defer_count"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Open reports whether the task still counts against the dedup invariant
// and shows up in urgency views.
func (t *TaskInstance) Open() bool {
	return t.Status != TaskStatusCompleted && !t.IsArchived
}

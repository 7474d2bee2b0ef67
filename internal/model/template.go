package model

import (
	"time"

	"choreplan/internal/recurrence"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Template is a user-defined recurring chore definition. The engine
// materializes dated task instances from active templates with
// auto_generate set.
type Template struct {
	ID                    int             `json:"id"`
	HouseholdID           int             `json:"household_id"`
	Title                 string          `json:"title"`
	Category              string          `json:"category"`
	Priority              Priority        `json:"priority"`
	AssignedTo            *int            `json:"assigned_to,omitempty"`
	DurationMinutes       *int            `json:"duration_minutes,omitempty"`
	Location              string          `json:"location,omitempty"`
	Recurrence            recurrence.Rule `json:"recurrence"`
	DueTime               *string         `json:"due_time,omitempty"` // "HH:MM"
	IsActive              bool            `json:"is_active"`
	AutoGenerate          bool            `json:"auto_generate"`
	GenerationOffsetDays  int             `json:"generation_offset_days"`
	NotificationLeadHours int             `json:"notification_lead_hours"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"choreplan/internal/model"
)

func TestDedupIndex(t *testing.T) {
	idx := NewDedupIndex()
	d := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	assert.False(t, idx.Has(1, d))
	idx.Add(1, d)
	assert.True(t, idx.Has(1, d))
	assert.Equal(t, 1, idx.Len())

	// Same template, same calendar day, different time-of-day: same key.
	idx.Add(1, d.Add(18*time.Hour))
	assert.Equal(t, 1, idx.Len())

	// Different template or different day is a distinct key.
	assert.False(t, idx.Has(2, d))
	assert.False(t, idx.Has(1, d.AddDate(0, 0, 1)))
}

func TestNewDedupIndexFromTasksIncludesClosed(t *testing.T) {
	tplID := 7
	due := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	other := due.AddDate(0, 0, 2)

	idx := NewDedupIndexFromTasks([]model.TaskInstance{
		{TemplateID: &tplID, DueDate: &due, Status: model.TaskStatusCompleted},
		{TemplateID: &tplID, DueDate: &other, Status: model.TaskStatusPending, IsArchived: true},
		{TemplateID: nil, DueDate: &due},  // ad-hoc task, no key
		{TemplateID: &tplID, DueDate: nil}, // undated, no key
	})

	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Has(tplID, due))
	assert.True(t, idx.Has(tplID, other))
}

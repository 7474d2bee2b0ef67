package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choreplan/internal/model"
)

func TestMemoryTemplateStoreFilter(t *testing.T) {
	s := NewMemoryTemplateStore()
	ctx := context.Background()

	active := &model.Template{Title: "Vacuum", HouseholdID: 1, IsActive: true, AutoGenerate: true}
	paused := &model.Template{Title: "Dust shelves", HouseholdID: 1, IsActive: true, AutoGenerate: false}
	disabled := &model.Template{Title: "Old chore", HouseholdID: 2, IsActive: false, AutoGenerate: true}
	for _, tpl := range []*model.Template{active, paused, disabled} {
		require.NoError(t, s.Create(ctx, tpl))
	}

	got, err := s.Filter(ctx, Filter{Eq("is_active", true), Eq("auto_generate", true)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Vacuum", got[0].Title)

	byHousehold, err := s.Filter(ctx, Filter{Eq("household_id", 1)})
	require.NoError(t, err)
	assert.Len(t, byHousehold, 2)

	// An unknown field is an error, same as the Postgres allow-list.
	_, err = s.Filter(ctx, Filter{Eq("nonexistent", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter field")
}

func TestMemoryTemplateStoreUpdateAndGet(t *testing.T) {
	s := NewMemoryTemplateStore()
	ctx := context.Background()

	tpl := &model.Template{Title: "Vacuum", IsActive: true}
	require.NoError(t, s.Create(ctx, tpl))
	require.NotZero(t, tpl.ID)

	require.NoError(t, s.Update(ctx, tpl.ID, Partial{"is_active": false, "title": "Vacuum weekly"}))

	got, err := s.GetByID(ctx, tpl.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)
	assert.Equal(t, "Vacuum weekly", got.Title)

	missing, err := s.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, s.Update(ctx, 999, Partial{"is_active": true}))
}

func TestMemoryTaskStoreDedupOnCreate(t *testing.T) {
	s := NewMemoryTaskStore()
	ctx := context.Background()

	tplID := 1
	due := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	first := &model.TaskInstance{TemplateID: &tplID, DueDate: &due, Status: model.TaskStatusPending}
	created, err := s.Create(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	// Same slot again: reported occupied, not an error.
	dup := &model.TaskInstance{TemplateID: &tplID, DueDate: &due, Status: model.TaskStatusPending}
	created, err = s.Create(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	// A different due date is a new slot.
	nextDay := due.AddDate(0, 0, 1)
	created, err = s.Create(ctx, &model.TaskInstance{TemplateID: &tplID, DueDate: &nextDay, Status: model.TaskStatusPending})
	require.NoError(t, err)
	assert.True(t, created)

	// Ad-hoc tasks without a template never collide.
	created, err = s.Create(ctx, &model.TaskInstance{DueDate: &due, Status: model.TaskStatusPending})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMemoryTaskStoreDedupIgnoresClosedInstances(t *testing.T) {
	s := NewMemoryTaskStore()
	ctx := context.Background()

	tplID := 1
	due := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	done := &model.TaskInstance{TemplateID: &tplID, DueDate: &due, Status: model.TaskStatusCompleted}
	created, err := s.Create(ctx, done)
	require.NoError(t, err)
	require.True(t, created)

	// The completed instance does not hold the slot.
	again := &model.TaskInstance{TemplateID: &tplID, DueDate: &due, Status: model.TaskStatusPending}
	created, err = s.Create(ctx, again)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMemoryTaskStoreFilterSemantics(t *testing.T) {
	s := NewMemoryTaskStore()
	ctx := context.Background()

	tplID := 1
	pending := &model.TaskInstance{TemplateID: &tplID, Status: model.TaskStatusPending}
	completed := &model.TaskInstance{Status: model.TaskStatusCompleted}
	archived := &model.TaskInstance{Status: model.TaskStatusPending, IsArchived: true}
	for _, task := range []*model.TaskInstance{pending, completed, archived} {
		_, err := s.Create(ctx, task)
		require.NoError(t, err)
	}

	open, err := s.Filter(ctx, Filter{NotEq("status", model.TaskStatusCompleted), Eq("is_archived", false)})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, pending.ID, open[0].ID)

	// String and typed status values filter alike.
	byString, err := s.Filter(ctx, Filter{Eq("status", "completed")})
	require.NoError(t, err)
	require.Len(t, byString, 1)
	assert.Equal(t, completed.ID, byString[0].ID)

	// Nil matches tasks without a template.
	manual, err := s.Filter(ctx, Filter{Eq("template_id", nil)})
	require.NoError(t, err)
	assert.Len(t, manual, 2)

	// Unknown fields error instead of silently matching nothing.
	_, err = s.Filter(ctx, Filter{Eq("nonexistent", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter field")
}

func TestMemoryTaskStoreFiltersOnDateAndPriorityFields(t *testing.T) {
	s := NewMemoryTaskStore()
	ctx := context.Background()

	due := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	deferUntil := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	urgent := &model.TaskInstance{
		Title:    "Fix the leak",
		Priority: model.PriorityHigh,
		Status:   model.TaskStatusPending,
		DueDate:  &due,
	}
	deferred := &model.TaskInstance{
		Title:      "Sort the garage",
		Priority:   model.PriorityLow,
		Status:     model.TaskStatusPending,
		DeferUntil: &deferUntil,
	}
	for _, task := range []*model.TaskInstance{urgent, deferred} {
		_, err := s.Create(ctx, task)
		require.NoError(t, err)
	}

	byPriority, err := s.Filter(ctx, Filter{Eq("priority", model.PriorityHigh)})
	require.NoError(t, err)
	require.Len(t, byPriority, 1)
	assert.Equal(t, urgent.ID, byPriority[0].ID)

	// Due-date filters compare at day granularity, pointer or value alike.
	byDue, err := s.Filter(ctx, Filter{Eq("due_date", due.Add(15*time.Hour))})
	require.NoError(t, err)
	require.Len(t, byDue, 1)
	assert.Equal(t, urgent.ID, byDue[0].ID)

	undeferred, err := s.Filter(ctx, Filter{Eq("defer_until", nil)})
	require.NoError(t, err)
	require.Len(t, undeferred, 1)
	assert.Equal(t, urgent.ID, undeferred[0].ID)
}

func TestSubscribeNotifiesOnMatchingWrites(t *testing.T) {
	s := NewMemoryTaskStore()
	ctx := context.Background()

	var seen []model.TaskInstance
	cancel := s.Subscribe(Filter{Eq("status", model.TaskStatusCompleted)}, func(t model.TaskInstance) {
		seen = append(seen, t)
	})

	task := &model.TaskInstance{Title: "Laundry", Status: model.TaskStatusPending}
	_, err := s.Create(ctx, task)
	require.NoError(t, err)
	assert.Empty(t, seen, "pending create must not match a completed filter")

	require.NoError(t, s.Update(ctx, task.ID, Partial{"status": model.TaskStatusCompleted}))
	require.Len(t, seen, 1)
	assert.Equal(t, task.ID, seen[0].ID)
	assert.Equal(t, model.TaskStatusCompleted, seen[0].Status)

	cancel()
	require.NoError(t, s.Update(ctx, task.ID, Partial{"status": model.TaskStatusPending}))
	require.NoError(t, s.Update(ctx, task.ID, Partial{"status": model.TaskStatusCompleted}))
	assert.Len(t, seen, 1, "cancelled subscription must not fire")
}

func TestSubscriberMayReenterStore(t *testing.T) {
	s := NewMemoryTaskStore()
	ctx := context.Background()

	var got *model.TaskInstance
	s.Subscribe(Filter{}, func(task model.TaskInstance) {
		loaded, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		got = loaded
	})

	task := &model.TaskInstance{Title: "Laundry", Status: model.TaskStatusPending}
	_, err := s.Create(ctx, task)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
}

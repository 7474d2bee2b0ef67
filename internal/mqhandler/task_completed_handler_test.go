package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"choreplan/internal/engine"
	"choreplan/internal/model"
	"choreplan/internal/recurrence"
	"choreplan/internal/store"
	"choreplan/pkg/mq"
)

var handlerNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (*TaskCompletedHandler, *store.MemoryTemplateStore, *store.MemoryTaskStore) {
	t.Helper()
	templates := store.NewMemoryTemplateStore()
	tasks := store.NewMemoryTaskStore()
	eng := engine.New(templates, tasks, zap.NewNop()).
		WithClock(func() time.Time { return handlerNow })
	return NewTaskCompletedHandler(eng, templates, tasks, zap.NewNop()), templates, tasks
}

func payload(taskID int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"task_id": %d}`, taskID))
}

func pendingFor(t *testing.T, tasks *store.MemoryTaskStore, templateID int) []model.TaskInstance {
	t.Helper()
	got, err := tasks.Filter(context.Background(), store.Filter{
		store.Eq("template_id", templateID),
		store.Eq("status", model.TaskStatusPending),
	})
	require.NoError(t, err)
	return got
}

func TestHandleGeneratesNextOccurrence(t *testing.T) {
	h, templates, tasks := newHandler(t)
	ctx := context.Background()

	// Offset matches the cycle so the next occurrence is schedulable the
	// moment the current one completes.
	tpl := &model.Template{
		Title:                "Water the plants",
		Recurrence:           recurrence.Daily(3),
		IsActive:             true,
		AutoGenerate:         true,
		GenerationOffsetDays: 3,
	}
	require.NoError(t, templates.Create(ctx, tpl))

	completedAt := handlerNow
	done := &model.TaskInstance{
		TemplateID:     &tpl.ID,
		Title:          tpl.Title,
		Status:         model.TaskStatusCompleted,
		CompletionDate: &completedAt,
	}
	_, err := tasks.Create(ctx, done)
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, payload(done.ID)))

	next := pendingFor(t, tasks, tpl.ID)
	require.Len(t, next, 1)
	assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), *next[0].DueDate)
}

func TestHandleRespectsPinnedWeekdays(t *testing.T) {
	h, templates, tasks := newHandler(t)
	ctx := context.Background()

	// handlerNow is Monday 2024-03-04; the next pinned day is Wednesday.
	tpl := &model.Template{
		Title:                "Gym session",
		Recurrence:           recurrence.TimesPerWeek(3, time.Monday, time.Wednesday, time.Friday),
		IsActive:             true,
		AutoGenerate:         true,
		GenerationOffsetDays: 2,
	}
	require.NoError(t, templates.Create(ctx, tpl))

	completedAt := handlerNow
	done := &model.TaskInstance{
		TemplateID:     &tpl.ID,
		Title:          tpl.Title,
		Status:         model.TaskStatusCompleted,
		CompletionDate: &completedAt,
	}
	_, err := tasks.Create(ctx, done)
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, payload(done.ID)))

	next := pendingFor(t, tasks, tpl.ID)
	require.Len(t, next, 1)
	assert.Equal(t, time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC), *next[0].DueDate)
	assert.Equal(t, time.Wednesday, next[0].DueDate.Weekday())
}

func TestHandleIgnoresManualTasks(t *testing.T) {
	h, _, tasks := newHandler(t)
	ctx := context.Background()

	oneOff := &model.TaskInstance{Title: "Fix the gate", Status: model.TaskStatusCompleted}
	_, err := tasks.Create(ctx, oneOff)
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, payload(oneOff.ID)))

	all, err := tasks.Filter(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHandleIgnoresUnknownTask(t *testing.T) {
	h, _, tasks := newHandler(t)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, payload(999)))

	all, err := tasks.Filter(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHandleIgnoresInactiveTemplate(t *testing.T) {
	h, templates, tasks := newHandler(t)
	ctx := context.Background()

	tpl := &model.Template{
		Title:      "Retired chore",
		Recurrence: recurrence.Daily(1),
		IsActive:   false,
	}
	require.NoError(t, templates.Create(ctx, tpl))

	done := &model.TaskInstance{TemplateID: &tpl.ID, Status: model.TaskStatusCompleted}
	_, err := tasks.Create(ctx, done)
	require.NoError(t, err)

	require.NoError(t, h.Handle(ctx, payload(done.ID)))
	assert.Empty(t, pendingFor(t, tasks, tpl.ID))
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	h, _, _ := newHandler(t)

	// Malformed payloads are marked permanent so the consumer dead-letters
	// them instead of requeueing forever.
	err := h.Handle(context.Background(), json.RawMessage(`not json`))
	require.Error(t, err)
	assert.True(t, mq.IsPermanent(err))
}

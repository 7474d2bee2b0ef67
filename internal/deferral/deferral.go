// Package deferral postpones when a task surfaces in urgency views without
// touching its due date.
package deferral

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"choreplan/internal/recurrence"
	"choreplan/internal/store"
)

type Manager struct {
	tasks  store.TaskStore
	logger *zap.Logger
}

func NewManager(tasks store.TaskStore, logger *zap.Logger) *Manager {
	return &Manager{tasks: tasks, logger: logger}
}

// Defer hides the task from urgent view until the given date and bumps its
// defer count. Due date and status are untouched: deferral is purely a
// display-scheduling override, and the next occurrence after completion is
// still anchored on the real due/completion date.
func (m *Manager) Defer(ctx context.Context, taskID int, until time.Time) error {
	task, err := m.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %d: %w", taskID, err)
	}
	if task == nil {
		return fmt.Errorf("task %d not found", taskID)
	}

	deferUntil := recurrence.StartOfDay(until)
	err = m.tasks.Update(ctx, taskID, store.Partial{
		"defer_until": deferUntil,
		"defer_count": task.DeferCount + 1,
	})
	if err != nil {
		return fmt.Errorf("failed to defer task %d: %w", taskID, err)
	}

	m.logger.Info("Task deferred",
		zap.Int("task_id", taskID),
		zap.Time("defer_until", deferUntil),
		zap.Int("defer_count", task.DeferCount+1),
	)
	return nil
}

package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"choreplan/internal/model"
	"choreplan/internal/store"
	"choreplan/pkg/metrics"
	"choreplan/pkg/mq"
)

type eventPublisher interface {
	Publish(routingKey string, payload any) error
}

// Dispatcher polls open tasks and publishes a reminder.due event for each
// task whose reminder time has arrived. The push transport that turns these
// events into device notifications lives outside this service.
type Dispatcher struct {
	tasks     store.TaskStore
	publisher eventPublisher
	fired     *FiredMarker
	logger    *zap.Logger
	clock     func() time.Time
	interval  time.Duration
}

func NewDispatcher(
	tasks store.TaskStore,
	publisher eventPublisher,
	fired *FiredMarker,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		tasks:     tasks,
		publisher: publisher,
		fired:     fired,
		logger:    logger,
		clock:     time.Now,
		interval:  time.Minute,
	}
}

func (d *Dispatcher) WithClock(clock func() time.Time) *Dispatcher {
	d.clock = clock
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

// Start runs the polling loop until ctx is cancelled. Run it in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting reminder dispatcher",
		zap.Duration("interval", d.interval),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Reminder dispatcher stopped")
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

// Sweep dispatches every currently due reminder. Failures on one task are
// logged and do not stop the sweep.
func (d *Dispatcher) Sweep(ctx context.Context) {
	now := d.clock()

	tasks, err := d.tasks.Filter(ctx, store.Filter{
		store.NotEq("status", model.TaskStatusCompleted),
		store.Eq("is_archived", false),
	})
	if err != nil {
		d.logger.Error("Failed to load tasks for reminder sweep", zap.Error(err))
		return
	}

	dispatched := 0
	for _, task := range tasks {
		if !IsReminderDueNow(task, now) {
			continue
		}

		if d.fired != nil && task.DueDate != nil {
			if !d.fired.AcquireOnce(ctx, task.ID, *task.DueDate) {
				metrics.IncrementRemindersDispatched("duplicate")
				continue
			}
		}

		notifyAt, _ := NotificationTime(task)
		payload := map[string]interface{}{
			"task_id":      task.ID,
			"household_id": task.HouseholdID,
			"title":        task.Title,
			"due_date":     task.DueDate.Format("2006-01-02"),
			"due_time":     *task.DueTime,
			"notify_at":    notifyAt.Format(time.RFC3339),
		}
		if task.AssignedTo != nil {
			payload["assigned_to"] = *task.AssignedTo
		}

		if err := d.publisher.Publish(mq.RoutingKeyReminderDue, payload); err != nil {
			metrics.IncrementRemindersDispatched("failed")
			d.logger.Error("Failed to publish reminder.due event",
				zap.Int("task_id", task.ID),
				zap.Error(err),
			)
			continue
		}

		metrics.IncrementRemindersDispatched("dispatched")
		dispatched++
		d.logger.Info("Published reminder.due event",
			zap.Int("task_id", task.ID),
			zap.Time("notify_at", notifyAt),
		)
	}

	if dispatched > 0 {
		d.logger.Info("Reminder sweep completed",
			zap.Int("dispatched", dispatched),
			zap.Int("total_checked", len(tasks)),
		)
	}
}

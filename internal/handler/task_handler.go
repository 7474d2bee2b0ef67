package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"choreplan/internal/model"
	"choreplan/internal/store"
	"choreplan/internal/urgency"
	"choreplan/pkg/mq"
)

type eventPublisher interface {
	Publish(routingKey string, payload any) error
}

type deferrer interface {
	Defer(ctx context.Context, taskID int, until time.Time) error
}

type TaskHandler struct {
	tasks     store.TaskStore
	deferrals deferrer
	publisher eventPublisher
	logger    *zap.Logger
}

func NewTaskHandler(
	tasks store.TaskStore,
	deferrals deferrer,
	publisher eventPublisher,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		deferrals: deferrals,
		publisher: publisher,
		logger:    logger,
	}
}

// UrgencyView returns the household's open tasks partitioned into the five
// urgency buckets.
func (h *TaskHandler) UrgencyView(c *gin.Context) {
	householdRaw := c.Query("household_id")
	if householdRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "household_id required"})
		return
	}
	householdID, err := strconv.Atoi(householdRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid household_id"})
		return
	}

	tasks, err := h.tasks.Filter(c.Request.Context(), store.Filter{
		store.Eq("household_id", householdID),
		store.Eq("is_archived", false),
		store.NotEq("status", model.TaskStatusCompleted),
	})
	if err != nil {
		h.logger.Error("UrgencyView: failed to fetch tasks",
			zap.Int("household_id", householdID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	buckets := urgency.Classify(tasks, time.Now())

	h.logger.Info("UrgencyView: success",
		zap.Int("household_id", householdID),
		zap.Int("task_count", buckets.Size()),
	)
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

// DeferTask hides a task from urgent view until the given date.
func (h *TaskHandler) DeferTask(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var body struct {
		Until string `json:"until"` // YYYY-MM-DD
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	until, err := time.Parse("2006-01-02", body.Until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until date"})
		return
	}

	if err := h.deferrals.Defer(c.Request.Context(), taskID, until); err != nil {
		h.logger.Error("DeferTask: failed",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to defer task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deferred"})
}

// CompleteTask marks a task completed and announces it, which schedules the
// next occurrence for recurring tasks.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	h.logger.Info("CompleteTask request received",
		zap.Int("task_id", taskID),
		zap.String("client_ip", c.ClientIP()),
	)

	now := time.Now()
	err = h.tasks.Update(c.Request.Context(), taskID, store.Partial{
		"status":          model.TaskStatusCompleted,
		"completion_date": now,
	})
	if err != nil {
		h.logger.Error("CompleteTask: failed to update task",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete task"})
		return
	}

	payload := map[string]interface{}{
		"task_id":      taskID,
		"completed_at": now.Format(time.RFC3339),
	}
	if err := h.publisher.Publish(mq.RoutingKeyTaskCompleted, payload); err != nil {
		// The completion is persisted; the next occurrence will be picked
		// up by the horizon pass even if this event is lost.
		h.logger.Error("CompleteTask: failed to publish task.completed event",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

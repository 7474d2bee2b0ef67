package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"choreplan/internal/engine"
	"choreplan/internal/store"
	"choreplan/pkg/mq"
)

// TaskCompletedHandler reacts to task.completed events: completing a
// recurring task schedules generation of its next occurrence.
type TaskCompletedHandler struct {
	eng       *engine.Engine
	templates store.TemplateStore
	tasks     store.TaskStore
	logger    *zap.Logger
}

func NewTaskCompletedHandler(
	eng *engine.Engine,
	templates store.TemplateStore,
	tasks store.TaskStore,
	logger *zap.Logger,
) *TaskCompletedHandler {
	return &TaskCompletedHandler{
		eng:       eng,
		templates: templates,
		tasks:     tasks,
		logger:    logger,
	}
}

func (h *TaskCompletedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p struct {
		TaskID int `json:"task_id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal task.completed payload", zap.Error(err))
		// Redelivery cannot fix a malformed payload; let the consumer
		// dead-letter it.
		return mq.Permanent(err)
	}

	h.logger.Info("Handling task.completed event", zap.Int("task_id", p.TaskID))

	task, err := h.tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		h.logger.Error("Failed to load completed task", zap.Error(err))
		return err
	}
	if task == nil || task.TemplateID == nil {
		// Manual one-off task; nothing recurs.
		return nil
	}

	tpl, err := h.templates.GetByID(ctx, *task.TemplateID)
	if err != nil {
		h.logger.Error("Failed to load template",
			zap.Int("template_id", *task.TemplateID),
			zap.Error(err),
		)
		return err
	}
	if tpl == nil || !tpl.IsActive {
		return nil
	}

	instance, err := h.eng.GenerateFromTemplate(ctx, tpl, nil, engine.SourceCompletion)
	if err != nil {
		h.logger.Error("Failed to generate next occurrence",
			zap.Int("template_id", tpl.ID),
			zap.Error(err),
		)
		return err
	}

	if instance != nil {
		h.logger.Info("Next occurrence generated after completion",
			zap.Int("template_id", tpl.ID),
			zap.Int("task_id", instance.ID),
		)
	}
	return nil
}

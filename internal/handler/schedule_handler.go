package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"choreplan/internal/engine"
	"choreplan/internal/store"
)

type ScheduleHandler struct {
	eng       *engine.Engine
	guard     *engine.Guard
	templates store.TemplateStore
	logger    *zap.Logger
}

func NewScheduleHandler(
	eng *engine.Engine,
	guard *engine.Guard,
	templates store.TemplateStore,
	logger *zap.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		eng:       eng,
		guard:     guard,
		templates: templates,
		logger:    logger,
	}
}

// TriggerGeneration requests a horizon generation pass. Fire-and-forget:
// the guard decides whether a pass actually starts.
func (h *ScheduleHandler) TriggerGeneration(c *gin.Context) {
	started := h.guard.RequestHorizonGeneration()

	status := "skipped"
	if started {
		status = "started"
	}
	c.JSON(http.StatusAccepted, gin.H{"generation": status})
}

// GenerateFromTemplate materializes one instance for a template, optionally
// for an explicit date (calendar planning).
func (h *ScheduleHandler) GenerateFromTemplate(c *gin.Context) {
	idStr := c.Param("id")
	templateID, err := strconv.Atoi(idStr)
	if err != nil {
		h.logger.Warn("GenerateFromTemplate: invalid template id",
			zap.String("id", idStr),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template id"})
		return
	}

	var body struct {
		DueDate string `json:"due_date"` // YYYY-MM-DD, optional
	}
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var explicitDue *time.Time
	if body.DueDate != "" {
		d, err := time.Parse("2006-01-02", body.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
			return
		}
		explicitDue = &d
	}

	tpl, err := h.templates.GetByID(c.Request.Context(), templateID)
	if err != nil {
		h.logger.Error("GenerateFromTemplate: failed to load template",
			zap.Int("template_id", templateID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load template"})
		return
	}
	if tpl == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}

	instance, err := h.eng.GenerateFromTemplate(c.Request.Context(), tpl, explicitDue, engine.SourceManual)
	if err != nil {
		h.logger.Error("GenerateFromTemplate: generation failed",
			zap.Int("template_id", templateID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
		return
	}

	if instance == nil {
		// Too early, or the slot is already occupied. Normal outcome.
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task": instance})
}

// Package engine materializes concrete task instances from recurring chore
// templates across a rolling planning horizon.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"choreplan/internal/model"
	"choreplan/internal/recurrence"
	"choreplan/internal/store"
	"choreplan/pkg/metrics"
)

const (
	// HorizonDays is the forward-looking window within which instances are
	// proactively materialized.
	HorizonDays = 30

	// Generation source tags for metrics.
	SourceHorizon    = "horizon"
	SourceManual     = "manual"
	SourceCompletion = "completion"
)

type Engine struct {
	templates store.TemplateStore
	tasks     store.TaskStore
	logger    *zap.Logger
	clock     func() time.Time

	horizonDays int
	// Pause inserted between templates during a horizon pass. Keeps a
	// co-resident UI responsive; zero is fine for a headless service.
	pause time.Duration
}

func New(templates store.TemplateStore, tasks store.TaskStore, logger *zap.Logger) *Engine {
	return &Engine{
		templates:   templates,
		tasks:       tasks,
		logger:      logger,
		clock:       time.Now,
		horizonDays: HorizonDays,
	}
}

func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

func (e *Engine) WithHorizonDays(days int) *Engine {
	e.horizonDays = days
	return e
}

func (e *Engine) WithPause(pause time.Duration) *Engine {
	e.pause = pause
	return e
}

// GenerateFromTemplate materializes a single instance. With an explicit due
// date (manual calendar placement) it always generates for that date. Without
// one it anchors on the template's most recent completion, computes the next
// occurrence, and applies the creation-offset gate: when the scheduling date
// (due date minus offset) is still in the future it returns (nil, nil), since
// too early is a normal outcome rather than an error. A nil result with nil
// error also means the slot was already occupied.
func (e *Engine) GenerateFromTemplate(ctx context.Context, tpl *model.Template, explicitDue *time.Time, source string) (*model.TaskInstance, error) {
	today := recurrence.StartOfDay(e.clock())

	var dueDate time.Time
	if explicitDue != nil {
		dueDate = recurrence.StartOfDay(*explicitDue)
	} else {
		anchor := today
		if last := e.latestCompletion(ctx, tpl.ID); last != nil {
			anchor = recurrence.StartOfDay(*last)
		}
		dueDate = recurrence.NextOccurrence(tpl.Recurrence, anchor)

		schedulingDate := dueDate.AddDate(0, 0, -tpl.GenerationOffsetDays)
		if schedulingDate.After(today) {
			e.logger.Debug("Too early to generate",
				zap.Int("template_id", tpl.ID),
				zap.Time("due_date", dueDate),
				zap.Time("scheduling_date", schedulingDate),
			)
			return nil, nil
		}
	}

	instance := e.instanceFromTemplate(tpl, dueDate)
	created, err := e.tasks.Create(ctx, instance)
	if err != nil {
		return nil, err
	}
	if !created {
		metrics.IncrementDedupSkips()
		return nil, nil
	}

	metrics.IncrementInstancesGenerated(source)
	e.logger.Info("Task instance generated",
		zap.Int("task_id", instance.ID),
		zap.Int("template_id", tpl.ID),
		zap.Time("due_date", dueDate),
		zap.String("source", source),
	)
	return instance, nil
}

// GenerateForWindow materializes every missing occurrence of tpl inside
// [start, end], skipping dates already present in idx and adding each
// created key to idx, so a single pass never double-creates for the same
// template. A failed create is logged and skipped; the rest of the window
// still generates.
func (e *Engine) GenerateForWindow(ctx context.Context, tpl *model.Template, start, end time.Time, idx *DedupIndex) []model.TaskInstance {
	// The calculator's range is half-open; extend by a day to keep end
	// itself inside the window.
	dates := recurrence.OccurrencesInRange(tpl.Recurrence, start, end.AddDate(0, 0, 1))

	var created []model.TaskInstance
	for _, date := range dates {
		if idx.Has(tpl.ID, date) {
			metrics.IncrementDedupSkips()
			continue
		}

		instance := e.instanceFromTemplate(tpl, date)
		ok, err := e.tasks.Create(ctx, instance)
		if err != nil {
			e.logger.Error("Failed to create task instance",
				zap.Int("template_id", tpl.ID),
				zap.Time("due_date", date),
				zap.Error(err),
			)
			continue
		}

		// Occupied or created, the slot is now taken either way.
		idx.Add(tpl.ID, date)
		if !ok {
			metrics.IncrementDedupSkips()
			continue
		}

		metrics.IncrementInstancesGenerated(SourceHorizon)
		created = append(created, *instance)
	}
	return created
}

// GenerateForHorizon is the background entry point: for every active,
// auto-generating template it fills the gap between the farthest already
// materialized due date and today+horizon. A failure on one template is
// logged and must not abort the others.
func (e *Engine) GenerateForHorizon(ctx context.Context) error {
	passStart := e.clock()
	defer func() { metrics.RecordGenerationPass(time.Since(passStart)) }()

	today := recurrence.StartOfDay(e.clock())
	horizonEnd := today.AddDate(0, 0, e.horizonDays)

	templates, err := e.templates.Filter(ctx, store.Filter{
		store.Eq("is_active", true),
		store.Eq("auto_generate", true),
	})
	if err != nil {
		return err
	}

	e.logger.Info("Starting horizon generation pass",
		zap.Int("template_count", len(templates)),
		zap.Time("horizon_end", horizonEnd),
	)

	totalCreated := 0
	for i := range templates {
		tpl := &templates[i]

		n, err := e.fillTemplateGap(ctx, tpl, today, horizonEnd)
		if err != nil {
			e.logger.Error("Horizon generation failed for template",
				zap.Int("template_id", tpl.ID),
				zap.Error(err),
			)
			continue
		}
		totalCreated += n

		if e.pause > 0 && i < len(templates)-1 {
			time.Sleep(e.pause)
		}
	}

	e.logger.Info("Horizon generation pass completed",
		zap.Int("template_count", len(templates)),
		zap.Int("created", totalCreated),
		zap.Duration("duration", time.Since(passStart)),
	)
	return nil
}

func (e *Engine) fillTemplateGap(ctx context.Context, tpl *model.Template, today, horizonEnd time.Time) (int, error) {
	existing, err := e.tasks.Filter(ctx, store.Filter{
		store.Eq("template_id", tpl.ID),
	})
	if err != nil {
		return 0, err
	}

	idx := NewDedupIndexFromTasks(existing)

	// Fill start: the day after the farthest materialized due date, or
	// today when nothing exists yet. The pass only ever extends the horizon
	// forward; it never re-walks covered days.
	fillStart := today
	if farthest := farthestDueDate(existing); farthest != nil && !farthest.Before(today) {
		fillStart = recurrence.StartOfDay(*farthest).AddDate(0, 0, 1)
	}
	if fillStart.After(horizonEnd) {
		return 0, nil
	}

	created := e.GenerateForWindow(ctx, tpl, fillStart, horizonEnd, idx)
	return len(created), nil
}

func (e *Engine) latestCompletion(ctx context.Context, templateID int) *time.Time {
	completed, err := e.tasks.Filter(ctx, store.Filter{
		store.Eq("template_id", templateID),
		store.Eq("status", model.TaskStatusCompleted),
	})
	if err != nil {
		e.logger.Warn("Failed to load completed instances, anchoring on now",
			zap.Int("template_id", templateID),
			zap.Error(err),
		)
		return nil
	}

	var latest *time.Time
	for i := range completed {
		cd := completed[i].CompletionDate
		if cd == nil {
			continue
		}
		if latest == nil || cd.After(*latest) {
			latest = cd
		}
	}
	return latest
}

func (e *Engine) instanceFromTemplate(tpl *model.Template, dueDate time.Time) *model.TaskInstance {
	templateID := tpl.ID
	due := recurrence.StartOfDay(dueDate)
	return &model.TaskInstance{
		TemplateID:            &templateID,
		HouseholdID:           tpl.HouseholdID,
		Title:                 tpl.Title,
		Category:              tpl.Category,
		Priority:              tpl.Priority,
		AssignedTo:            tpl.AssignedTo,
		DurationMinutes:       tpl.DurationMinutes,
		Location:              tpl.Location,
		DueDate:               &due,
		DueTime:               tpl.DueTime,
		NotificationLeadHours: tpl.NotificationLeadHours,
		Status:                model.TaskStatusPending,
	}
}

func farthestDueDate(tasks []model.TaskInstance) *time.Time {
	var farthest *time.Time
	for i := range tasks {
		d := tasks[i].DueDate
		if d == nil {
			continue
		}
		if farthest == nil || d.After(*farthest) {
			farthest = d
		}
	}
	return farthest
}

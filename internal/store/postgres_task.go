package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"choreplan/internal/model"
	"choreplan/pkg/metrics"
	"choreplan/pkg/mq"
	"choreplan/pkg/outbox"
)

var taskColumns = map[string]bool{
	"id":                      true,
	"template_id":             true,
	"household_id":            true,
	"title":                   true,
	"category":                true,
	"priority":                true,
	"assigned_to":             true,
	"duration_minutes":        true,
	"location":                true,
	"due_date":                true,
	"due_time":                true,
	"notification_lead_hours": true,
	"status":                  true,
	"is_archived":             true,
	"completion_date":         true,
	"defer_until":             true,
	"defer_count":             true,
}

const taskSelect = `
        SELECT id, template_id, household_id, title, category, priority,
               assigned_to, duration_minutes, location, due_date, due_time,
               notification_lead_hours, status, is_archived, completion_date,
               defer_until, defer_count, created_at
        FROM tasks
`

// PostgresTaskStore persists task instances. The dedup invariant is a hard
// guarantee here: a partial unique index on (template_id, due_date) over
// open instances plus ON CONFLICT DO NOTHING makes racing creates collapse
// into one row. Inserts also record a task.created outbox event in the same
// transaction.
type PostgresTaskStore struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
	hub        *hub[model.TaskInstance]
}

func NewPostgresTaskStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
		hub:        newHub(matchTask),
	}
}

func (s *PostgresTaskStore) Filter(ctx context.Context, f Filter) ([]model.TaskInstance, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("filter", "tasks", time.Since(start)) }()

	where, args, err := buildWhere(f, taskColumns, 1)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, taskSelect+where+" ORDER BY due_date ASC NULLS LAST", args...)
	if err != nil {
		s.logger.Error("Failed to filter tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var tasks []model.TaskInstance
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			s.logger.Error("Failed to scan task", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, t)
	}

	s.logger.Debug("Filtered tasks", zap.Int("count", len(tasks)))
	return tasks, rows.Err()
}

func (s *PostgresTaskStore) Create(ctx context.Context, t *model.TaskInstance) (bool, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "tasks", time.Since(start)) }()

	s.logger.Debug("Inserting task instance",
		zap.Any("template_id", t.TemplateID),
		zap.String("title", t.Title),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO tasks (template_id, household_id, title, category, priority,
                           assigned_to, duration_minutes, location, due_date, due_time,
                           notification_lead_hours, status, is_archived, defer_count)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (template_id, due_date) WHERE status <> 'completed' AND NOT is_archived
        DO NOTHING
        RETURNING id, created_at
    `
	var dueDate *time.Time
	if t.DueDate != nil {
		d := DateOnly(*t.DueDate)
		dueDate = &d
	}

	err = tx.QueryRow(ctx, query,
		t.TemplateID,
		t.HouseholdID,
		t.Title,
		t.Category,
		string(t.Priority),
		t.AssignedTo,
		t.DurationMinutes,
		t.Location,
		dueDate,
		t.DueTime,
		t.NotificationLeadHours,
		string(t.Status),
		t.IsArchived,
		t.DeferCount,
	).Scan(&t.ID, &t.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Another writer holds the (template_id, due_date) slot.
		s.logger.Debug("Task slot already occupied",
			zap.Any("template_id", t.TemplateID),
			zap.Any("due_date", t.DueDate),
		)
		return false, nil
	}
	if err != nil {
		s.logger.Error("Failed to insert task", zap.Error(err))
		return false, err
	}

	aggregateID := int64(t.ID)
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "task", &aggregateID,
		mq.RoutingKeyTaskCreated, taskCreatedPayload(t)); err != nil {
		s.logger.Error("Failed to insert task.created outbox event", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit task insert: %w", err)
	}

	s.logger.Info("Task instance inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Any("template_id", t.TemplateID),
	)

	s.hub.notify(*t)
	return true, nil
}

func (s *PostgresTaskStore) Update(ctx context.Context, id int, p Partial) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "tasks", time.Since(start)) }()

	set, args, err := buildSet(p, taskColumns, 1)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", set, len(args)+1)
	args = append(args, id)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to update task",
			zap.Int("task_id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %d not found", id)
	}

	if updated, err := s.GetByID(ctx, id); err == nil && updated != nil {
		s.hub.notify(*updated)
	}
	return nil
}

func (s *PostgresTaskStore) GetByID(ctx context.Context, id int) (*model.TaskInstance, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("get", "tasks", time.Since(start)) }()

	rows, err := s.db.Query(ctx, taskSelect+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	t, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresTaskStore) Subscribe(f Filter, fn func(model.TaskInstance)) func() {
	return s.hub.subscribe(f, fn)
}

func scanTask(row rowScanner) (model.TaskInstance, error) {
	var (
		t        model.TaskInstance
		priority string
		status   string
	)

	err := row.Scan(
		&t.ID,
		&t.TemplateID,
		&t.HouseholdID,
		&t.Title,
		&t.Category,
		&priority,
		&t.AssignedTo,
		&t.DurationMinutes,
		&t.Location,
		&t.DueDate,
		&t.DueTime,
		&t.NotificationLeadHours,
		&status,
		&t.IsArchived,
		&t.CompletionDate,
		&t.DeferUntil,
		&t.DeferCount,
		&t.CreatedAt,
	)
	if err != nil {
		return model.TaskInstance{}, err
	}

	t.Priority = model.Priority(priority)
	t.Status = model.TaskStatus(status)
	return t, nil
}

func taskCreatedPayload(t *model.TaskInstance) map[string]interface{} {
	payload := map[string]interface{}{
		"task_id":      t.ID,
		"household_id": t.HouseholdID,
		"title":        t.Title,
		"status":       string(t.Status),
	}
	if t.TemplateID != nil {
		payload["template_id"] = *t.TemplateID
	}
	if t.DueDate != nil {
		payload["due_date"] = t.DueDate.Format("2006-01-02")
	}
	return payload
}

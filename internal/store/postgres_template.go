package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"choreplan/internal/model"
	"choreplan/internal/recurrence"
	"choreplan/pkg/metrics"
)

var templateColumns = map[string]bool{
	"id":                      true,
	"household_id":            true,
	"title":                   true,
	"category":                true,
	"priority":                true,
	"assigned_to":             true,
	"duration_minutes":        true,
	"location":                true,
	"due_time":                true,
	"is_active":               true,
	"auto_generate":           true,
	"generation_offset_days":  true,
	"notification_lead_hours": true,
}

const templateSelect = `
        SELECT id, household_id, title, category, priority, assigned_to,
               duration_minutes, location, frequency_type, recur_interval,
               selected_days, custom_expression, due_time, is_active,
               auto_generate, generation_offset_days, notification_lead_hours,
               created_at, updated_at
        FROM templates
`

type PostgresTemplateStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
	hub    *hub[model.Template]
}

func NewPostgresTemplateStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresTemplateStore {
	return &PostgresTemplateStore{
		db:     db,
		logger: logger,
		hub:    newHub(matchTemplate),
	}
}

func (s *PostgresTemplateStore) Filter(ctx context.Context, f Filter) ([]model.Template, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("filter", "templates", time.Since(start)) }()

	where, args, err := buildWhere(f, templateColumns, 1)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, templateSelect+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		s.logger.Error("Failed to filter templates", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var templates []model.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			s.logger.Error("Failed to scan template", zap.Error(err))
			return nil, err
		}
		templates = append(templates, t)
	}

	s.logger.Debug("Filtered templates", zap.Int("count", len(templates)))
	return templates, rows.Err()
}

func (s *PostgresTemplateStore) Create(ctx context.Context, t *model.Template) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("insert", "templates", time.Since(start)) }()

	s.logger.Debug("Inserting template",
		zap.Int("household_id", t.HouseholdID),
		zap.String("title", t.Title),
		zap.String("frequency", string(t.Recurrence.Frequency())),
	)

	query := `
        INSERT INTO templates (household_id, title, category, priority, assigned_to,
                               duration_minutes, location, frequency_type, recur_interval,
                               selected_days, custom_expression, due_time, is_active,
                               auto_generate, generation_offset_days, notification_lead_hours)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id, created_at, updated_at
    `
	err := s.db.QueryRow(ctx, query,
		t.HouseholdID,
		t.Title,
		t.Category,
		string(t.Priority),
		t.AssignedTo,
		t.DurationMinutes,
		t.Location,
		string(t.Recurrence.Frequency()),
		t.Recurrence.Interval(),
		t.Recurrence.DayNumbers(),
		t.Recurrence.Expression(),
		t.DueTime,
		t.IsActive,
		t.AutoGenerate,
		t.GenerationOffsetDays,
		t.NotificationLeadHours,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		s.logger.Error("Failed to insert template", zap.Error(err))
		return err
	}

	s.logger.Info("Template inserted successfully",
		zap.Int("id", t.ID),
		zap.Int("household_id", t.HouseholdID),
	)

	s.hub.notify(*t)
	return nil
}

func (s *PostgresTemplateStore) Update(ctx context.Context, id int, p Partial) error {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("update", "templates", time.Since(start)) }()

	set, args, err := buildSet(p, templateColumns, 1)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"UPDATE templates SET %s, updated_at = NOW() WHERE id = $%d",
		set, len(args)+1,
	)
	args = append(args, id)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error("Failed to update template",
			zap.Int("template_id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %d not found", id)
	}

	if updated, err := s.GetByID(ctx, id); err == nil && updated != nil {
		s.hub.notify(*updated)
	}
	return nil
}

func (s *PostgresTemplateStore) GetByID(ctx context.Context, id int) (*model.Template, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQueryDuration("get", "templates", time.Since(start)) }()

	rows, err := s.db.Query(ctx, templateSelect+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	t, err := scanTemplate(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresTemplateStore) Subscribe(f Filter, fn func(model.Template)) func() {
	return s.hub.subscribe(f, fn)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (model.Template, error) {
	var (
		t            model.Template
		priority     string
		freq         string
		interval     int
		selectedDays []int
		customExpr   string
	)

	err := row.Scan(
		&t.ID,
		&t.HouseholdID,
		&t.Title,
		&t.Category,
		&priority,
		&t.AssignedTo,
		&t.DurationMinutes,
		&t.Location,
		&freq,
		&interval,
		&selectedDays,
		&customExpr,
		&t.DueTime,
		&t.IsActive,
		&t.AutoGenerate,
		&t.GenerationOffsetDays,
		&t.NotificationLeadHours,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return model.Template{}, err
	}

	t.Priority = model.Priority(priority)
	t.Recurrence = recurrence.FromParts(freq, interval, selectedDays, customExpr)
	return t, nil
}

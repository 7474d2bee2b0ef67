// Package store defines the storage contract the scheduling engine consumes:
// equality/not-equal filtering, create, partial update, lookup by id and
// push-based subscriptions. Postgres implementations back the service;
// in-memory implementations back the tests.
package store

import (
	"context"
	"time"

	"choreplan/internal/model"
)

type Op int

const (
	OpEq Op = iota
	OpNotEq
)

type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of predicates. Only equality and not-equal are
// supported.
type Filter []Predicate

func Eq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

func NotEq(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpNotEq, Value: value}
}

// Partial is a field-name to new-value map for partial updates.
type Partial map[string]any

type TemplateStore interface {
	Filter(ctx context.Context, f Filter) ([]model.Template, error)
	Create(ctx context.Context, t *model.Template) error
	Update(ctx context.Context, id int, p Partial) error
	GetByID(ctx context.Context, id int) (*model.Template, error)
	// Subscribe registers fn for templates matching f after every write.
	// The returned func cancels the subscription.
	Subscribe(f Filter, fn func(model.Template)) (cancel func())
}

type TaskStore interface {
	Filter(ctx context.Context, f Filter) ([]model.TaskInstance, error)
	// Create inserts the instance. It reports false without error when the
	// (template_id, due_date) slot is already occupied by an open instance.
	Create(ctx context.Context, t *model.TaskInstance) (bool, error)
	Update(ctx context.Context, id int, p Partial) error
	GetByID(ctx context.Context, id int) (*model.TaskInstance, error)
	Subscribe(f Filter, fn func(model.TaskInstance)) (cancel func())
}

// DateOnly normalizes a due date for storage and dedup comparison.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"choreplan/internal/model"
)

// MemoryTemplateStore implements TemplateStore in memory. It backs the
// engine tests and small single-process deployments.
type MemoryTemplateStore struct {
	mu     sync.Mutex
	nextID int
	items  map[int]model.Template
	hub    *hub[model.Template]
}

func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{
		nextID: 1,
		items:  make(map[int]model.Template),
		hub:    newHub(matchTemplate),
	}
}

func (s *MemoryTemplateStore) Filter(_ context.Context, f Filter) ([]model.Template, error) {
	if err := validateTemplateFilter(f); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Template
	for _, t := range s.items {
		if matchTemplate(t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryTemplateStore) Create(_ context.Context, t *model.Template) error {
	s.mu.Lock()
	t.ID = s.nextID
	s.nextID++
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.items[t.ID] = *t
	s.mu.Unlock()

	s.hub.notify(*t)
	return nil
}

func (s *MemoryTemplateStore) Update(_ context.Context, id int, p Partial) error {
	s.mu.Lock()
	t, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("template %d not found", id)
	}
	applyTemplatePartial(&t, p)
	t.UpdatedAt = time.Now()
	s.items[id] = t
	s.mu.Unlock()

	s.hub.notify(t)
	return nil
}

func (s *MemoryTemplateStore) GetByID(_ context.Context, id int) (*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryTemplateStore) Subscribe(f Filter, fn func(model.Template)) func() {
	return s.hub.subscribe(f, fn)
}

// MemoryTaskStore implements TaskStore in memory, including the dedup
// invariant: creating over an occupied open (template_id, due_date) slot
// reports false.
type MemoryTaskStore struct {
	mu     sync.Mutex
	nextID int
	items  map[int]model.TaskInstance
	hub    *hub[model.TaskInstance]

	// CreateErr, when set, fails every Create. Used by tests to exercise
	// per-item failure isolation.
	CreateErr error
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		nextID: 1,
		items:  make(map[int]model.TaskInstance),
		hub:    newHub(matchTask),
	}
}

func (s *MemoryTaskStore) Filter(_ context.Context, f Filter) ([]model.TaskInstance, error) {
	if err := validateTaskFilter(f); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.TaskInstance
	for _, t := range s.items {
		if matchTask(t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryTaskStore) Create(_ context.Context, t *model.TaskInstance) (bool, error) {
	s.mu.Lock()
	if s.CreateErr != nil {
		s.mu.Unlock()
		return false, s.CreateErr
	}

	if t.TemplateID != nil && t.DueDate != nil {
		for _, existing := range s.items {
			if existing.Open() &&
				existing.TemplateID != nil && *existing.TemplateID == *t.TemplateID &&
				existing.DueDate != nil && DateOnly(*existing.DueDate).Equal(DateOnly(*t.DueDate)) {
				s.mu.Unlock()
				return false, nil
			}
		}
	}

	t.ID = s.nextID
	s.nextID++
	t.CreatedAt = time.Now()
	s.items[t.ID] = *t
	s.mu.Unlock()

	s.hub.notify(*t)
	return true, nil
}

func (s *MemoryTaskStore) Update(_ context.Context, id int, p Partial) error {
	s.mu.Lock()
	t, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %d not found", id)
	}
	applyTaskPartial(&t, p)
	s.items[id] = t
	s.mu.Unlock()

	s.hub.notify(t)
	return nil
}

func (s *MemoryTaskStore) GetByID(_ context.Context, id int) (*model.TaskInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryTaskStore) Subscribe(f Filter, fn func(model.TaskInstance)) func() {
	return s.hub.subscribe(f, fn)
}

func applyTemplatePartial(t *model.Template, p Partial) {
	for field, value := range p {
		switch field {
		case "title":
			if v, ok := value.(string); ok {
				t.Title = v
			}
		case "is_active":
			if v, ok := value.(bool); ok {
				t.IsActive = v
			}
		case "auto_generate":
			if v, ok := value.(bool); ok {
				t.AutoGenerate = v
			}
		case "generation_offset_days":
			if v, ok := value.(int); ok {
				t.GenerationOffsetDays = v
			}
		case "notification_lead_hours":
			if v, ok := value.(int); ok {
				t.NotificationLeadHours = v
			}
		}
	}
}

func applyTaskPartial(t *model.TaskInstance, p Partial) {
	for field, value := range p {
		switch field {
		case "status":
			switch v := value.(type) {
			case model.TaskStatus:
				t.Status = v
			case string:
				t.Status = model.TaskStatus(v)
			}
		case "is_archived":
			if v, ok := value.(bool); ok {
				t.IsArchived = v
			}
		case "completion_date":
			switch v := value.(type) {
			case time.Time:
				t.CompletionDate = &v
			case *time.Time:
				t.CompletionDate = v
			}
		case "defer_until":
			switch v := value.(type) {
			case time.Time:
				t.DeferUntil = &v
			case *time.Time:
				t.DeferUntil = v
			}
		case "defer_count":
			if v, ok := value.(int); ok {
				t.DeferCount = v
			}
		}
	}
}

package engine

import (
	"fmt"
	"time"

	"choreplan/internal/model"
)

// DedupIndex is an in-memory set of (template_id, due_date) keys built from
// already-persisted instances. The generation pass consults it before every
// create so one pass never double-creates and repeated passes are
// idempotent. The database's unique index backstops it against races.
type DedupIndex struct {
	keys map[string]struct{}
}

func NewDedupIndex() *DedupIndex {
	return &DedupIndex{keys: make(map[string]struct{})}
}

// NewDedupIndexFromTasks seeds the index from existing instances. Archived
// and completed instances are included: a chore completed this morning must
// not be regenerated for the same date by the afternoon pass.
func NewDedupIndexFromTasks(tasks []model.TaskInstance) *DedupIndex {
	idx := NewDedupIndex()
	for _, t := range tasks {
		if t.TemplateID == nil || t.DueDate == nil {
			continue
		}
		idx.Add(*t.TemplateID, *t.DueDate)
	}
	return idx
}

func dedupKey(templateID int, dueDate time.Time) string {
	return fmt.Sprintf("%d:%s", templateID, dueDate.Format("2006-01-02"))
}

func (i *DedupIndex) Has(templateID int, dueDate time.Time) bool {
	_, ok := i.keys[dedupKey(templateID, dueDate)]
	return ok
}

func (i *DedupIndex) Add(templateID int, dueDate time.Time) {
	i.keys[dedupKey(templateID, dueDate)] = struct{}{}
}

func (i *DedupIndex) Len() int {
	return len(i.keys)
}

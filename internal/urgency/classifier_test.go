package urgency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choreplan/internal/model"
)

// 2024-03-04 is a Monday.
var now = time.Date(2024, time.March, 4, 9, 15, 0, 0, time.UTC)

func task(id int, due *time.Time) model.TaskInstance {
	return model.TaskInstance{ID: id, Status: model.TaskStatusPending, DueDate: due}
}

func day(offset int) *time.Time {
	d := time.Date(2024, time.March, 4+offset, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestClassifyByDueDate(t *testing.T) {
	b := Classify([]model.TaskInstance{
		task(1, day(-3)), // overdue
		task(2, day(0)),  // today
		task(3, day(1)),  // this week
		task(4, day(6)),  // this week, last day
		task(5, day(7)),  // coming soon, first day
		task(6, day(13)), // coming soon, last day
		task(7, day(14)), // later
		task(8, nil),     // undated, later
	}, now)

	assert.Equal(t, []int{1}, ids(b.Overdue))
	assert.Equal(t, []int{2}, ids(b.Today))
	assert.Equal(t, []int{3, 4}, ids(b.ThisWeek))
	assert.Equal(t, []int{5, 6}, ids(b.ComingSoon))
	assert.Equal(t, []int{7, 8}, ids(b.Later))
	assert.Equal(t, 8, b.Size())
}

func TestClassifySkipsClosedTasks(t *testing.T) {
	completed := task(1, day(-1))
	completed.Status = model.TaskStatusCompleted
	archived := task(2, day(0))
	archived.IsArchived = true

	b := Classify([]model.TaskInstance{completed, archived}, now)
	assert.Equal(t, 0, b.Size())
}

func TestClassifyDeferredTaskRoutedByDeferDate(t *testing.T) {
	// Overdue by a week, but deferred ten days out: it must leave the
	// urgent buckets entirely.
	deferred := task(1, day(-7))
	deferred.DeferUntil = day(10)

	b := Classify([]model.TaskInstance{deferred}, now)
	assert.Empty(t, b.Overdue)
	assert.Equal(t, []int{1}, ids(b.ComingSoon))
}

func TestClassifyDeferDateBuckets(t *testing.T) {
	short := task(1, day(-1))
	short.DeferUntil = day(2) // inside the week
	long := task(2, day(-1))
	long.DeferUntil = day(20) // past the fortnight

	b := Classify([]model.TaskInstance{short, long}, now)
	assert.Equal(t, []int{1}, ids(b.ThisWeek))
	assert.Equal(t, []int{2}, ids(b.Later))
}

func TestClassifyElapsedDeferralIsIgnored(t *testing.T) {
	// Defer date has arrived: the task snaps back to its real urgency.
	back := task(1, day(-2))
	back.DeferUntil = day(0)

	b := Classify([]model.TaskInstance{back}, now)
	assert.Equal(t, []int{1}, ids(b.Overdue))
}

func TestClassifyPartitionIsDisjoint(t *testing.T) {
	var tasks []model.TaskInstance
	for i := -5; i <= 20; i++ {
		tasks = append(tasks, task(i+6, day(i)))
	}

	b := Classify(tasks, now)
	require.Equal(t, len(tasks), b.Size())

	seen := map[int]bool{}
	for _, bucket := range [][]model.TaskInstance{b.Overdue, b.Today, b.ThisWeek, b.ComingSoon, b.Later} {
		for _, task := range bucket {
			require.Falsef(t, seen[task.ID], "task %d appears in two buckets", task.ID)
			seen[task.ID] = true
		}
	}
}

func TestClassifySortsWithinBuckets(t *testing.T) {
	b := Classify([]model.TaskInstance{
		task(1, day(-1)),
		task(2, day(-5)),
		task(3, day(-3)),
	}, now)

	assert.Equal(t, []int{2, 3, 1}, ids(b.Overdue))
}

func TestClassifyUndatedSortLast(t *testing.T) {
	b := Classify([]model.TaskInstance{
		task(1, nil),
		task(2, day(15)),
	}, now)

	assert.Equal(t, []int{2, 1}, ids(b.Later))
}

func ids(tasks []model.TaskInstance) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

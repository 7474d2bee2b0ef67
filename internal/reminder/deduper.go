package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FiredMarker remembers which reminders have already been dispatched so a
// reminder fires once per task per day, including across restarts.
type FiredMarker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewFiredMarker(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *FiredMarker {
	return &FiredMarker{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true the first time it is called for (taskID, day).
// When redis is unavailable it allows the dispatch rather than dropping the
// reminder; a duplicate push beats a silent miss.
func (m *FiredMarker) AcquireOnce(ctx context.Context, taskID int, day time.Time) bool {
	key := fmt.Sprintf("reminder:fired:%d:%s", taskID, day.Format("2006-01-02"))

	ok, err := m.rdb.SetNX(ctx, key, 1, m.ttl).Result()
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("Redis reminder dedup check failed, allowing dispatch",
				zap.Int("task_id", taskID),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && m.logger != nil {
		m.logger.Debug("Reminder already fired",
			zap.Int("task_id", taskID),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

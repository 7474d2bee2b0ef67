package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"choreplan/pkg/metrics"
)

const (
	defaultThrottle   = 60 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

// Guard serializes and throttles horizon generation so it is safe to
// request opportunistically (every screen focus, every pull-to-refresh)
// without redundant store scans. At most one pass runs at a time, and a new
// pass starts no more often than the throttle interval. A fresh process
// starts unlocked and unthrottled; the state is deliberately not persisted.
type Guard struct {
	mu       sync.Mutex
	inFlight bool
	lastRun  time.Time

	run      func(ctx context.Context) error
	clock    func() time.Time
	throttle time.Duration
	// timeout bounds one pass; a hung store read clears the in-flight flag
	// instead of starving every future pass.
	timeout time.Duration
	logger  *zap.Logger
}

func NewGuard(run func(ctx context.Context) error, logger *zap.Logger) *Guard {
	return &Guard{
		run:      run,
		clock:    time.Now,
		throttle: defaultThrottle,
		timeout:  defaultRunTimeout,
		logger:   logger,
	}
}

func (g *Guard) WithClock(clock func() time.Time) *Guard {
	g.clock = clock
	return g
}

func (g *Guard) WithThrottle(throttle time.Duration) *Guard {
	g.throttle = throttle
	return g
}

func (g *Guard) WithTimeout(timeout time.Duration) *Guard {
	g.timeout = timeout
	return g
}

// RequestHorizonGeneration starts a pass in the background unless one is in
// flight or the last pass started within the throttle window. Rejected
// requests are dropped, not queued. Reports whether a pass was started.
func (g *Guard) RequestHorizonGeneration() bool {
	g.mu.Lock()
	now := g.clock()

	if g.inFlight {
		g.mu.Unlock()
		metrics.IncrementGuardRejection("in_flight")
		g.logger.Debug("Generation already in flight, skipping")
		return false
	}
	if !g.lastRun.IsZero() && now.Sub(g.lastRun) < g.throttle {
		g.mu.Unlock()
		metrics.IncrementGuardRejection("throttled")
		g.logger.Debug("Generation throttled",
			zap.Time("last_run", g.lastRun),
			zap.Duration("throttle", g.throttle),
		)
		return false
	}

	g.inFlight = true
	g.lastRun = now
	g.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		defer func() {
			g.mu.Lock()
			g.inFlight = false
			g.mu.Unlock()
		}()

		if err := g.run(ctx); err != nil {
			// Silent to end users; the next trigger retries after the
			// throttle window.
			g.logger.Error("Horizon generation pass failed", zap.Error(err))
		}
	}()
	return true
}

package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGuardRunsImmediatelyWhenFresh(t *testing.T) {
	var runs atomic.Int32
	g := NewGuard(func(context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	require.True(t, g.RequestHorizonGeneration())
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
}

func TestGuardRejectsWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	g := NewGuard(func(context.Context) error {
		close(started)
		<-release
		return nil
	}, zap.NewNop())

	require.True(t, g.RequestHorizonGeneration())
	<-started
	assert.False(t, g.RequestHorizonGeneration())
	close(release)
}

func TestGuardThrottlesUntilWindowElapses(t *testing.T) {
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	var clock atomic.Pointer[time.Time]
	clock.Store(&now)

	var runs atomic.Int32
	g := NewGuard(func(context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop()).
		WithClock(func() time.Time { return *clock.Load() }).
		WithThrottle(60 * time.Second)

	require.True(t, g.RequestHorizonGeneration())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	// Within the window every request is dropped, even though the first
	// pass has already finished.
	assert.False(t, g.RequestHorizonGeneration())

	later := now.Add(61 * time.Second)
	clock.Store(&later)
	assert.Eventually(t, func() bool { return g.RequestHorizonGeneration() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)
}

func TestGuardClearsInFlightAfterFailure(t *testing.T) {
	now := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	var runs atomic.Int32
	g := NewGuard(func(context.Context) error {
		runs.Add(1)
		return assert.AnError
	}, zap.NewNop()).
		WithClock(clock).
		WithThrottle(time.Millisecond)

	require.True(t, g.RequestHorizonGeneration())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	// A failed pass cannot wedge the guard.
	now = now.Add(time.Second)
	assert.Eventually(t, func() bool { return g.RequestHorizonGeneration() }, time.Second, 5*time.Millisecond)
}

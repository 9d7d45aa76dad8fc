package diskmanager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets a test control when the scheduler wakes up.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan waitRequest
}

type waitRequest struct {
	duration time.Duration
	fire     chan time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, waits: make(chan waitRequest, 1)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	fire := make(chan time.Time, 1)
	c.waits <- waitRequest{duration: d, fire: fire}
	return fire
}

// advance waits for the scheduler to block in After, moves the clock past
// the requested duration and fires the timer.
func (c *fakeClock) advance(t *testing.T) time.Duration {
	t.Helper()
	select {
	case req := <-c.waits:
		c.mu.Lock()
		c.now = c.now.Add(req.duration)
		fireAt := c.now
		c.mu.Unlock()
		req.fire <- fireAt
		return req.duration
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not arm a timer")
		return 0
	}
}

func TestNextRunTime(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"before todays run",
			time.Date(2025, 6, 1, 1, 30, 0, 0, time.UTC),
			time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC),
		},
		{
			"exactly at run time rolls to tomorrow",
			time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC),
		},
		{
			"after todays run",
			time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRunTime(tt.now, 2, 0))
		})
	}
}

func TestSchedulerFiresDaily(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)

	runs := make(chan time.Time, 4)
	s := NewScheduler(2, 0, clock, func() {
		runs <- clock.Now()
	})

	var wg sync.WaitGroup
	quit := make(chan struct{})
	s.Run(&wg, quit)

	// First wakeup is tomorrow 02:00, 14 hours from start.
	assert.Equal(t, 14*time.Hour, clock.advance(t))
	select {
	case ranAt := <-runs:
		assert.Equal(t, time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), ranAt)
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run")
	}

	// Subsequent wakeups are a full day apart.
	assert.Equal(t, 24*time.Hour, clock.advance(t))
	select {
	case ranAt := <-runs:
		assert.Equal(t, time.Date(2025, 6, 3, 2, 0, 0, 0, time.UTC), ranAt)
	case <-time.After(5 * time.Second):
		t.Fatal("task did not run a second time")
	}

	close(quit)
	wg.Wait()
}

func TestSchedulerStopsOnQuit(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	ran := false
	s := NewScheduler(2, 0, clock, func() { ran = true })

	var wg sync.WaitGroup
	quit := make(chan struct{})
	s.Run(&wg, quit)

	// Let the scheduler arm its timer, then quit without firing it.
	select {
	case <-clock.waits:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not arm a timer")
	}
	close(quit)
	wg.Wait()

	require.False(t, ran, "task must not run after quit")
}

func TestNewSchedulerDefaultsToSystemClock(t *testing.T) {
	s := NewScheduler(2, 0, nil, func() {})
	assert.NotNil(t, s.clock)
}

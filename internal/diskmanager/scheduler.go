// scheduler.go - daily scheduling for the retention sweep
package diskmanager

import (
	"sync"
	"time"
)

// Clock abstracts time for the scheduler so tests can drive it without
// waiting for wall-clock days to pass.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns a Clock backed by the real time package.
func SystemClock() Clock {
	return systemClock{}
}

// Scheduler fires a task once a day at a fixed local time.
type Scheduler struct {
	hour   int
	minute int
	clock  Clock
	task   func()
}

// NewScheduler creates a Scheduler that runs task daily at hour:minute.
func NewScheduler(hour, minute int, clock Clock, task func()) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{hour: hour, minute: minute, clock: clock, task: task}
}

// Run executes the schedule until quit closes. Each wakeup recomputes the
// next run time from the current clock, so a task that overruns simply
// shifts to the following day instead of piling up.
func (s *Scheduler) Run(wg *sync.WaitGroup, quit <-chan struct{}) {
	if diskLogger == nil {
		InitLogger()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			now := s.clock.Now()
			next := nextRunTime(now, s.hour, s.minute)

			select {
			case <-quit:
				diskLogger.Info("Cleanup scheduler stopping")
				return
			case <-s.clock.After(next.Sub(now)):
				s.task()
			}
		}
	}()
}

// nextRunTime returns the next occurrence of hour:minute strictly after now,
// in now's location.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

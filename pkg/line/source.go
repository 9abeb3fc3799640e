package line

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ManualSource is a TickSource driven explicitly by Step. It is the
// in-memory counterpart of a hardware timer.
type ManualSource struct {
	ticker   Ticker
	interval time.Duration
	ticks    uint64
	lock     sync.Mutex
}

// NewManualSource creates a ManualSource reporting interval as its
// bit period.
func NewManualSource(interval time.Duration) *ManualSource {
	return &ManualSource{interval: interval}
}

// Attach implements TickSource.
func (s *ManualSource) Attach(t Ticker) {
	s.lock.Lock()
	s.ticker = t
	s.lock.Unlock()
}

// Interval implements TickSource.
func (s *ManualSource) Interval() time.Duration {
	return s.interval
}

// Run implements TickSource. ManualSource never ticks on its own, Run
// just waits for ctx.
func (s *ManualSource) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Step ticks n times synchronously.
func (s *ManualSource) Step(n int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i := 0; i < n; i++ {
		if s.ticker != nil {
			s.ticker.Tick()
		}
		s.ticks++
	}
}

// Ticks returns the total number of ticks stepped.
func (s *ManualSource) Ticks() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ticks
}

// TimerSource is a software TickSource based on time.Ticker, used on
// hosted platforms without a timer interrupt.
type TimerSource struct {
	interval time.Duration
	ticker   Ticker
	ticks    atomic.Uint64
	overruns atomic.Uint64
}

// NewTimerSource creates a TimerSource.
func NewTimerSource(interval time.Duration) *TimerSource {
	return &TimerSource{interval: interval}
}

// Attach implements TickSource.
func (s *TimerSource) Attach(t Ticker) {
	s.ticker = t
}

// Interval implements TickSource.
func (s *TimerSource) Interval() time.Duration {
	return s.interval
}

// Name implements framework.Named.
func (s *TimerSource) Name() string {
	return "tick-source"
}

// Run implements TickSource.
func (s *TimerSource) Run(ctx context.Context) error {
	if s.ticker == nil {
		return ErrNotAttached
	}
	if s.interval <= 0 {
		return ErrInterval
	}
	tk := time.NewTicker(s.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			start := time.Now()
			s.ticker.Tick()
			s.ticks.Add(1)
			if time.Since(start) > s.interval {
				s.overruns.Add(1)
			}
		}
	}
}

// Ticks returns the number of ticks delivered.
func (s *TimerSource) Ticks() uint64 {
	return s.ticks.Load()
}

// Overruns returns the number of ticks which took longer than the
// interval.
func (s *TimerSource) Overruns() uint64 {
	return s.overruns.Load()
}

//go:build tinygo && cortexm

package line

import (
	"context"
	"device/arm"
	"machine"
	"time"
)

// The interrupt vector is global, so is the Ticker it dispatches to.
var sysTickTarget Ticker

//export SysTick_Handler
func sysTickHandler() {
	if t := sysTickTarget; t != nil {
		t.Tick()
	}
}

// SysTickSource drives a Ticker from the Cortex-M SysTick interrupt.
// Only one SysTickSource can be active.
type SysTickSource struct {
	interval time.Duration
}

// NewSysTickSource creates a SysTickSource.
func NewSysTickSource(interval time.Duration) *SysTickSource {
	return &SysTickSource{interval: interval}
}

// Attach implements TickSource. It must be called before Run.
func (s *SysTickSource) Attach(t Ticker) {
	sysTickTarget = t
}

// Interval implements TickSource.
func (s *SysTickSource) Interval() time.Duration {
	return s.interval
}

// Run implements TickSource.
func (s *SysTickSource) Run(ctx context.Context) error {
	if sysTickTarget == nil {
		return ErrNotAttached
	}
	// SysTick has a 24-bit reload register.
	cycles := uint64(machine.CPUFrequency()) * uint64(s.interval) / uint64(time.Second)
	if cycles == 0 || cycles > 0xffffff {
		return ErrInterval
	}
	if err := arm.SetupSystemTimer(uint32(cycles)); err != nil {
		return err
	}
	<-ctx.Done()
	arm.SetupSystemTimer(0)
	return ctx.Err()
}

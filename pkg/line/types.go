// Package line abstracts the single digital output line and the periodic
// tick which clocks bits onto it.
package line

import (
	"context"
	"fmt"
	"time"
)

// Level is the logic level of the output line.
type Level uint8

const (
	// Low is logic 0.
	Low Level = 0
	// High is logic 1.
	High Level = 1
)

// LevelOf converts a bit value (only the lowest bit counts) to Level.
func LevelOf(bit byte) Level {
	return Level(bit & 1)
}

// IsValid checks if it's Low or High.
func (l Level) IsValid() bool {
	return l <= High
}

// String implements fmt.Stringer.
func (l Level) String() string {
	if l == High {
		return "1"
	}
	return "0"
}

// Sink writes one level to the output line per call. Implementations
// are called from tick context: they must complete synchronously,
// without blocking or allocating.
type Sink interface {
	WriteLevel(Level)
}

// SinkFunc is func form of Sink.
type SinkFunc func(Level)

// WriteLevel implements Sink.
func (f SinkFunc) WriteLevel(l Level) {
	f(l)
}

// Ticker is driven by a TickSource once per bit period.
type Ticker interface {
	Tick()
}

// TickFunc is func form of Ticker.
type TickFunc func()

// Tick implements Ticker.
func (f TickFunc) Tick() {
	f()
}

// TickSource invokes the attached Ticker at a fixed interval. Calls are
// serialized: Tick is never entered again before the previous call
// returns.
type TickSource interface {
	// Attach sets the Ticker to drive. It must be called before Run.
	Attach(Ticker)
	// Interval is the bit period.
	Interval() time.Duration
	// Run drives the Ticker until ctx is done.
	Run(context.Context) error
}

// ParseLevels parses a string of '0' and '1' into levels. Other
// characters are rejected.
func ParseLevels(s string) ([]Level, error) {
	levels := make([]Level, 0, len(s))
	for i, c := range s {
		switch c {
		case '0':
			levels = append(levels, Low)
		case '1':
			levels = append(levels, High)
		default:
			return nil, &ParseError{Pos: i, Char: c}
		}
	}
	return levels, nil
}

// ParseError reports an invalid character in a level string.
type ParseError struct {
	Pos  int
	Char rune
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid level %q at %d", e.Char, e.Pos)
}

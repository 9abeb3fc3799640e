package framer

import (
	"fmt"

	"github.com/robotalks/mantx/pkg/line"
)

// DefaultStopBits is the default number of Low bits after the payload.
const DefaultStopBits = 4

// DefaultPreamble is the default synchronization pattern.
var DefaultPreamble = []line.Level{
	line.Low, line.Low, line.Low, line.Low,
	line.High, line.Low, line.High,
}

// Completion describes a finished transmission.
type Completion struct {
	// Seq is the sequence number returned by Start.
	Seq uint64
	// Aborted is true if the transmission was cut short by Abort.
	Aborted bool
}

// Config defines the framing of transmissions.
type Config struct {
	// Preamble is emitted before the payload.
	Preamble []line.Level
	// StopBits is the number of Low bits emitted after the payload.
	StopBits int
	// OnComplete is called from tick context once a transmission ends.
	// It must not block.
	OnComplete func(Completion)
}

// DefaultConfig returns the default framing.
func DefaultConfig() Config {
	return Config{
		Preamble: append([]line.Level(nil), DefaultPreamble...),
		StopBits: DefaultStopBits,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for i, l := range c.Preamble {
		if !l.IsValid() {
			return fmt.Errorf("%w: preamble[%d] level %d", ErrInvalidConfig, i, l)
		}
	}
	if c.StopBits < 0 {
		return fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, c.StopBits)
	}
	return nil
}

// FrameTicks returns the number of ticks to transmit a frame of
// frameLen bytes.
func (c Config) FrameTicks(frameLen int) int {
	return len(c.Preamble) + frameLen*8 + c.StopBits
}

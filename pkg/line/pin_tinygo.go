//go:build tinygo

package line

import "machine"

// PinSink drives a GPIO pin configured as output.
type PinSink struct {
	pin machine.Pin
}

// NewPinSink configures pin as output, drives it Low and returns the
// Sink.
func NewPinSink(pin machine.Pin) *PinSink {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return &PinSink{pin: pin}
}

// WriteLevel implements Sink.
func (s *PinSink) WriteLevel(l Level) {
	s.pin.Set(l == High)
}

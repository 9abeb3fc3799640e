package sh

import (
	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/link"
	"github.com/robotalks/mantx/pkg/manchester"
	"github.com/robotalks/mantx/pkg/transmitter"
)

// Device is what the shell commands operate on.
type Device interface {
	Transmit(payload []byte) error
	TransmitFrame(frame []byte) error
	Encode(payload []byte, std manchester.Standard) ([]byte, error)
	Decode(frame []byte, std manchester.Standard) ([]byte, error)
	Status() (framer.Phase, error)
	Abort() (bool, error)
}

var _ Device = &link.Client{}

// Local is a Device simulating the transmitter in process. Each
// transmission is ticked to completion and its waveform recorded.
type Local struct {
	tx     *transmitter.Transmitter
	rec    *line.Recorder
	source *line.ManualSource
	last   []line.Level
}

// NewLocal creates a Local device.
func NewLocal(conf transmitter.Config) (*Local, error) {
	if conf.MaxPayload == 0 {
		conf.MaxPayload = transmitter.DefaultMaxPayload
	}
	d := &Local{
		rec:    line.NewRecorder(conf.Framer.FrameTicks(manchester.EncodedLen(conf.MaxPayload))),
		source: line.NewManualSource(0),
	}
	tx, err := transmitter.New(d.rec, conf)
	if err != nil {
		return nil, err
	}
	d.tx = tx
	d.source.Attach(tx.Ticker())
	return d, nil
}

// Transmitter returns the simulated transmitter.
func (d *Local) Transmitter() *transmitter.Transmitter {
	return d.tx
}

// Transmit implements Device.
func (d *Local) Transmit(payload []byte) error {
	return d.run(d.tx.Submit(payload))
}

// TransmitFrame implements Device.
func (d *Local) TransmitFrame(frame []byte) error {
	return d.run(d.tx.SubmitFrame(frame))
}

func (d *Local) run(r transmitter.Report, err error) error {
	if err != nil {
		return err
	}
	d.rec.Reset()
	d.source.Step(r.Ticks)
	d.last = d.rec.Levels()
	return nil
}

// Encode implements Device.
func (d *Local) Encode(payload []byte, std manchester.Standard) ([]byte, error) {
	return manchester.Encode(payload, std)
}

// Decode implements Device.
func (d *Local) Decode(frame []byte, std manchester.Standard) ([]byte, error) {
	return manchester.Decode(frame, std)
}

// Status implements Device.
func (d *Local) Status() (framer.Phase, error) {
	return d.tx.Phase(), nil
}

// Abort implements Device.
func (d *Local) Abort() (bool, error) {
	return d.tx.Abort(), nil
}

// LastWaveform returns the levels of the last transmission.
func (d *Local) LastWaveform() []line.Level {
	return d.last
}

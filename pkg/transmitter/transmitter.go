// Package transmitter encodes payloads and hands them to a framer for
// transmission, owning the frame buffer for the whole transmission.
package transmitter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/manchester"
)

// DefaultMaxPayload is the default payload capacity in bytes.
const DefaultMaxPayload = 10

var (
	// ErrBusy indicates a transmission is already in flight.
	ErrBusy = fmt.Errorf("transmitter busy: %w", manchester.ErrWorking)
	// ErrTooLarge indicates the payload or frame exceeds capacity.
	ErrTooLarge = fmt.Errorf("too large: %w", manchester.ErrSize)
	// ErrAborted indicates the transmission was aborted.
	ErrAborted = errors.New("transmission aborted")
	// ErrNoTransmission indicates Wait on a Report not returned by Submit.
	ErrNoTransmission = errors.New("no transmission")
)

// Observer is notified about transmissions. TransmissionDone is called
// from tick context and must not block.
type Observer interface {
	TransmissionStarted(frameLen int)
	TransmissionDone(aborted bool)
	SubmitFailed(manchester.Status)
}

// Config defines the configurations of a Transmitter.
type Config struct {
	Standard   manchester.Standard
	MaxPayload int
	Framer     framer.Config
	Observer   Observer
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Standard:   manchester.IEEE,
		MaxPayload: DefaultMaxPayload,
		Framer:     framer.DefaultConfig(),
	}
}

// Report describes a transmission.
type Report struct {
	ID         uuid.UUID
	Seq        uint64
	PayloadLen int
	FrameLen   int
	Ticks      int
	// Raw is set when the frame was submitted pre-encoded.
	Raw      bool
	Started  time.Time
	Duration time.Duration
	Aborted  bool

	state *inflight
}

type inflight struct {
	done    chan struct{}
	aborted bool
}

// Transmitter serializes payloads onto a line, one transmission at a
// time.
type Transmitter struct {
	standard   manchester.Standard
	maxPayload int
	observer   Observer
	framer     *framer.Framer

	busy atomic.Bool
	// buf and cur are owned by the submitter while busy is being
	// claimed, by the framer until completion.
	buf []byte
	cur *inflight
}

// New creates a Transmitter writing to sink.
func New(sink line.Sink, conf Config) (*Transmitter, error) {
	if !conf.Standard.IsValid() {
		return nil, manchester.ErrStandard
	}
	if conf.MaxPayload < 0 {
		return nil, fmt.Errorf("invalid max payload %d", conf.MaxPayload)
	}
	if conf.MaxPayload == 0 {
		conf.MaxPayload = DefaultMaxPayload
	}
	t := &Transmitter{
		standard:   conf.Standard,
		maxPayload: conf.MaxPayload,
		observer:   conf.Observer,
		buf:        make([]byte, manchester.EncodedLen(conf.MaxPayload)),
	}
	fconf := conf.Framer
	onComplete := fconf.OnComplete
	fconf.OnComplete = func(c framer.Completion) {
		t.complete(c)
		if onComplete != nil {
			onComplete(c)
		}
	}
	var err error
	if t.framer, err = framer.New(sink, fconf); err != nil {
		return nil, err
	}
	return t, nil
}

// Ticker returns the line.Ticker to attach to a TickSource.
func (t *Transmitter) Ticker() line.Ticker {
	return t.framer
}

// Standard returns the standard used for encoding.
func (t *Transmitter) Standard() manchester.Standard {
	return t.standard
}

// MaxPayload returns the payload capacity in bytes.
func (t *Transmitter) MaxPayload() int {
	return t.maxPayload
}

// Phase returns the phase of the framer.
func (t *Transmitter) Phase() framer.Phase {
	return t.framer.Phase()
}

// Busy indicates a transmission is in flight.
func (t *Transmitter) Busy() bool {
	return t.busy.Load()
}

// Abort aborts the in-flight transmission, if any.
func (t *Transmitter) Abort() bool {
	return t.framer.Abort()
}

// Submit encodes payload and starts transmitting it without waiting.
func (t *Transmitter) Submit(payload []byte) (Report, error) {
	if len(payload) > t.maxPayload {
		return Report{}, t.failed(fmt.Errorf("%w: payload %d bytes, max %d", ErrTooLarge, len(payload), t.maxPayload))
	}
	if !t.busy.CompareAndSwap(false, true) {
		return Report{}, t.failed(ErrBusy)
	}
	n, err := manchester.EncodeTo(t.buf, payload, t.standard)
	if err != nil {
		t.busy.Store(false)
		return Report{}, t.failed(err)
	}
	return t.start(n, len(payload), false)
}

// SubmitFrame starts transmitting a pre-encoded frame verbatim. The
// frame isn't validated; use manchester.Validate first if needed.
func (t *Transmitter) SubmitFrame(frame []byte) (Report, error) {
	if len(frame) > len(t.buf) {
		return Report{}, t.failed(fmt.Errorf("%w: frame %d bytes, max %d", ErrTooLarge, len(frame), len(t.buf)))
	}
	if !t.busy.CompareAndSwap(false, true) {
		return Report{}, t.failed(ErrBusy)
	}
	n := copy(t.buf, frame)
	return t.start(n, manchester.DecodedLen(n), true)
}

// Wait waits for the transmission in r to complete. If ctx is done
// first, the transmission is aborted and ctx.Err() returned.
func (t *Transmitter) Wait(ctx context.Context, r Report) (Report, error) {
	if r.state == nil {
		return r, ErrNoTransmission
	}
	select {
	case <-r.state.done:
	case <-ctx.Done():
		t.framer.AbortSeq(r.Seq)
		return r, ctx.Err()
	}
	r.Duration = time.Since(r.Started)
	if r.Aborted = r.state.aborted; r.Aborted {
		return r, ErrAborted
	}
	return r, nil
}

// Send transmits payload and waits for completion.
func (t *Transmitter) Send(ctx context.Context, payload []byte) (Report, error) {
	r, err := t.Submit(payload)
	if err != nil {
		return r, err
	}
	return t.Wait(ctx, r)
}

// SendFrame transmits a pre-encoded frame and waits for completion.
func (t *Transmitter) SendFrame(ctx context.Context, frame []byte) (Report, error) {
	r, err := t.SubmitFrame(frame)
	if err != nil {
		return r, err
	}
	return t.Wait(ctx, r)
}

func (t *Transmitter) start(frameLen, payloadLen int, raw bool) (Report, error) {
	fl := &inflight{done: make(chan struct{})}
	t.cur = fl
	r := Report{
		ID:         uuid.New(),
		PayloadLen: payloadLen,
		FrameLen:   frameLen,
		Ticks:      t.framer.FrameTicks(frameLen),
		Raw:        raw,
		Started:    time.Now(),
		state:      fl,
	}
	if t.observer != nil {
		t.observer.TransmissionStarted(frameLen)
	}
	seq, ok := t.framer.Start(t.buf[:frameLen])
	if !ok {
		// framer is private, only a bug gets here.
		t.cur = nil
		t.busy.Store(false)
		return Report{}, t.failed(ErrBusy)
	}
	r.Seq = seq
	if glog.V(2) {
		glog.Infof("transmission %s seq %d: %d bytes, %d ticks", r.ID, seq, frameLen, r.Ticks)
	}
	return r, nil
}

// complete runs in tick context.
func (t *Transmitter) complete(c framer.Completion) {
	fl := t.cur
	t.cur = nil
	t.busy.Store(false)
	if t.observer != nil {
		t.observer.TransmissionDone(c.Aborted)
	}
	if fl != nil {
		fl.aborted = c.Aborted
		close(fl.done)
	}
}

func (t *Transmitter) failed(err error) error {
	if t.observer != nil {
		t.observer.SubmitFailed(manchester.StatusOf(err))
	}
	return err
}

package framer

import (
	"fmt"
	"sync/atomic"

	"github.com/robotalks/mantx/pkg/line"
)

// Phase is the phase of a transmission.
type Phase int32

const (
	// PhaseIdle means no transmission in flight; Tick does nothing.
	PhaseIdle Phase = iota
	// PhasePreamble emits the synchronization pattern.
	PhasePreamble
	// PhasePayload emits the frame bits.
	PhasePayload
	// PhaseStop emits the stop bits.
	PhaseStop

	phaseArming // claimed by Start, cursors not published yet
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreamble, phaseArming:
		return "preamble"
	case PhasePayload:
		return "payload"
	case PhaseStop:
		return "stop"
	}
	return fmt.Sprintf("phase(%d)", int32(p))
}

// Framer is the transmission state machine. It implements line.Ticker.
type Framer struct {
	sink       line.Sink
	preamble   []line.Level
	stopBits   int
	onComplete func(Completion)

	phase     atomic.Int32
	seq       atomic.Uint64
	abortSeq  atomic.Uint64
	completed atomic.Uint64

	// owned by Start before the phase is published, by Tick afterwards.
	frame   []byte
	byteIdx int
	bitIdx  uint // bits left in frame[byteIdx]
	count   int  // preamble or stop bits emitted
}

// New creates a Framer writing to sink.
func New(sink line.Sink, conf Config) (*Framer, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &Framer{
		sink:       sink,
		preamble:   append([]line.Level(nil), conf.Preamble...),
		stopBits:   conf.StopBits,
		onComplete: conf.OnComplete,
		bitIdx:     8,
	}, nil
}

// Phase returns the current phase.
func (f *Framer) Phase() Phase {
	if p := Phase(f.phase.Load()); p != phaseArming {
		return p
	}
	return PhasePreamble
}

// Busy indicates a transmission is in flight.
func (f *Framer) Busy() bool {
	return Phase(f.phase.Load()) != PhaseIdle
}

// Completed returns the number of transmissions finished, aborted ones
// included.
func (f *Framer) Completed() uint64 {
	return f.completed.Load()
}

// FrameTicks returns the number of ticks to transmit a frame of
// frameLen bytes.
func (f *Framer) FrameTicks(frameLen int) int {
	return len(f.preamble) + frameLen*8 + f.stopBits
}

// Start begins transmitting frame. It is only accepted when Idle;
// otherwise it's ignored and ok is false. The returned seq identifies
// the transmission in its Completion.
func (f *Framer) Start(frame []byte) (seq uint64, ok bool) {
	if !f.phase.CompareAndSwap(int32(PhaseIdle), int32(phaseArming)) {
		return 0, false
	}
	seq = f.seq.Add(1)
	f.frame = frame
	f.enter(PhasePreamble)
	return seq, true
}

// Abort requests the in-flight transmission to be cancelled. The next
// tick drives the line Low, resets every cursor and returns to Idle,
// reporting an aborted Completion. Abort returns false if there's
// nothing to abort, including while a Start is still arming.
func (f *Framer) Abort() bool {
	return f.AbortSeq(f.seq.Load())
}

// AbortSeq is Abort limited to the transmission identified by seq, so
// a late request never cancels a newer transmission.
func (f *Framer) AbortSeq(seq uint64) bool {
	if seq == 0 || f.seq.Load() != seq {
		return false
	}
	// While arming, seq may not be claimed yet by the new transmission.
	if p := Phase(f.phase.Load()); p == PhaseIdle || p == phaseArming {
		return false
	}
	if f.seq.Load() != seq {
		return false
	}
	f.abortSeq.Store(seq)
	return true
}

// Tick implements line.Ticker.
func (f *Framer) Tick() {
	p := Phase(f.phase.Load())
	if p == PhaseIdle || p == phaseArming {
		return
	}
	if f.abortSeq.Load() == f.seq.Load() {
		f.sink.WriteLevel(line.Low)
		f.finish(true)
		return
	}
	switch p {
	case PhasePreamble:
		f.sink.WriteLevel(f.preamble[f.count])
		if f.count++; f.count == len(f.preamble) {
			f.enter(PhasePayload)
		}
	case PhasePayload:
		f.bitIdx--
		f.sink.WriteLevel(line.LevelOf(f.frame[f.byteIdx] >> f.bitIdx))
		if f.bitIdx == 0 {
			f.bitIdx = 8
			if f.byteIdx++; f.byteIdx == len(f.frame) {
				f.enter(PhaseStop)
			}
		}
	case PhaseStop:
		f.sink.WriteLevel(line.Low)
		if f.count++; f.count == f.stopBits {
			f.finish(false)
		}
	}
}

// enter moves to phase p, skipping phases with nothing to emit.
func (f *Framer) enter(p Phase) {
	for {
		switch p {
		case PhasePreamble:
			if len(f.preamble) > 0 {
				f.count = 0
				f.phase.Store(int32(p))
				return
			}
			p = PhasePayload
		case PhasePayload:
			if len(f.frame) > 0 {
				f.byteIdx, f.bitIdx = 0, 8
				f.phase.Store(int32(p))
				return
			}
			p = PhaseStop
		default:
			if f.stopBits > 0 {
				f.count = 0
				f.phase.Store(int32(PhaseStop))
				return
			}
			f.finish(false)
			return
		}
	}
}

func (f *Framer) finish(aborted bool) {
	c := Completion{Seq: f.seq.Load(), Aborted: aborted}
	f.frame = nil
	f.byteIdx, f.bitIdx, f.count = 0, 8, 0
	f.completed.Add(1)
	f.phase.Store(int32(PhaseIdle))
	if cb := f.onComplete; cb != nil {
		cb(c)
	}
}

package framer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mantx/pkg/line"
)

type countingSink struct {
	writes int
}

func (s *countingSink) WriteLevel(line.Level) {
	s.writes++
}

func newTestFramer(t *testing.T, sink line.Sink, conf Config) *Framer {
	f, err := New(sink, conf)
	require.NoError(t, err)
	return f
}

func TestTiming(t *testing.T) {
	rec := line.NewRecorder(64)
	var done []Completion
	conf := DefaultConfig()
	conf.OnComplete = func(c Completion) { done = append(done, c) }
	f := newTestFramer(t, rec, conf)

	require.Equal(t, PhaseIdle, f.Phase())
	frame := []byte{0x66, 0x59}
	require.Equal(t, 27, f.FrameTicks(len(frame)))

	seq, ok := f.Start(frame)
	require.True(t, ok)
	require.Equal(t, uint64(1), seq)

	for tick := 1; tick <= 27; tick++ {
		switch {
		case tick <= 7:
			require.Equal(t, PhasePreamble, f.Phase(), "tick %d", tick)
		case tick <= 23:
			require.Equal(t, PhasePayload, f.Phase(), "tick %d", tick)
		default:
			require.Equal(t, PhaseStop, f.Phase(), "tick %d", tick)
		}
		require.Empty(t, done)
		f.Tick()
		require.Equal(t, tick, rec.Len())
	}
	require.Equal(t, PhaseIdle, f.Phase())
	require.Equal(t, []Completion{{Seq: 1}}, done)
	require.Equal(t, uint64(1), f.Completed())
	require.Equal(t, "0000101"+"0110011001011001"+"0000", rec.String())

	f.Tick()
	require.Equal(t, 27, rec.Len())
}

func TestStartWhileBusy(t *testing.T) {
	rec := line.NewRecorder(64)
	f := newTestFramer(t, rec, DefaultConfig())
	_, ok := f.Start([]byte{0xff})
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		f.Tick()
		phase := f.Phase()
		seq, ok := f.Start([]byte{0x00, 0x00})
		require.False(t, ok)
		require.Zero(t, seq)
		require.Equal(t, phase, f.Phase())
	}
	for f.Busy() {
		f.Tick()
	}
	require.Equal(t, "0000101"+"11111111"+"0000", rec.String())
	seq, ok := f.Start([]byte{0xaa})
	require.True(t, ok)
	require.Equal(t, uint64(2), seq)
}

func TestOneWritePerTick(t *testing.T) {
	sink := &countingSink{}
	f := newTestFramer(t, sink, DefaultConfig())
	f.Tick()
	require.Zero(t, sink.writes)
	f.Start([]byte{1, 2, 3})
	for i := 1; f.Busy(); i++ {
		f.Tick()
		require.Equal(t, i, sink.writes)
	}
	require.Equal(t, f.FrameTicks(3), sink.writes)
	f.Tick()
	require.Equal(t, f.FrameTicks(3), sink.writes)
}

func TestEmptySequences(t *testing.T) {
	testCases := []struct {
		name   string
		conf   Config
		frame  []byte
		expect string
	}{
		{"empty frame", DefaultConfig(), nil, "0000101" + "0000"},
		{"no preamble", Config{StopBits: 2}, []byte{0x80}, "10000000" + "00"},
		{"no stop bits", Config{Preamble: []line.Level{line.High}}, []byte{0x01}, "1" + "00000001"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := line.NewRecorder(64)
			f := newTestFramer(t, rec, tc.conf)
			_, ok := f.Start(tc.frame)
			require.True(t, ok)
			ticks := 0
			for f.Busy() {
				f.Tick()
				ticks++
			}
			require.Equal(t, tc.expect, rec.String())
			require.Equal(t, f.FrameTicks(len(tc.frame)), ticks)
		})
	}
}

func TestNothingToSend(t *testing.T) {
	var done []Completion
	f := newTestFramer(t, line.NewRecorder(1), Config{
		OnComplete: func(c Completion) { done = append(done, c) },
	})
	seq, ok := f.Start(nil)
	require.True(t, ok)
	require.Equal(t, PhaseIdle, f.Phase())
	require.Equal(t, []Completion{{Seq: seq}}, done)
}

func TestAbort(t *testing.T) {
	rec := line.NewRecorder(64)
	var done []Completion
	conf := DefaultConfig()
	conf.OnComplete = func(c Completion) { done = append(done, c) }
	f := newTestFramer(t, rec, conf)

	require.False(t, f.Abort())
	f.Start([]byte{0xff, 0xff})
	for i := 0; i < 10; i++ {
		f.Tick()
	}
	require.Equal(t, PhasePayload, f.Phase())
	require.True(t, f.Abort())
	require.Equal(t, PhasePayload, f.Phase())
	f.Tick()
	require.Equal(t, PhaseIdle, f.Phase())
	require.Equal(t, []Completion{{Seq: 1, Aborted: true}}, done)
	require.Equal(t, "0000101"+"111"+"0", rec.String())

	rec.Reset()
	seq, ok := f.Start([]byte{0x0f})
	require.True(t, ok)
	for f.Busy() {
		f.Tick()
	}
	require.Equal(t, "0000101"+"00001111"+"0000", rec.String())
	require.Equal(t, Completion{Seq: seq}, done[1])
}

func TestStaleAbort(t *testing.T) {
	f := newTestFramer(t, line.NewRecorder(64), DefaultConfig())
	seq, _ := f.Start([]byte{0x01})
	require.True(t, f.AbortSeq(seq))
	f.Tick()
	require.False(t, f.Busy())
	require.False(t, f.AbortSeq(seq))

	// an abort aimed at the first frame must not hit the second.
	f.Start([]byte{0x01})
	require.False(t, f.AbortSeq(seq))
	for i := 0; f.Busy(); i++ {
		f.Tick()
		require.True(t, i < f.FrameTicks(1))
	}
	require.Equal(t, uint64(2), f.Completed())
}

func TestAbortWhileArming(t *testing.T) {
	rec := line.NewRecorder(64)
	var done []Completion
	conf := DefaultConfig()
	conf.OnComplete = func(c Completion) { done = append(done, c) }
	f := newTestFramer(t, rec, conf)
	seq, _ := f.Start(nil)
	for f.Busy() {
		f.Tick()
	}
	rec.Reset()

	// the first half of Start: Idle claimed, seq not yet advanced.
	require.True(t, f.phase.CompareAndSwap(int32(PhaseIdle), int32(phaseArming)))
	require.True(t, f.Busy())
	require.False(t, f.Abort())
	require.False(t, f.AbortSeq(seq))
	f.Tick()
	require.Zero(t, rec.Len())

	// the second half of Start.
	f.seq.Add(1)
	f.frame = []byte{0x59}
	f.enter(PhasePreamble)
	for f.Busy() {
		f.Tick()
	}
	require.Equal(t, "0000101"+"01011001"+"0000", rec.String())
	require.Equal(t, Completion{Seq: seq + 1}, done[len(done)-1])
}

func TestChainedStart(t *testing.T) {
	rec := line.NewRecorder(64)
	var f *Framer
	next := [][]byte{{0xf0}}
	f = newTestFramer(t, rec, Config{
		StopBits: 1,
		OnComplete: func(Completion) {
			if len(next) > 0 {
				f.Start(next[0])
				next = next[1:]
			}
		},
	})
	f.Start([]byte{0x0f})
	for f.Busy() {
		f.Tick()
	}
	require.Equal(t, "00001111"+"0"+"11110000"+"0", rec.String())
}

func TestTickNoAlloc(t *testing.T) {
	f := newTestFramer(t, line.NewRecorder(0), Config{
		Preamble:   DefaultPreamble,
		StopBits:   DefaultStopBits,
		OnComplete: func(Completion) {},
	})
	frame := []byte{0xde, 0xad, 0xbe, 0xef}
	allocs := testing.AllocsPerRun(50, func() {
		f.Start(frame)
		for f.Busy() {
			f.Tick()
		}
		f.Start(frame)
		f.Tick()
		f.Abort()
		f.Tick()
	})
	require.Zero(t, allocs)
}

func TestConcurrentStart(t *testing.T) {
	const (
		starters = 4
		attempts = 200
	)
	rec := line.NewRecorder(1 << 20)
	var completed atomic.Int64
	f := newTestFramer(t, rec, Config{
		Preamble:   DefaultPreamble,
		StopBits:   DefaultStopBits,
		OnComplete: func(Completion) { completed.Add(1) },
	})
	frame := []byte{0x55, 0xaa}

	stop := make(chan struct{})
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		for {
			select {
			case <-stop:
				return
			default:
				f.Tick()
			}
		}
	}()

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < attempts; n++ {
				if _, ok := f.Start(frame); ok {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	for f.Busy() {
		runtime.Gosched()
	}
	close(stop)
	<-tickerDone

	require.True(t, accepted.Load() > 0)
	require.Equal(t, accepted.Load(), completed.Load())
	require.Equal(t, int(accepted.Load())*f.FrameTicks(len(frame)), rec.Len())
	want := "0000101" + "0101010110101010" + "0000"
	got := rec.String()
	for i := 0; i < len(got); i += len(want) {
		require.Equal(t, want, got[i:i+len(want)])
	}
}

func TestConfigValidate(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(line.NewRecorder(1), Config{StopBits: -1})
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(line.NewRecorder(1), Config{Preamble: []line.Level{2}})
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Equal(t, 27, DefaultConfig().FrameTicks(2))
}

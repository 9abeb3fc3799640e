package line

import (
	"strings"
	"sync/atomic"
)

// Recorder is an in-memory Sink which remembers every level written, up
// to a fixed capacity allocated up front. Writes beyond capacity are
// counted and dropped.
//
// A single writer may run concurrently with readers; Reset must not
// race with WriteLevel.
type Recorder struct {
	buf     []Level
	n       atomic.Int64
	dropped atomic.Int64
}

// NewRecorder creates a Recorder holding up to capacity levels.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{buf: make([]Level, capacity)}
}

// WriteLevel implements Sink.
func (r *Recorder) WriteLevel(l Level) {
	n := r.n.Load()
	if n >= int64(len(r.buf)) {
		r.dropped.Add(1)
		return
	}
	r.buf[n] = l
	r.n.Store(n + 1)
}

// Len returns the number of recorded levels.
func (r *Recorder) Len() int {
	return int(r.n.Load())
}

// Dropped returns the number of levels not recorded for lack of capacity.
func (r *Recorder) Dropped() int {
	return int(r.dropped.Load())
}

// Levels returns a copy of the recorded levels.
func (r *Recorder) Levels() []Level {
	n := r.n.Load()
	levels := make([]Level, n)
	copy(levels, r.buf[:n])
	return levels
}

// String renders recorded levels as '0' and '1'.
func (r *Recorder) String() string {
	return FormatLevels(r.Levels())
}

// Reset discards recorded levels.
func (r *Recorder) Reset() {
	r.n.Store(0)
	r.dropped.Store(0)
}

// FormatLevels renders levels as '0' and '1'.
func FormatLevels(levels []Level) string {
	var sb strings.Builder
	sb.Grow(len(levels))
	for _, l := range levels {
		sb.WriteString(l.String())
	}
	return sb.String()
}

// Waveform renders levels as a line drawing, one column per level.
func Waveform(levels []Level) string {
	var sb strings.Builder
	for _, l := range levels {
		if l == High {
			sb.WriteRune('‾')
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

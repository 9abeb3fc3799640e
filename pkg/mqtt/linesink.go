package mqtt

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mantx/pkg/line"
)

// DefaultFlushInterval is the default interval LineSink publishes at.
const DefaultFlushInterval = 100 * time.Millisecond

// LineSink is a virtual output line. Levels written from tick context
// are buffered in a ring and published by Run as ASCII '0'/'1' batches
// to <device>/line. WriteLevel must be called from a single goroutine.
type LineSink struct {
	Publisher     Publisher
	Topic         string
	FlushInterval time.Duration

	ring    []byte
	mask    uint64
	head    atomic.Uint64
	tail    atomic.Uint64
	dropped atomic.Uint64
}

// LineTopic returns the topic levels of device are published to.
func LineTopic(device string) string {
	return device + "/line"
}

// NewLineSink creates a LineSink buffering at least size levels.
func NewLineSink(pub Publisher, device string, size int) *LineSink {
	n := 64
	for n < size {
		n <<= 1
	}
	return &LineSink{
		Publisher:     pub,
		Topic:         LineTopic(device),
		FlushInterval: DefaultFlushInterval,
		ring:          make([]byte, n),
		mask:          uint64(n - 1),
	}
}

// Name implements framework.Named.
func (s *LineSink) Name() string {
	return "line-sink"
}

// WriteLevel implements line.Sink. It never blocks or allocates; levels
// are dropped when the ring is full.
func (s *LineSink) WriteLevel(l line.Level) {
	head := s.head.Load()
	if head-s.tail.Load() > s.mask {
		s.dropped.Add(1)
		return
	}
	s.ring[head&s.mask] = '0' + byte(l&1)
	s.head.Store(head + 1)
}

// Dropped returns the number of levels dropped.
func (s *LineSink) Dropped() uint64 {
	return s.dropped.Load()
}

// Pending returns the number of levels not yet published.
func (s *LineSink) Pending() int {
	return int(s.head.Load() - s.tail.Load())
}

// Flush publishes buffered levels, if any.
func (s *LineSink) Flush() error {
	tail, head := s.tail.Load(), s.head.Load()
	if head == tail {
		return nil
	}
	batch := make([]byte, 0, head-tail)
	for i := tail; i != head; i++ {
		batch = append(batch, s.ring[i&s.mask])
	}
	s.tail.Store(head)
	return s.Publisher.Publish(s.Topic, batch)
}

// Run publishes buffered levels every FlushInterval until ctx is done.
func (s *LineSink) Run(ctx context.Context) error {
	interval := s.FlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var reported uint64
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				glog.Warningf("publish %s: %v", s.Topic, err)
			}
			if d := s.Dropped(); d != reported {
				glog.Warningf("%s: %d levels dropped", s.Topic, d-reported)
				reported = d
			}
		case <-ctx.Done():
			s.Flush()
			return ctx.Err()
		}
	}
}

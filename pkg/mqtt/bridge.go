package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/google/uuid"

	"github.com/robotalks/mantx/pkg/manchester"
	"github.com/robotalks/mantx/pkg/transmitter"
)

// Sender transmits a payload and waits for completion.
type Sender interface {
	Send(ctx context.Context, payload []byte) (transmitter.Report, error)
}

// TxReport is published to <device>/tx/report after each request.
type TxReport struct {
	ID         string `json:"id,omitempty"`
	Seq        uint64 `json:"seq,omitempty"`
	PayloadLen int    `json:"payload_len"`
	FrameLen   int    `json:"frame_len,omitempty"`
	Ticks      int    `json:"ticks,omitempty"`
	DurationUS int64  `json:"duration_us,omitempty"`
	Aborted    bool   `json:"aborted,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// TxTopic returns the topic transmit requests for device are received on.
func TxTopic(device string) string {
	return device + "/tx"
}

// TxReportTopic returns the topic transmit reports of device are
// published to.
func TxReportTopic(device string) string {
	return device + "/tx/report"
}

// EncodeTxRequest serializes payload as a transmit request.
func EncodeTxRequest(payload []byte) ([]byte, error) {
	return proto.Marshal(&wrappers.BytesValue{Value: payload})
}

// DecodeTxRequest parses a transmit request.
func DecodeTxRequest(msg []byte) ([]byte, error) {
	var v wrappers.BytesValue
	if err := proto.Unmarshal(msg, &v); err != nil {
		return nil, err
	}
	return v.GetValue(), nil
}

// Bridge transmits payloads requested over MQTT.
type Bridge struct {
	Subscriber Subscriber
	Publisher  Publisher
	Sender     Sender
	Device     string
	// Timeout bounds a single transmission, 0 for no limit.
	Timeout time.Duration

	reqCh    chan []byte
	rejectCh chan struct{}
	rejected atomic.Uint64
}

// NewBridge creates a Bridge queueing up to backlog requests.
func NewBridge(q *Queue, sender Sender, device string, backlog int) *Bridge {
	if backlog < 1 {
		backlog = 1
	}
	return &Bridge{
		Subscriber: q,
		Publisher:  q,
		Sender:     sender,
		Device:     device,
		reqCh:      make(chan []byte, backlog),
		rejectCh:   make(chan struct{}, 1),
	}
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt-bridge"
}

// Run serves transmit requests until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Subscriber.Sub(TxTopic(b.Device), b.enqueue)
	defer sub.Close()
	for {
		select {
		case msg := <-b.reqCh:
			b.publish(b.Serve(ctx, msg))
		case <-b.rejectCh:
			b.publishRejected()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// enqueue runs in the MQTT client's callback. Requests beyond the
// backlog are counted and reported together by Run.
func (b *Bridge) enqueue(_ string, msg []byte) {
	select {
	case b.reqCh <- msg:
	default:
		b.rejected.Add(1)
		select {
		case b.rejectCh <- struct{}{}:
		default:
		}
	}
}

func (b *Bridge) publishRejected() {
	n := b.rejected.Swap(0)
	if n == 0 {
		return
	}
	glog.Warningf("%s: %d requests dropped, backlog full", TxTopic(b.Device), n)
	b.publish(TxReport{
		Status: manchester.StatusWorking.String(),
		Error:  fmt.Sprintf("backlog full, %d requests dropped", n),
	})
}

// Serve handles a single transmit request.
func (b *Bridge) Serve(ctx context.Context, msg []byte) TxReport {
	payload, err := DecodeTxRequest(msg)
	if err != nil {
		return TxReport{Status: manchester.StatusUnknown.String(), Error: err.Error()}
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	r, err := b.Sender.Send(ctx, payload)
	rep := TxReport{
		PayloadLen: len(payload),
		FrameLen:   r.FrameLen,
		Ticks:      r.Ticks,
		Seq:        r.Seq,
		DurationUS: r.Duration.Microseconds(),
		Aborted:    r.Aborted,
		Status:     manchester.StatusOf(err).String(),
	}
	if r.ID != uuid.Nil {
		rep.ID = r.ID.String()
	}
	if err != nil {
		rep.Error = err.Error()
	}
	return rep
}

func (b *Bridge) publish(rep TxReport) {
	data, err := json.Marshal(rep)
	if err != nil {
		glog.Errorf("encode report: %v", err)
		return
	}
	if err := b.Publisher.Publish(TxReportTopic(b.Device), data); err != nil {
		glog.Warningf("publish %s: %v", TxReportTopic(b.Device), err)
	}
}

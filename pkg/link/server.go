package link

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/manchester"
	"github.com/robotalks/mantx/pkg/transmitter"
)

// Transmitter is what the Server needs from a transmitter.
type Transmitter interface {
	Submit(payload []byte) (transmitter.Report, error)
	SubmitFrame(frame []byte) (transmitter.Report, error)
	Abort() bool
	Phase() framer.Phase
}

// Server serves requests from a host over a byte stream.
type Server struct {
	ReadWriter io.ReadWriter
	Tx         Transmitter
	Timeout    time.Duration

	parser Parser
}

// NewServer creates a Server.
func NewServer(rw io.ReadWriter, tx Transmitter) *Server {
	return &Server{
		ReadWriter: rw,
		Tx:         tx,
		Timeout:    100 * time.Millisecond,
	}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "link"
}

// Run serves requests until ctx is done or the stream fails.
func (s *Server) Run(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.readLoop(subCtx, byteCh, errCh)

	var timer <-chan time.Time
	for {
		select {
		case b := <-byteCh:
			pkt := s.parser.Parse(b)
			if pkt != nil {
				timer = nil
				if err := s.serve(pkt); err != nil {
					return err
				}
			} else if s.parser.Receiving() {
				timer = time.After(s.Timeout)
			}
		case <-timer:
			timer = nil
			if s.parser.Timeout() {
				glog.Warning("link: partial packet dropped")
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Server) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 1)
	for {
		if _, err := s.ReadWriter.Read(buf); err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) serve(pkt *Packet) error {
	if pkt.IsReply() {
		glog.V(3).Infof("link: ignore reply seq %d", pkt.Seq)
		return nil
	}
	reply := s.Handle(pkt)
	if glog.V(2) {
		glog.Infof("link: seq %d code 0x%02x -> %v", pkt.Seq, pkt.Command(), reply.Status())
	}
	_, err := reply.WriteTo(s.ReadWriter)
	return err
}

// Handle processes a request and returns the reply.
func (s *Server) Handle(pkt *Packet) *Packet {
	reply := &Packet{Seq: pkt.Seq, Code: ReplyFlag}
	var err error
	switch pkt.Command() {
	case CodeTransmit:
		_, err = s.Tx.Submit(pkt.Data)
	case CodeTransmitFrame:
		_, err = s.Tx.SubmitFrame(pkt.Data)
	case CodeEncode:
		reply.Data, err = convert(pkt.Data, manchester.Encode)
	case CodeDecode:
		reply.Data, err = convert(pkt.Data, manchester.Decode)
	case CodeStatus:
		phase := s.Tx.Phase()
		reply.Data = []byte{byte(phase)}
		if phase != framer.PhaseIdle {
			err = manchester.ErrWorking
		}
	case CodeAbort:
		reply.Data = []byte{0}
		if s.Tx.Abort() {
			reply.Data[0] = 1
		}
	default:
		err = ErrUnknownCommand
		glog.Warningf("link: unknown command 0x%02x", pkt.Command())
	}
	if err != nil && pkt.Command() != CodeStatus {
		reply.Data = nil
	}
	reply.Code |= byte(manchester.StatusOf(err))
	return reply
}

func convert(data []byte, fn func([]byte, manchester.Standard) ([]byte, error)) ([]byte, error) {
	if len(data) < 1 {
		return nil, manchester.ErrStandard
	}
	out, err := fn(data[1:], manchester.Standard(data[0]))
	if err == nil && len(out) > MaxDataLen {
		return nil, manchester.ErrSize
	}
	return out, err
}

package link

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/manchester"
)

// DefaultTimeout is the default time a Client waits for a reply.
const DefaultTimeout = time.Second

// Client is the host side of the link.
type Client struct {
	ReadWriter io.ReadWriter
	Timeout    time.Duration

	seq    PacketSeq
	parser Parser
	lock   sync.Mutex

	startOnce sync.Once
	byteCh    chan byte
	errCh     chan error
	err       error
}

// NewClient creates a Client.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{ReadWriter: rw, Timeout: DefaultTimeout, seq: NewPacketSeq()}
}

func (c *Client) start() {
	c.byteCh, c.errCh = make(chan byte), make(chan error, 1)
	go c.readLoop()
}

func (c *Client) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := c.ReadWriter.Read(buf)
		if err != nil {
			c.errCh <- err
			return
		}
		if n > 0 {
			c.byteCh <- buf[0]
		}
	}
}

// Do sends a request and waits for its reply. Replies to other requests
// are discarded. ErrNoReply is returned if the reply doesn't arrive
// within Timeout, and a partially received reply is dropped.
func (c *Client) Do(code byte, data []byte) (*Packet, error) {
	c.startOnce.Do(c.start)
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	req := &Packet{Seq: c.seq, Code: code &^ ReplyFlag, Data: data}
	c.seq = c.seq.Next()
	if _, err := req.WriteTo(c.ReadWriter); err != nil {
		return nil, err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case b := <-c.byteCh:
			if reply := c.parser.Parse(b); reply != nil && reply.IsReply() && reply.Seq == req.Seq {
				return reply, nil
			}
		case err := <-c.errCh:
			c.err = err
			return nil, err
		case <-timer.C:
			if c.parser.Timeout() {
				glog.Warning("link: partial reply dropped")
			}
			return nil, fmt.Errorf("%w: seq %d code 0x%02x", ErrNoReply, req.Seq, req.Command())
		}
	}
}

func (c *Client) do(code byte, data []byte) (*Packet, error) {
	reply, err := c.Do(code, data)
	if err != nil {
		return nil, err
	}
	if s := reply.Status(); s != manchester.StatusOK {
		return reply, &CommandError{Code: code, Status: s}
	}
	return reply, nil
}

// Transmit submits payload for transmission.
func (c *Client) Transmit(payload []byte) error {
	_, err := c.do(CodeTransmit, payload)
	return err
}

// TransmitFrame submits a pre-encoded frame for transmission.
func (c *Client) TransmitFrame(frame []byte) error {
	_, err := c.do(CodeTransmitFrame, frame)
	return err
}

// Encode encodes payload on the device.
func (c *Client) Encode(payload []byte, std manchester.Standard) ([]byte, error) {
	reply, err := c.do(CodeEncode, append([]byte{byte(std)}, payload...))
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// Decode decodes a frame on the device.
func (c *Client) Decode(frame []byte, std manchester.Standard) ([]byte, error) {
	reply, err := c.do(CodeDecode, append([]byte{byte(std)}, frame...))
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// Status queries the framer phase.
func (c *Client) Status() (framer.Phase, error) {
	reply, err := c.Do(CodeStatus, nil)
	if err != nil {
		return framer.PhaseIdle, err
	}
	if s := reply.Status(); s != manchester.StatusOK && s != manchester.StatusWorking {
		return framer.PhaseIdle, &CommandError{Code: CodeStatus, Status: s}
	}
	if len(reply.Data) < 1 {
		return framer.PhaseIdle, io.ErrUnexpectedEOF
	}
	return framer.Phase(reply.Data[0]), nil
}

// Abort aborts the transmission in flight. It returns false if there was
// none.
func (c *Client) Abort() (bool, error) {
	reply, err := c.do(CodeAbort, nil)
	if err != nil {
		return false, err
	}
	return len(reply.Data) > 0 && reply.Data[0] != 0, nil
}

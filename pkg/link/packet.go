package link

import (
	"fmt"
	"io"
	"time"

	"github.com/robotalks/mantx/pkg/manchester"
)

// MaxDataLen is the maximum length of packet data.
const MaxDataLen = 0x7f

// Request codes.
const (
	// CodeTransmit submits data as payload for transmission.
	CodeTransmit byte = 0x01
	// CodeTransmitFrame submits data as a pre-encoded frame, sent verbatim.
	CodeTransmitFrame byte = 0x02
	// CodeEncode encodes data[1:] with standard data[0].
	CodeEncode byte = 0x03
	// CodeDecode decodes data[1:] with standard data[0].
	CodeDecode byte = 0x04
	// CodeStatus queries the framer phase, replied as data[0].
	CodeStatus byte = 0x05
	// CodeAbort aborts the transmission in flight, data[0] is 1 if any.
	CodeAbort byte = 0x06

	// ReplyFlag is set in the code of replies.
	ReplyFlag byte = 0x80

	codeMask = 0x8f
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Packet is a request or reply.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsReply indicates the packet is a reply.
func (p *Packet) IsReply() bool {
	return p.Code&ReplyFlag != 0
}

// Command returns the request code, or the status of a reply.
func (p *Packet) Command() byte {
	return p.Code & 0x0f
}

// Status returns the status carried by a reply.
func (p *Packet) Status() manchester.Status {
	return manchester.Status(p.Command())
}

// AppendTo appends the encoded packet to b.
func (p *Packet) AppendTo(b []byte) ([]byte, error) {
	l := len(p.Data)
	if l > MaxDataLen {
		return b, fmt.Errorf("%w: %d bytes", ErrDataTooLong, l)
	}
	code := p.Code & codeMask
	if l < 7 {
		b = append(b, byte(p.Seq), code|byte(l)<<4)
	} else {
		b = append(b, byte(p.Seq), code|0x70, byte(l))
	}
	return append(b, p.Data...), nil
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() ([]byte, error) {
	return p.AppendTo(make([]byte, 0, len(p.Data)+3))
}

// WriteTo implements io.WriterTo, writing the packet in a single Write.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	b, err := p.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

package link

// Parser assembles packets from received bytes.
type Parser struct {
	state   parseState
	packet  *Packet
	recvLen int

	skipped int
	dropped int
}

type parseState int

const (
	stateSeq  parseState = iota // waiting for a valid seq
	stateCode                   // waiting for code and length
	stateLen                    // waiting for extended length
	stateData                   // receiving data
)

// Parse consumes one byte and returns a packet once complete.
func (p *Parser) Parse(b byte) *Packet {
	switch p.state {
	case stateSeq:
		if seq := PacketSeq(b); seq.IsValid() {
			p.packet, p.state = &Packet{Seq: seq}, stateCode
		} else {
			p.skipped++
		}
	case stateCode:
		p.packet.Code = b & codeMask
		switch l := int(b>>4) & 7; l {
		case 0:
			return p.ready()
		case 7:
			p.state = stateLen
		default:
			p.expect(l)
		}
	case stateLen:
		if b > MaxDataLen {
			p.Reset()
			p.dropped++
			return nil
		}
		if b == 0 {
			return p.ready()
		}
		p.expect(int(b))
	case stateData:
		p.packet.Data[p.recvLen] = b
		if p.recvLen++; p.recvLen == len(p.packet.Data) {
			return p.ready()
		}
	}
	return nil
}

// Receiving indicates a packet is partially received.
func (p *Parser) Receiving() bool {
	return p.state != stateSeq
}

// Timeout drops a partially received packet. It returns true if
// anything was dropped.
func (p *Parser) Timeout() bool {
	if !p.Receiving() {
		return false
	}
	p.Reset()
	p.dropped++
	return true
}

// Reset discards any partial packet.
func (p *Parser) Reset() {
	p.state, p.packet, p.recvLen = stateSeq, nil, 0
}

// Skipped returns the number of bytes skipped looking for a packet.
func (p *Parser) Skipped() int {
	return p.skipped
}

// Dropped returns the number of partial packets dropped.
func (p *Parser) Dropped() int {
	return p.dropped
}

func (p *Parser) expect(n int) {
	p.packet.Data, p.recvLen = make([]byte, n), 0
	p.state = stateData
}

func (p *Parser) ready() *Packet {
	pkt := p.packet
	p.Reset()
	return pkt
}

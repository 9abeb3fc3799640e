package link

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/manchester"
	"github.com/robotalks/mantx/pkg/transmitter"
)

type serverTestEnv struct {
	rec    *line.Recorder
	source *line.ManualSource
	tx     *transmitter.Transmitter
	client *Client
}

func newServerTestEnv(t *testing.T) *serverTestEnv {
	env := &serverTestEnv{
		rec:    line.NewRecorder(256),
		source: line.NewManualSource(time.Millisecond),
	}
	tx, err := transmitter.New(env.rec, transmitter.DefaultConfig())
	require.NoError(t, err)
	env.tx = tx
	env.source.Attach(tx.Ticker())

	hostEnd, devEnd := net.Pipe()
	srv := NewServer(devEnd, tx)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		hostEnd.Close()
		devEnd.Close()
		<-done
	})
	env.client = NewClient(hostEnd)
	return env
}

func TestServerTransmit(t *testing.T) {
	env := newServerTestEnv(t)
	c := env.client

	phase, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, framer.PhaseIdle, phase)

	require.NoError(t, c.Transmit([]byte{0xad}))
	phase, err = c.Status()
	require.NoError(t, err)
	require.Equal(t, framer.PhasePreamble, phase)

	err = c.Transmit([]byte{0x01})
	require.ErrorIs(t, err, manchester.ErrWorking)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, CodeTransmit, cmdErr.Code)
	require.Equal(t, manchester.StatusWorking, cmdErr.Status)

	env.source.Step(27)
	require.Equal(t, "0000101"+"0110011001011001"+"0000", env.rec.String())
	phase, err = c.Status()
	require.NoError(t, err)
	require.Equal(t, framer.PhaseIdle, phase)
}

func TestServerTransmitFrame(t *testing.T) {
	env := newServerTestEnv(t)
	require.NoError(t, env.client.TransmitFrame([]byte{0x59}))
	env.source.Step(7 + 8 + 4)
	require.Equal(t, "0000101"+"01011001"+"0000", env.rec.String())
}

func TestServerTransmitTooLarge(t *testing.T) {
	env := newServerTestEnv(t)
	err := env.client.Transmit(make([]byte, transmitter.DefaultMaxPayload+1))
	require.ErrorIs(t, err, manchester.ErrSize)
	require.False(t, env.tx.Busy())
}

func TestServerAbort(t *testing.T) {
	env := newServerTestEnv(t)
	c := env.client

	aborted, err := c.Abort()
	require.NoError(t, err)
	require.False(t, aborted)

	require.NoError(t, c.Transmit([]byte{0xff}))
	env.source.Step(3)
	aborted, err = c.Abort()
	require.NoError(t, err)
	require.True(t, aborted)
	env.source.Step(1)
	require.Equal(t, "000"+"0", env.rec.String())
	require.False(t, env.tx.Busy())
}

func TestServerCodec(t *testing.T) {
	env := newServerTestEnv(t)
	c := env.client

	out, err := c.Encode([]byte{0xde, 0xad}, manchester.IEEE)
	require.NoError(t, err)
	require.Equal(t, []byte{0x59, 0x56, 0x66, 0x59}, out)

	out, err = c.Decode([]byte{0x59, 0x56, 0x66, 0x59}, manchester.IEEE)
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, out)

	testCases := []struct {
		name   string
		fn     func() ([]byte, error)
		expect error
	}{
		{"odd length", func() ([]byte, error) { return c.Decode([]byte{0x59}, manchester.IEEE) }, manchester.ErrSize},
		{"invalid symbol", func() ([]byte, error) { return c.Decode([]byte{0x00, 0x59}, manchester.Thomas) }, manchester.ErrInvalidEncode},
		{"bad standard", func() ([]byte, error) { return c.Encode([]byte{1}, manchester.Standard(7)) }, manchester.ErrStandard},
		{"reply too long", func() ([]byte, error) { return c.Encode(make([]byte, 64), manchester.IEEE) }, manchester.ErrSize},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.fn()
			require.ErrorIs(t, err, tc.expect)
			require.Nil(t, out)
		})
	}
}

func TestServerUnknownCommand(t *testing.T) {
	env := newServerTestEnv(t)
	reply, err := env.client.Do(0x0e, []byte{1, 2})
	require.NoError(t, err)
	require.True(t, reply.IsReply())
	require.Equal(t, manchester.StatusUnknown, reply.Status())
	require.Empty(t, reply.Data)
}

func TestClientNoReply(t *testing.T) {
	hostEnd, devEnd := net.Pipe()
	defer hostEnd.Close()
	defer devEnd.Close()
	go io.Copy(io.Discard, devEnd)

	c := NewClient(hostEnd)
	c.Timeout = 20 * time.Millisecond
	_, err := c.Status()
	require.ErrorIs(t, err, ErrNoReply)
	_, err = c.Abort()
	require.ErrorIs(t, err, ErrNoReply)
}

func TestClientPartialReply(t *testing.T) {
	hostEnd, devEnd := net.Pipe()
	defer hostEnd.Close()
	defer devEnd.Close()
	go func() {
		var p Parser
		buf := make([]byte, 1)
		for n := 0; ; {
			if _, err := devEnd.Read(buf); err != nil {
				return
			}
			req := p.Parse(buf[0])
			if req == nil {
				continue
			}
			switch n++; n {
			case 1:
				// silent
			case 2:
				// reply header announcing a data byte that never comes
				devEnd.Write([]byte{byte(req.Seq), ReplyFlag | 0x10})
			default:
				reply := &Packet{Seq: req.Seq, Code: ReplyFlag, Data: []byte{byte(framer.PhaseIdle)}}
				reply.WriteTo(devEnd)
			}
		}
	}()

	c := NewClient(hostEnd)
	c.Timeout = 20 * time.Millisecond
	_, err := c.Status()
	require.ErrorIs(t, err, ErrNoReply)
	c.Timeout = 200 * time.Millisecond
	_, err = c.Status()
	require.ErrorIs(t, err, ErrNoReply)
	require.Equal(t, 1, c.parser.Dropped())

	c.Timeout = 5 * time.Second
	phase, err := c.Status()
	require.NoError(t, err)
	require.Equal(t, framer.PhaseIdle, phase)
}

func TestClientClosed(t *testing.T) {
	hostEnd, devEnd := net.Pipe()
	devEnd.Close()
	c := NewClient(hostEnd)
	_, err := c.Status()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoReply)
	_, err = c.Status()
	require.Error(t, err)
	hostEnd.Close()
}

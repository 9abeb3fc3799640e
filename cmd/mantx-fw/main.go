//go:build tinygo && cortexm

// mantx-fw transmits a demo payload on the LED pin from the SysTick
// interrupt, followed by a frame carrying an invalid symbol and an odd
// length frame. Both broken frames are sent verbatim.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/manchester"
)

const bitPeriod = 104 * time.Microsecond

var (
	payload  = []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x90}
	badFrame = []byte{0x59, 0xFF}
	oddFrame = []byte{0x59, 0x56, 0x59}
	frameBuf [12]byte
)

func send(f *framer.Framer, frame []byte) {
	if _, ok := f.Start(frame); !ok {
		println("framer busy")
		return
	}
	for f.Busy() {
		time.Sleep(time.Millisecond)
	}
}

func main() {
	f, err := framer.New(line.NewPinSink(machine.LED), framer.DefaultConfig())
	if err != nil {
		println("framer:", err.Error())
		return
	}
	source := line.NewSysTickSource(bitPeriod)
	source.Attach(f)
	go func() {
		if err := source.Run(context.Background()); err != nil {
			println("systick:", err.Error())
		}
	}()

	for {
		n, err := manchester.EncodeTo(frameBuf[:], payload, manchester.IEEE)
		if err != nil {
			println("encode:", manchester.StatusOf(err).String())
		} else {
			send(f, frameBuf[:n])
		}
		time.Sleep(500 * time.Millisecond)
		for _, frame := range [][]byte{badFrame, oddFrame} {
			println("raw frame:", manchester.StatusOf(manchester.Validate(frame)).String())
			send(f, frame)
			time.Sleep(500 * time.Millisecond)
		}
	}
}

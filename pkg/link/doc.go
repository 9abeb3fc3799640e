// Package link provides the serial host link of a transmitter.
package link

// A host (e.g. a PC on the USB serial port) drives the transmitter with
// small request packets and gets one reply per request. Both directions
// use the same packet layout:
//
//	seq          1 byte, 0x01..0xef
//	code|len     bit 7: reply flag, bits 4-6: data length (7 = extended),
//	             bits 0-3: command code (request) or status (reply)
//	len          1 byte, only for extended length, at most 0x7f
//	data         len bytes
//
// A reply carries the seq of its request. Its status is a
// manchester.Status; StatusWorking reports the transmitter is busy,
// since Transmit only submits and returns.
//
// There's no checksum. Bytes which can't start a packet are skipped, and
// a partial packet is dropped when no byte arrives within the timeout.

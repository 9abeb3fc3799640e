// Package framer serializes Manchester frames onto an output line, one
// bit per tick.
package framer

// A transmission runs through three phases after Start:
//
//	Preamble  the configured synchronization pattern (0000101 by default)
//	Payload   every bit of the frame, most-significant first
//	Stop      a fixed number of Low bits
//
// and then returns to Idle. Tick is meant to run in interrupt context:
// each call does a constant amount of work, writes exactly one level
// while a transmission is in flight (none when Idle), and never
// allocates or blocks.
//
// Start and Tick may run concurrently from two execution contexts. The
// phase is an atomic word: Start claims the Framer with a
// compare-and-swap from Idle, prepares the cursors and only then
// publishes the first phase, so Tick never observes a half-initialized
// transmission. After Start, cursors are owned by Tick until it stores
// Idle again.
//
// The frame passed to Start is borrowed, not copied. It must stay valid
// and unmodified until the transmission completes.

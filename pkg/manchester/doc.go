// Package manchester provides Manchester line coding.
package manchester

// Every data bit is carried by a 2-bit symbol containing exactly one
// transition, so the encoded stream is self-clocking. Which transition
// represents 1 depends on the Standard:
//
//	IEEE:   1 -> 01, 0 -> 10
//	Thomas: 1 -> 10, 0 -> 01
//
// Symbols are packed most-significant first, 4 per byte, so an encoded
// frame is always exactly twice as long as its payload.
//
// Encoding cannot fail on content. Decoding rejects odd-length input
// and any 00 or 11 symbol, and never returns a partially decoded result.

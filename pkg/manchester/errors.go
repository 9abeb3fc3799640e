package manchester

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInvalidEncode indicates a 00 or 11 symbol in encoded data.
	ErrInvalidEncode = errors.New("invalid manchester symbol")
	// ErrStandard indicates an unrecognized Standard.
	ErrStandard = errors.New("unknown standard")
	// ErrSize indicates encoded data of odd length, or an output
	// buffer too small for the result.
	ErrSize = errors.New("invalid size")
)

// SymbolError reports the first invalid symbol found while decoding.
type SymbolError struct {
	// Offset is the index of the encoded byte holding the symbol.
	Offset int
	// Symbol is the offending 2-bit value, either 0b00 or 0b11.
	Symbol byte
}

// Error implements error.
func (e *SymbolError) Error() string {
	return fmt.Sprintf("%v %02b at byte %d", ErrInvalidEncode, e.Symbol, e.Offset)
}

// Is makes errors.Is(err, ErrInvalidEncode) true.
func (e *SymbolError) Is(target error) bool {
	return target == ErrInvalidEncode
}

func shortBuffer(need, have int) error {
	return fmt.Errorf("%w: need %d bytes, have %d: %w", ErrSize, need, have, io.ErrShortBuffer)
}

// Status is the numeric result taxonomy of codec operations, used where
// results cross a wire.
type Status byte

const (
	// StatusOK means success.
	StatusOK Status = iota
	// StatusInvalidEncode corresponds to ErrInvalidEncode.
	StatusInvalidEncode
	// StatusErrorStandard corresponds to ErrStandard.
	StatusErrorStandard
	// StatusErrorSize corresponds to ErrSize.
	StatusErrorSize
	// StatusWorking is reserved for operations still in progress.
	// The codec never produces it.
	StatusWorking

	// StatusUnknown reports an error outside the taxonomy.
	StatusUnknown Status = 0x0f
)

// StatusOf maps an error to its Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidEncode):
		return StatusInvalidEncode
	case errors.Is(err, ErrStandard):
		return StatusErrorStandard
	case errors.Is(err, ErrSize):
		return StatusErrorSize
	case errors.Is(err, ErrWorking):
		return StatusWorking
	}
	return StatusUnknown
}

// ErrWorking pairs with StatusWorking for layers that run the codec
// asynchronously.
var ErrWorking = errors.New("working")

// Err converts the Status back to its sentinel error, nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusInvalidEncode:
		return ErrInvalidEncode
	case StatusErrorStandard:
		return ErrStandard
	case StatusErrorSize:
		return ErrSize
	case StatusWorking:
		return ErrWorking
	}
	return fmt.Errorf("unknown status 0x%02x", byte(s))
}

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalidEncode:
		return "INVALID_ENCODE"
	case StatusErrorStandard:
		return "ERROR_STANDARD"
	case StatusErrorSize:
		return "ERROR_SIZE"
	case StatusWorking:
		return "WORKING"
	case StatusUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("STATUS(0x%02x)", byte(s))
}

package link

import (
	"errors"
	"fmt"

	"github.com/robotalks/mantx/pkg/manchester"
)

var (
	// ErrDataTooLong indicates packet data longer than MaxDataLen.
	ErrDataTooLong = errors.New("packet data too long")
	// ErrUnknownCommand indicates an unsupported request code.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNoReply indicates the reply didn't arrive in time.
	ErrNoReply = errors.New("no reply")
)

// CommandError wraps a non-OK status from a reply.
type CommandError struct {
	Code   byte
	Status manchester.Status
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command 0x%02x: %v", e.Code, e.Status)
}

// Unwrap makes errors.Is work with the codec errors.
func (e *CommandError) Unwrap() error {
	return e.Status.Err()
}

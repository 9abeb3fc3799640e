package framer

import "errors"

// ErrInvalidConfig indicates a malformed Config.
var ErrInvalidConfig = errors.New("invalid framer config")

package cipher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHexDigit reports a byte outside 0-9, a-f and A-F.
	ErrInvalidHexDigit = errors.New("invalid hex digit")

	// ErrOddLength reports hex input with an unpaired trailing nibble.
	ErrOddLength = errors.New("odd length hex input")

	// ErrLengthMismatch reports XOR operands of different lengths.
	ErrLengthMismatch = errors.New("operands must have equal length")

	// ErrUnknownOperation is returned when a pipeline names an operation the
	// registry does not know about.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNotReversible is returned when a pipeline or operation has no inverse.
	ErrNotReversible = errors.New("not reversible")
)

// HexError locates a strict hex decoding failure.
type HexError struct {
	Pos  int
	Byte byte
	Err  error
}

func (e *HexError) Error() string {
	if errors.Is(e.Err, ErrOddLength) {
		return fmt.Sprintf("%v: %d characters", e.Err, e.Pos)
	}
	return fmt.Sprintf("%v %q at position %d", e.Err, e.Byte, e.Pos)
}

func (e *HexError) Unwrap() error { return e.Err }

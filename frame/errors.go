package frame

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadTooLarge  = errors.New("frame: payload too large")
	ErrBadSync          = errors.New("frame: bad sync marker")
	ErrLengthMismatch   = errors.New("frame: length mismatch")
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
)

// ProtocolError describes why a candidate frame was rejected.
// It matches the package sentinels with errors.Is.
type ProtocolError struct {
	Err  error // one of ErrBadSync, ErrLengthMismatch, ErrChecksumMismatch
	Want int
	Got  int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: want 0x%02X, got 0x%02X", e.Err, e.Want, e.Got)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Reason returns a short label for e, used in logs and metrics.
func (e *ProtocolError) Reason() string {
	switch e.Err {
	case ErrBadSync:
		return "bad_sync"
	case ErrLengthMismatch:
		return "length_mismatch"
	case ErrChecksumMismatch:
		return "checksum_mismatch"
	}
	return "unknown"
}

// IsProtocolError returns true if err is, or wraps, a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

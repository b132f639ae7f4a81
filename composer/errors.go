package composer

import (
	"errors"
	"fmt"

	"github.com/solar3s/padlink/display"
)

var (
	ErrBufferFull      = errors.New("composer: buffer full")
	ErrUnknownTarget   = errors.New("composer: unrecognized frame id")
	ErrReadOnlyTarget  = errors.New("composer: read-only frame id")
	ErrValueOutOfRange = errors.New("composer: value out of range")
	ErrPayloadTooLarge = errors.New("composer: payload too large")
)

// Error is a composition failure. The buffer is left untouched so the
// operator can correct it; Code is what the outbound indicator shows.
type Error struct {
	Code   display.Status
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func compositionError(err error, detail string) *Error {
	code := display.StatusOutOfRange
	switch err {
	case ErrUnknownTarget:
		code = display.StatusUnknownOutbound
	case ErrReadOnlyTarget:
		code = display.StatusReadOnly
	}
	return &Error{Code: code, Err: err, Detail: detail}
}

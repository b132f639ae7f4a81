package bridge

import (
	"bytes"
	"errors"

	"github.com/solar3s/padlink/frame"
)

var ErrNeedMore = errors.New("bridge: incomplete frame")

var syncMarker = []byte{frame.SyncHi, frame.SyncLo}

// Reassembler rebuilds frames from a byte stream cut at arbitrary points.
// Write appends received bytes; Next returns frames in arrival order.
type Reassembler struct {
	buf []byte
}

func NewReassembler() *Reassembler {
	return &Reassembler{buf: make([]byte, 0, frame.MaxFrameLen+1)}
}

func (r *Reassembler) Write(b []byte) (int, error) {
	r.buf = append(r.buf, b...)
	return len(b), nil
}

// Buffered returns the number of bytes held for the next frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops any partial frame.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

func (r *Reassembler) discard(n int) {
	r.buf = append(r.buf[:0], r.buf[n:]...)
}

// Next returns the next complete frame, ErrNeedMore when the buffer holds
// none yet, or a *frame.ProtocolError for bytes it had to throw away.
// After a protocol error the stream resumes at the following sync marker,
// so callers loop until ErrNeedMore.
func (r *Reassembler) Next() (frame.Frame, error) {
	i := bytes.Index(r.buf, syncMarker)
	if i < 0 {
		n := len(r.buf)
		if n > 0 && r.buf[n-1] == frame.SyncHi {
			n-- // may be the first half of a marker
		}
		if n == 0 {
			return frame.Frame{}, ErrNeedMore
		}
		got := int(r.buf[0])
		r.discard(n)
		return frame.Frame{}, &frame.ProtocolError{Err: frame.ErrBadSync, Want: int(frame.Sync), Got: got}
	}
	if i > 0 {
		got := int(r.buf[0])
		r.discard(i)
		return frame.Frame{}, &frame.ProtocolError{Err: frame.ErrBadSync, Want: int(frame.Sync), Got: got}
	}

	if len(r.buf) < frame.HeaderLen {
		return frame.Frame{}, ErrNeedMore
	}
	length := r.buf[3]
	if int(length) < frame.Overhead {
		r.discard(len(syncMarker))
		return frame.Frame{}, &frame.ProtocolError{Err: frame.ErrLengthMismatch, Want: frame.Overhead, Got: int(length)}
	}
	n := frame.WireLen(length)
	if len(r.buf) < n {
		return frame.Frame{}, ErrNeedMore
	}

	f, err := frame.Decode(r.buf[:n])
	if err != nil {
		r.discard(len(syncMarker))
		return frame.Frame{}, err
	}
	r.discard(n)
	return f, nil
}

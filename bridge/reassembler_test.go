package bridge

import (
	"errors"
	"testing"

	"github.com/solar3s/padlink/frame"
)

func expect(t *testing.T, test, v, to string) {
	if v != to {
		t.Errorf("%s: expected \"%s\" to equal \"%s\".", test, v, to)
	}
}

func mustEncode(t *testing.T, id frame.Kind, payload string) []byte {
	b, err := frame.Encode(id, []byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// collect drains r, returning decoded payloads and the protocol errors met.
func collect(t *testing.T, r *Reassembler) (payloads []string, errs []error) {
	for i := 0; i < 100; i++ {
		f, err := r.Next()
		if err == ErrNeedMore {
			return payloads, errs
		}
		if err != nil {
			if !frame.IsProtocolError(err) {
				t.Fatalf("unexpected error type %T: %s", err, err)
			}
			errs = append(errs, err)
			continue
		}
		payloads = append(payloads, string(f.Payload))
	}
	t.Fatal("Next never returned ErrNeedMore")
	return
}

func TestReassemblerNeedMore(t *testing.T) {
	b := mustEncode(t, frame.Text, "hello")
	r := NewReassembler()

	// header only, then everything but the last byte
	for _, cut := range []int{2, frame.HeaderLen, len(b) - 1} {
		r.Reset()
		r.Write(b[:cut])
		if _, err := r.Next(); err != ErrNeedMore {
			t.Fatalf("cut %d: expected ErrNeedMore, got %v", cut, err)
		}
		r.Write(b[cut:])
		f, err := r.Next()
		if err != nil {
			t.Fatalf("cut %d: %s", cut, err)
		}
		expect(t, "payload", string(f.Payload), "hello")
		if r.Buffered() != 0 {
			t.Errorf("cut %d: expected empty buffer, %d bytes left", cut, r.Buffered())
		}
	}
}

func TestReassemblerByteByByte(t *testing.T) {
	b := mustEncode(t, frame.Numeric, "-1234")
	r := NewReassembler()
	for i := range b[:len(b)-1] {
		r.Write(b[i : i+1])
		if _, err := r.Next(); err != ErrNeedMore {
			t.Fatalf("byte %d: expected ErrNeedMore, got %v", i, err)
		}
	}
	r.Write(b[len(b)-1:])
	f, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	expect(t, "payload", string(f.Payload), "-1234")
	expect(t, "kind", f.ID.String(), frame.Numeric.String())
}

func TestReassemblerSeveralFrames(t *testing.T) {
	var stream []byte
	stream = append(stream, mustEncode(t, frame.Text, "a")...)
	stream = append(stream, mustEncode(t, frame.Numeric, "42")...)
	stream = append(stream, mustEncode(t, frame.ReadOnly, "")...)

	r := NewReassembler()
	r.Write(stream)
	payloads, errs := collect(t, r)
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
	if len(payloads) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(payloads))
	}
	expect(t, "frame 0", payloads[0], "a")
	expect(t, "frame 1", payloads[1], "42")
	expect(t, "frame 2", payloads[2], "")
}

func TestReassemblerResync(t *testing.T) {
	bad := mustEncode(t, frame.Text, "corrupt")
	bad[5] ^= 0xff
	good := mustEncode(t, frame.Text, "ok")

	var stream []byte
	stream = append(stream, 0x01, 0x02, frame.SyncHi)
	stream = append(stream, bad...)
	stream = append(stream, frame.SyncHi, frame.SyncLo, '1', 0x02) // length below overhead
	stream = append(stream, good...)

	r := NewReassembler()
	r.Write(stream)
	payloads, errs := collect(t, r)
	if len(payloads) != 1 {
		t.Fatalf("expected 1 frame, got %v", payloads)
	}
	expect(t, "recovered payload", payloads[0], "ok")

	var sawSync, sawChecksum, sawLength bool
	for _, err := range errs {
		sawSync = sawSync || errors.Is(err, frame.ErrBadSync)
		sawChecksum = sawChecksum || errors.Is(err, frame.ErrChecksumMismatch)
		sawLength = sawLength || errors.Is(err, frame.ErrLengthMismatch)
	}
	if !sawSync || !sawChecksum || !sawLength {
		t.Errorf("expected bad sync, checksum and length errors, got %v", errs)
	}
}

func TestReassemblerKeepsHalfMarker(t *testing.T) {
	b := mustEncode(t, frame.Text, "x")
	r := NewReassembler()
	r.Write([]byte{0x00, 0x11, b[0]})
	if _, err := r.Next(); !errors.Is(err, frame.ErrBadSync) {
		t.Fatalf("expected bad sync for leading noise, got %v", err)
	}
	if _, err := r.Next(); err != ErrNeedMore {
		t.Fatalf("expected ErrNeedMore, got %v", err)
	}
	if r.Buffered() != 1 {
		t.Fatalf("expected the sync high byte to be kept, %d bytes buffered", r.Buffered())
	}
	r.Write(b[1:])
	f, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	expect(t, "payload", string(f.Payload), "x")
}

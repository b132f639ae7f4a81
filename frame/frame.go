package frame

// Frame is one decoded message: its kind and payload.
// The wire bytes are built once by Encode, never patched in place.
type Frame struct {
	ID      Kind
	Payload []byte
}

// Len returns the value of the length byte for f.
func (f Frame) Len() int {
	return Overhead + len(f.Payload)
}

// MarshalBinary encodes f with the default MaxFrameLen.
func (f Frame) MarshalBinary() ([]byte, error) {
	return Encode(f.ID, f.Payload)
}

// UnmarshalBinary decodes one complete frame into f.
func (f *Frame) UnmarshalBinary(b []byte) error {
	d, err := Decode(b)
	if err != nil {
		return err
	}
	*f = d
	return nil
}

// Encode builds the wire bytes for (id, payload).
func Encode(id Kind, payload []byte) ([]byte, error) {
	return EncodeLimit(id, payload, MaxFrameLen)
}

// EncodeLimit is Encode with a link-specific maximum for the length field.
// maxLen is clamped to MaxFrameLen.
func EncodeLimit(id Kind, payload []byte, maxLen int) ([]byte, error) {
	if maxLen <= 0 || maxLen > MaxFrameLen {
		maxLen = MaxFrameLen
	}
	length := Overhead + len(payload)
	if length > maxLen {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, length+1)
	buf[0] = SyncHi
	buf[1] = SyncLo
	buf[2] = byte(id)
	buf[3] = byte(length)
	copy(buf[HeaderLen:], payload)
	buf[length-1] = checksumAdd(byte(id), byte(length), payload)
	buf[length] = checksumXor(byte(id), byte(length), payload)
	return buf, nil
}

// Decode validates one complete candidate frame and returns it.
// The returned payload does not alias b.
func Decode(b []byte) (Frame, error) {
	if len(b) < 2 || b[0] != SyncHi || b[1] != SyncLo {
		got := 0
		if len(b) >= 2 {
			got = int(b[0])<<8 | int(b[1])
		}
		return Frame{}, &ProtocolError{Err: ErrBadSync, Want: int(Sync), Got: got}
	}
	if len(b) < HeaderLen+TrailerLen {
		return Frame{}, &ProtocolError{Err: ErrLengthMismatch, Want: HeaderLen + TrailerLen, Got: len(b)}
	}

	length := int(b[3])
	if length < Overhead || length+1 != len(b) {
		return Frame{}, &ProtocolError{Err: ErrLengthMismatch, Want: length + 1, Got: len(b)}
	}

	id := b[2]
	payload := b[HeaderLen : length-1]
	if add := checksumAdd(id, b[3], payload); add != b[length-1] {
		return Frame{}, &ProtocolError{Err: ErrChecksumMismatch, Want: int(add), Got: int(b[length-1])}
	}
	if x := checksumXor(id, b[3], payload); x != b[length] {
		return Frame{}, &ProtocolError{Err: ErrChecksumMismatch, Want: int(x), Got: int(b[length])}
	}

	return Frame{
		ID:      Kind(id),
		Payload: append([]byte(nil), payload...),
	}, nil
}

// WireLen returns the number of bytes a frame occupies on the wire, given the
// value of its length byte.
func WireLen(length byte) int {
	return int(length) + 1
}

package frame

import "fmt"

// Wire layout:
//
//	[sync_hi, sync_lo, id, length, payload..., checksum_add, checksum_xor]
//
// length counts every byte up to and including checksum_add, so a complete
// frame on the wire is length+1 bytes long.

const (
	Sync   uint16 = 0xAA55
	SyncHi byte   = byte(Sync >> 8)
	SyncLo byte   = byte(Sync & 0xff)

	// Seed is folded into both checksums.
	Seed byte = 0x5A
)

const (
	HeaderLen  = 4 // sync_hi, sync_lo, id, length
	TrailerLen = 2 // checksum_add, checksum_xor

	// Overhead is length - payload_len.
	Overhead = HeaderLen + 1

	// MaxFrameLen is the largest value the length byte can carry.
	MaxFrameLen = 0xff
)

// Kind is the frame id byte, selecting message semantics.
type Kind byte

const (
	Numeric  Kind = '0'
	Text     Kind = '1'
	ReadOnly Kind = '2'
)

// Known reports whether k is one of the recognized frame ids.
func (k Kind) Known() bool {
	switch k {
	case Numeric, Text, ReadOnly:
		return true
	}
	return false
}

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case ReadOnly:
		return "read-only"
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(k))
}

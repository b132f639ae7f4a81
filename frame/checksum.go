package frame

// Checksums cover id, length and payload, both seeded with Seed.
// The sync marker is not part of either sum.

// checksumAdd returns (Seed + id + length + sum(payload)) mod 256.
func checksumAdd(id, length byte, payload []byte) byte {
	sum := Seed + id + length
	for _, b := range payload {
		sum += b
	}
	return sum
}

// checksumXor returns Seed ^ id ^ length ^ xor(payload).
func checksumXor(id, length byte, payload []byte) byte {
	x := Seed ^ id ^ length
	for _, b := range payload {
		x ^= b
	}
	return x
}

package abitext

import "encoding/binary"

// EncodeString produces a well-formed blob for s in the layout Decode
// expects: offset word, length word, payload padded to a 32-byte multiple.
// The result is padded up to the decoder's minimum structural size, so
// EncodeString output always round-trips. Intended for fixtures and for
// integrations that need to fabricate responses locally.
func EncodeString(s string) []byte {
	payload := []byte(s)

	padded := (len(payload) + 31) / 32 * 32
	if headerSize+padded < minBlobSize {
		padded = minBlobSize - headerSize
	}

	blob := make([]byte, headerSize+padded)
	binary.BigEndian.PutUint64(blob[24:32], 32) // offset to the length word
	binary.BigEndian.PutUint64(blob[56:64], uint64(len(payload)))
	copy(blob[headerSize:], payload)
	return blob
}

// Package hash provides the kernel's content-addressing primitive: a fixed
// 32-byte collision-resistant hash over arbitrary bytes, plus the Merkle tree
// built over such hashes that underpins artifact and graph identity.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Size is the length in bytes of a Hash.
const Size = 32

// Hash is a 32-byte content hash. The zero value denotes "empty/uninitialized".
// Compute is plain SHA-256 with no domain-separation byte, so it returns the
// zero value only for input whose SHA-256 digest is all zero bytes.
type Hash [Size]byte

// Zero is the distinguished empty/uninitialized hash.
var Zero Hash

// Compute returns the SHA-256 digest of data as a Hash. Two distinct byte
// slices with the same SHA-256 digest are indistinguishable by design — the
// hash function is used as a black box, per the ambient assumption that
// cryptographic primitives are not reinvented here.
func Compute(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// Compare returns -1, 0, or 1 as h is less than, equal to, or greater than o,
// using big-endian byte order (i.e. the order hex strings sort in).
func (h Hash) Compare(o Hash) int {
	return bytes.Compare(h[:], o[:])
}

// Less reports whether h orders before o. Useful as a sort.Slice comparator.
func (h Hash) Less(o Hash) bool {
	return h.Compare(o) < 0
}

// Hex returns the lowercase hex text form of h.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements fmt.Stringer, returning the same form as Hex.
func (h Hash) String() string {
	return h.Hex()
}

// Short returns the first 4 bytes of h as hex (8 characters), for use in log
// lines and diagnostics where the full 64-character digest is unnecessary.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:4])
}

// FromHex parses a lowercase or uppercase hex string into a Hash.
func FromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hash: decode hex: %w", err)
	}
	if len(b) != Size {
		return h, fmt.Errorf("hash: expected %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// FromBytes copies a raw 32-byte slice into a Hash.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, fmt.Errorf("hash: expected %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MarshalText implements encoding.TextMarshaler, producing the hex form.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the hex form.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// LogValue implements slog.LogValuer so structured logs carry the short form
// instead of the full 64-character digest.
func (h Hash) LogValue() slog.Value {
	return slog.StringValue(h.Short())
}

package content

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the length of a v1 info-hash.
const HashSize = 20

// Hash identifies a download. Equality is byte-wise.
type Hash [HashSize]byte

func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashSize)
	}

	copy(h[:], b)
	return h, nil
}

// ParseHash decodes a hex info-hash, case-insensitively.
func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash %q: %w", s, err)
	}

	return HashFromBytes(b)
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short is the first 8 hex characters, for log lines.
func (h Hash) Short() string {
	return h.String()[:8]
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

package blob

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strconv"
	"strings"
)

// base32Enc uses base32 "Extended Hex" alphabet (0-9A-V) which is ASCII-sorted
// and case-insensitive safe for filesystems.
var base32Enc = base32.HexEncoding.WithPadding(base32.NoPadding)

const hashPrefix = "sha256:"

// Hash identifies the exact bytes of a document: "sha256:<base32>-<size>".
// Derived analysis fields are bound to the hash they were computed against;
// a bound value whose hash no longer equals the document's current Hash must
// be treated as absent.
type Hash string

// HashBytes computes the content hash for a byte slice.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(fmt.Sprintf("%s%s-%d", hashPrefix, base32Enc.EncodeToString(sum[:]), len(data)))
}

// Validate checks the structural form of a hash.
func (h Hash) Validate() error {
	s := string(h)
	if !strings.HasPrefix(s, hashPrefix) {
		return fmt.Errorf("invalid hash %q: missing prefix", h)
	}
	rest := s[len(hashPrefix):]
	digest, size, ok := strings.Cut(rest, "-")
	if !ok || digest == "" || size == "" {
		return fmt.Errorf("invalid hash %q", h)
	}
	if _, err := base32Enc.DecodeString(digest); err != nil {
		return fmt.Errorf("invalid hash %q: %w", h, err)
	}
	if n, err := strconv.ParseInt(size, 10, 64); err != nil || n < 0 {
		return fmt.Errorf("invalid hash %q: bad size", h)
	}
	return nil
}

// IsZero returns true for the empty hash.
func (h Hash) IsZero() bool {
	return h == ""
}

// Size returns the byte count recorded in the hash, or -1 if malformed.
func (h Hash) Size() int64 {
	_, sizeStr, ok := strings.Cut(string(h), "-")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Package docid defines the opaque document identifier used by the library.
//
// A document id is a ksid token followed by a dot and a lowercase file
// extension, e.g. "5CK2P0QJ3FG.png". The token is random and unique; the
// extension records the stored representation and never changes for the
// lifetime of the document. Ids arriving from a request boundary must be
// validated with [Parse] before any filesystem path is derived from them.
package docid

import (
	"fmt"
	"strings"

	"github.com/maruel/ksid"
)

// maxExtLen bounds the extension so an id can never smuggle a long path
// component past validation.
const maxExtLen = 8

// ID is a validated document identifier.
type ID string

// New generates a fresh document id with the given extension.
// The extension must already be lowercase alphanumeric; callers derive it
// from the sniffed content type, never from user input.
func New(ext string) (ID, error) {
	if !validExt(ext) {
		return "", fmt.Errorf("invalid extension %q", ext)
	}
	return ID(ksid.NewID().String() + "." + ext), nil
}

// Parse validates the structural form of a document id.
// It rejects anything that is not "<ksid token>.<lowercase ext>", including
// path separators, uppercase extensions and empty parts.
func Parse(s string) (ID, error) {
	token, ext, ok := strings.Cut(s, ".")
	if !ok || token == "" || ext == "" {
		return "", fmt.Errorf("malformed document id %q", s)
	}
	if strings.ContainsAny(s, "/\\") || strings.Contains(ext, ".") {
		return "", fmt.Errorf("malformed document id %q", s)
	}
	if _, err := ksid.Parse(token); err != nil {
		return "", fmt.Errorf("malformed document id %q: %w", s, err)
	}
	if !validExt(ext) {
		return "", fmt.Errorf("malformed document id %q", s)
	}
	return ID(s), nil
}

// String returns the id as a plain string.
func (id ID) String() string {
	return string(id)
}

// Ext returns the extension part of the id.
func (id ID) Ext() string {
	if i := strings.LastIndexByte(string(id), '.'); i >= 0 {
		return string(id)[i+1:]
	}
	return ""
}

// IsZero returns true for the empty id.
func (id ID) IsZero() bool {
	return id == ""
}

func validExt(ext string) bool {
	if len(ext) == 0 || len(ext) > maxExtLen {
		return false
	}
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

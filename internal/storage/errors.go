package storage

import (
	"errors"
	"fmt"

	"github.com/graphdesk/graphdesk/internal/models"
)

// Sentinel errors of the storage layer. The HTTP layer maps these to the
// coded error taxonomy.
var (
	// ErrNotFound means a document or folder is genuinely missing: absent
	// from the index, or its bytes gone from both live and trash areas.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference means a structurally malformed id reached a
	// boundary. The filesystem layer never sees such ids.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrFolderNotEmpty refuses deletion of a folder that still holds
	// documents or subfolders.
	ErrFolderNotEmpty = errors.New("folder not empty")
)

// ConflictError reports an upload batch aborted by unresolved name
// collisions. No mutation was performed for any file in the batch.
type ConflictError struct {
	Conflicts []Conflict
}

// Conflict names one colliding pair: the incoming file by name, the
// existing documents sharing its normalized name but differing in content.
type Conflict struct {
	FileName string             `json:"fileName"`
	Existing []*models.Document `json:"existing"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d file(s) collide with existing documents", len(e.Conflicts))
}

// FileError reports a per-file validation failure inside an upload batch.
// Siblings in the same batch are unaffected.
type FileError struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"` // SIZE_LIMIT_EXCEEDED or UNSUPPORTED_TYPE
	Message  string `json:"message"`
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.FileName, e.Message)
}

// SizeLimitError reports a request exceeding an aggregate ceiling.
type SizeLimitError struct {
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("batch exceeds the %d byte limit", e.Limit)
}

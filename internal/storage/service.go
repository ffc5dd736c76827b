// Package storage implements the document library engine: upload and
// replace of content-addressed files, soft delete with reference-aware
// garbage collection, and the consistency machinery keeping graphs that
// embed document snapshots in line with the authoritative index.
package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/graphdesk/graphdesk/internal/blob"
	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/maruel/ksid"
)

// Service is the engine facade. One instance serves every library under the
// data directory; per-library serialization lives in the index store.
type Service struct {
	cfg *Config
	idx *libindex.Store
	now func() time.Time
}

// NewService creates the engine rooted at dataDir.
func NewService(cfg *Config, dataDir string) (*Service, error) {
	idx, err := libindex.NewStore(filepath.Join(dataDir, "libraries"))
	if err != nil {
		return nil, fmt.Errorf("failed to open library store: %w", err)
	}
	return &Service{cfg: cfg, idx: idx, now: time.Now}, nil
}

// Close releases the underlying index store.
func (s *Service) Close() error {
	return s.idx.Close()
}

// Config returns the active configuration.
func (s *Service) Config() *Config {
	return s.cfg
}

// blobs returns the blob store of one library. Stateless, cheap to build
// per call.
func (s *Service) blobs(libID string) *blob.Store {
	return blob.NewStore(s.idx.FilesDir(libID))
}

// graphs returns the graph store of one library.
func (s *Service) graphs(libID string) *GraphStore {
	return &GraphStore{dir: filepath.Join(s.idx.Dir(libID), "graphs")}
}

// ValidLibID rejects library ids that could escape the data directory.
// Library ids are caller-chosen names, so the rule is a conservative
// allowlist rather than the stricter document id format.
func ValidLibID(libID string) bool {
	if libID == "" || len(libID) > 64 {
		return false
	}
	for _, r := range libID {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ParseDocID validates a document id from a request boundary.
func ParseDocID(raw string) (docid.ID, error) {
	id, err := docid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return id, nil
}

// normalizeName trims and collapses whitespace in a display name.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// newFolderID mints an id for a folder or graph. Same token family as
// document ids, without the extension suffix.
func newFolderID() string {
	return ksid.NewID().String()
}

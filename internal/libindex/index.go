// Package libindex persists the authoritative record of a library: its
// folders and documents, plus the derived usage index mapping documents to
// the graph nodes referencing them.
//
// Each library owns two files, index.json and usage.json. Read-modify-write
// sequences against a file are serialized by a per-library mutex in [Store];
// there is no cross-process coordination, the engine assumes a single writer
// process per index file.
package libindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/models"
)

// CurrentVersion is the index schema version written by this build.
// Version 1 predates cached analysis; version 2 added the analysis
// sub-record and hash binding.
const CurrentVersion = 2

// Index is the in-memory form of one library's index.json.
type Index struct {
	Version   int                `json:"version"`
	Folders   []*models.Folder   `json:"folders"`
	Documents []*models.Document `json:"documents"`
}

// indexV1 is the historical schema without analysis fields. It is decoded
// explicitly and upgraded in one place instead of scattering optional-field
// checks through business logic.
type indexV1 struct {
	Version   int              `json:"version"`
	Folders   []*models.Folder `json:"folders"`
	Documents []struct {
		ID        docid.ID        `json:"id"`
		Name      string          `json:"name"`
		FolderID  string          `json:"folderId,omitempty"`
		Kind      models.DocKind  `json:"kind"`
		Mime      string          `json:"mime"`
		SizeBytes int64           `json:"sizeBytes"`
		FileHash  json.RawMessage `json:"fileHash,omitempty"`
		CreatedAt json.RawMessage `json:"createdAt,omitempty"`
		UpdatedAt json.RawMessage `json:"updatedAt,omitempty"`
		TrashedAt json.RawMessage `json:"trashedAt,omitempty"`
	} `json:"documents"`
}

// decodeIndex parses raw index bytes, applying the v1 upgrade when needed.
func decodeIndex(data []byte) (*Index, error) {
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse index header: %w", err)
	}
	switch header.Version {
	case 0, 1:
		var v1 indexV1
		if err := json.Unmarshal(data, &v1); err != nil {
			return nil, fmt.Errorf("failed to parse v1 index: %w", err)
		}
		return upgradeV1(&v1)
	case CurrentVersion:
		idx := &Index{}
		if err := json.Unmarshal(data, idx); err != nil {
			return nil, fmt.Errorf("failed to parse index: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown index version %d", header.Version)
	}
}

// upgradeV1 converts a v1 index to the current schema. Analysis starts
// empty; it is recomputed lazily on demand.
func upgradeV1(v1 *indexV1) (*Index, error) {
	idx := &Index{Version: CurrentVersion, Folders: v1.Folders}
	for _, d := range v1.Documents {
		doc := &models.Document{
			ID:        d.ID,
			Name:      d.Name,
			FolderID:  d.FolderID,
			Kind:      d.Kind,
			Mime:      d.Mime,
			SizeBytes: d.SizeBytes,
		}
		// Timestamps and hash survive when they decode cleanly; a legacy
		// record with an unreadable hash keeps an empty one, which the
		// upload pipeline treats conservatively as unprovable identity.
		_ = json.Unmarshal(d.FileHash, &doc.FileHash)
		_ = json.Unmarshal(d.CreatedAt, &doc.CreatedAt)
		_ = json.Unmarshal(d.UpdatedAt, &doc.UpdatedAt)
		_ = json.Unmarshal(d.TrashedAt, &doc.TrashedAt)
		idx.Documents = append(idx.Documents, doc)
	}
	return idx, nil
}

// loadIndex reads a library index from path.
//
// A missing file yields an empty index. An unreadable or corrupt file also
// yields an empty index, but is logged loudly: this availability-over-
// durability tradeoff risks losing the record of orphaned files, and an
// operator should know about it.
func loadIndex(path string) *Index {
	empty := &Index{Version: CurrentVersion}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("library index unreadable, treating as empty; orphaned files may go untracked", "path", path, "err", err)
		}
		return empty
	}
	idx, err := decodeIndex(data)
	if err != nil {
		slog.Error("library index corrupt, treating as empty; orphaned files may go untracked", "path", path, "err", err)
		return empty
	}
	return idx
}

// saveIndex writes the index atomically via a temp file rename.
func saveIndex(path string, idx *Index) error {
	idx.Version = CurrentVersion
	return writeJSONFile(path, idx)
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	data = append(data, '\n')
	f, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write index: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Join(fmt.Errorf("failed to rename index into place: %w", err), os.Remove(tmpPath))
	}
	return nil
}

// Document returns the record for id, or nil.
func (idx *Index) Document(id docid.ID) *models.Document {
	for _, d := range idx.Documents {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// RemoveDocument deletes the record for id. Returns true if it was present.
func (idx *Index) RemoveDocument(id docid.ID) bool {
	for i, d := range idx.Documents {
		if d.ID == id {
			idx.Documents = slices.Delete(idx.Documents, i, i+1)
			return true
		}
	}
	return false
}

// Folder returns the folder with id, or nil. The empty id is the root and
// always resolves to nil.
func (idx *Index) Folder(id string) *models.Folder {
	for _, f := range idx.Folders {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// RemoveFolder deletes the folder record for id. Returns true if present.
func (idx *Index) RemoveFolder(id string) bool {
	for i, f := range idx.Folders {
		if f.ID == id {
			idx.Folders = slices.Delete(idx.Folders, i, i+1)
			return true
		}
	}
	return false
}

// FolderEmpty reports whether the folder holds no documents (live or
// trashed) and no subfolders.
func (idx *Index) FolderEmpty(id string) bool {
	for _, d := range idx.Documents {
		if d.FolderID == id {
			return false
		}
	}
	for _, f := range idx.Folders {
		if f.ParentID == id {
			return false
		}
	}
	return true
}

// DocumentsByNameKey returns the live documents in folderID whose
// case-folded normalized name equals nameKey.
func (idx *Index) DocumentsByNameKey(folderID, nameKey string) []*models.Document {
	var out []*models.Document
	for _, d := range idx.Documents {
		if d.FolderID == folderID && !d.Trashed() && NameKey(d.Name) == nameKey {
			out = append(out, d)
		}
	}
	return out
}

// NameKey computes the case-folded collision key for a display name.
// Names are a user-experience concept, never a storage key; two uploads
// sharing a key are resolved explicitly during upload classification.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

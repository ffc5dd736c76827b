// Package blob stores document bytes on disk, addressed by document id.
//
// Each library has two mutually exclusive areas, live and trash. A document
// id resolves to at most one physical file at a time; moving between areas is
// a rename so it is near-atomic on the same filesystem. Missing files on
// remove, trash and restore are treated as idempotent success: external tools
// or a concurrent request may legitimately have raced on the same path.
package blob

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/graphdesk/graphdesk/internal/docid"
)

const (
	liveDirName  = "live"
	trashDirName = "trash"
	tmpDirName   = "tmp"
)

// ErrNotFound reports a blob absent from both the live and trash areas.
var ErrNotFound = errors.New("blob not found")

// Store manages the files of a single library.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. Directories are created lazily on
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// LivePath returns the absolute path of the live copy for id.
// The id must already be validated; this never interpolates raw caller input.
func (s *Store) LivePath(id docid.ID) string {
	return filepath.Join(s.dir, liveDirName, id.String())
}

// TrashPath returns the absolute path of the trashed copy for id.
func (s *Store) TrashPath(id docid.ID) string {
	return filepath.Join(s.dir, trashDirName, id.String())
}

// WriteLive writes data as the live copy of id.
// Data is staged in a temp file and renamed into place so a crash mid-write
// never leaves a torn live file. Returns the content hash of the bytes.
func (s *Store) WriteLive(id docid.ID, data []byte) (Hash, error) {
	tmpDir := filepath.Join(s.dir, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create tmp directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, liveDirName), 0o750); err != nil {
		return "", fmt.Errorf("failed to create live directory: %w", err)
	}

	f, err := os.CreateTemp(tmpDir, "*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		return "", errors.Join(fmt.Errorf("failed to write blob: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return "", errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, s.LivePath(id)); err != nil {
		return "", errors.Join(fmt.Errorf("failed to rename blob to live location: %w", err), os.Remove(tmpPath))
	}
	return HashBytes(data), nil
}

// ReadLive reads the live copy of id. Returns ErrNotFound if absent.
func (s *Store) ReadLive(id docid.ID) ([]byte, error) {
	data, err := os.ReadFile(s.LivePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// ReadTrash reads the trashed copy of id. Returns ErrNotFound if absent.
func (s *Store) ReadTrash(id docid.ID) ([]byte, error) {
	data, err := os.ReadFile(s.TrashPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read trashed blob: %w", err)
	}
	return data, nil
}

// InLive reports whether a live copy of id exists.
func (s *Store) InLive(id docid.ID) bool {
	_, err := os.Stat(s.LivePath(id))
	return err == nil
}

// InTrash reports whether a trashed copy of id exists.
func (s *Store) InTrash(id docid.ID) bool {
	_, err := os.Stat(s.TrashPath(id))
	return err == nil
}

// Trash moves the live copy of id into the trash area.
// A missing live copy is a no-op success.
func (s *Store) Trash(id docid.ID) error {
	if err := os.MkdirAll(filepath.Join(s.dir, trashDirName), 0o750); err != nil {
		return fmt.Errorf("failed to create trash directory: %w", err)
	}
	if err := os.Rename(s.LivePath(id), s.TrashPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to move blob to trash: %w", err)
	}
	return nil
}

// Restore moves the trashed copy of id back to the live area.
// A missing trashed copy is a no-op success.
func (s *Store) Restore(id docid.ID) error {
	if err := os.MkdirAll(filepath.Join(s.dir, liveDirName), 0o750); err != nil {
		return fmt.Errorf("failed to create live directory: %w", err)
	}
	if err := os.Rename(s.TrashPath(id), s.LivePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to restore blob: %w", err)
	}
	return nil
}

// RemoveLive permanently deletes the live copy of id. Idempotent.
func (s *Store) RemoveLive(id docid.ID) error {
	if err := os.Remove(s.LivePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// RemoveTrash permanently deletes the trashed copy of id. Idempotent.
func (s *Store) RemoveTrash(id docid.ID) error {
	if err := os.Remove(s.TrashPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete trashed blob: %w", err)
	}
	return nil
}

// TrashItem describes one file currently in the trash area.
type TrashItem struct {
	ID      docid.ID
	Size    int64
	ModTime time.Time
}

// ListTrash enumerates the trash area. Entries whose name does not parse as
// a document id are skipped; they were not put there by this store.
func (s *Store) ListTrash() ([]TrashItem, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, trashDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trash directory: %w", err)
	}
	var items []TrashItem
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, err := docid.Parse(entry.Name())
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, TrashItem{ID: id, Size: info.Size(), ModTime: info.ModTime()})
	}
	return items, nil
}

// ListLive enumerates document ids present in the live area.
func (s *Store) ListLive() ([]docid.ID, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, liveDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read live directory: %w", err)
	}
	var ids []docid.ID
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, err := docid.Parse(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CleanupTmp removes stale staging files left behind by a crash.
func (s *Store) CleanupTmp() error {
	dir := filepath.Join(s.dir, tmpDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read tmp directory: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tmp") {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to remove temp file %s: %w", entry.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

package libindex

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrNoChange may be returned by a Mutate callback to commit nothing: the
// store skips the save, keeps the cache and reports success.
var ErrNoChange = errors.New("no change")

const (
	indexFileName = "index.json"
	usageFileName = "usage.json"
)

// library holds the cached state and write locks of one library.
// Each index file gets its own mutex so an operation may sequence an index
// mutation and a usage lookup without self-deadlock.
type library struct {
	muIndex sync.Mutex
	index   *Index // nil until loaded
	muUsage sync.Mutex
	usage   *Usage // nil until loaded
}

// Store manages every library's index and usage files under one root
// directory, layout <root>/<libID>/{index.json,usage.json,files/...}.
//
// Each library has its own mutex serializing read-modify-write sequences
// against its two index files. A filesystem watcher drops the in-memory
// cache of a library whose files changed on disk behind the store's back,
// so out-of-band edits are picked up on the next access.
type Store struct {
	rootDir string
	watcher *fsnotify.Watcher

	mu   sync.Mutex
	libs map[string]*library
}

// NewStore creates a store rooted at rootDir.
func NewStore(rootDir string) (*Store, error) {
	if err := os.MkdirAll(rootDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create libraries directory: %w", err)
	}
	s := &Store{rootDir: rootDir, libs: map[string]*library{}}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// The watcher is an optimization; run without it.
		slog.Warn("index watcher unavailable, external edits require restart", "err", err)
	} else {
		s.watcher = watcher
		go s.watchLoop()
	}
	return s, nil
}

// Close releases the filesystem watcher.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Dir returns a library's directory. libID must be validated by the caller
// before it reaches the store.
func (s *Store) Dir(libID string) string {
	return filepath.Join(s.rootDir, libID)
}

// FilesDir returns the blob area directory of a library.
func (s *Store) FilesDir(libID string) string {
	return filepath.Join(s.rootDir, libID, "files")
}

func (s *Store) indexPath(libID string) string {
	return filepath.Join(s.rootDir, libID, indexFileName)
}

func (s *Store) usagePath(libID string) string {
	return filepath.Join(s.rootDir, libID, usageFileName)
}

// lib returns the state holder for libID, creating it (and registering the
// directory with the watcher) on first touch.
func (s *Store) lib(libID string) *library {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.libs[libID]
	if !ok {
		l = &library{}
		s.libs[libID] = l
		if s.watcher != nil {
			dir := s.Dir(libID)
			if err := os.MkdirAll(dir, 0o750); err == nil {
				if err := s.watcher.Add(dir); err != nil {
					slog.Warn("failed to watch library directory", "dir", dir, "err", err)
				}
			}
		}
	}
	return l
}

// watchLoop invalidates cached state when index files change on disk.
// Saves performed through the store also trigger events; re-reading our own
// write on next access is wasted work but never incorrect, so no attempt is
// made to distinguish the writer.
func (s *Store) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != indexFileName && name != usageFileName {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			libID := filepath.Base(filepath.Dir(event.Name))
			s.invalidate(libID, name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("index watcher error", "err", err)
		}
	}
}

func (s *Store) invalidate(libID, fileName string) {
	s.mu.Lock()
	l, ok := s.libs[libID]
	s.mu.Unlock()
	if !ok {
		return
	}
	switch fileName {
	case indexFileName:
		l.muIndex.Lock()
		l.index = nil
		l.muIndex.Unlock()
	case usageFileName:
		l.muUsage.Lock()
		l.usage = nil
		l.muUsage.Unlock()
	}
}

// ViewIndex runs fn with a read-only view of the library index, under the
// index lock. fn must not retain references past its return.
func (s *Store) ViewIndex(libID string, fn func(*Index) error) error {
	l := s.lib(libID)
	l.muIndex.Lock()
	defer l.muIndex.Unlock()
	if l.index == nil {
		l.index = loadIndex(s.indexPath(libID))
	}
	return fn(l.index)
}

// MutateIndex runs fn against the library index under the index lock and
// persists the result. If fn errors, nothing is written and the cache is
// dropped so partial in-memory edits cannot leak.
func (s *Store) MutateIndex(libID string, fn func(*Index) error) error {
	l := s.lib(libID)
	l.muIndex.Lock()
	defer l.muIndex.Unlock()
	if l.index == nil {
		l.index = loadIndex(s.indexPath(libID))
	}
	if err := fn(l.index); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		l.index = nil
		return err
	}
	if err := saveIndex(s.indexPath(libID), l.index); err != nil {
		l.index = nil
		return err
	}
	return nil
}

// ViewUsage runs fn with a read-only view of the usage index.
func (s *Store) ViewUsage(libID string, fn func(*Usage) error) error {
	l := s.lib(libID)
	l.muUsage.Lock()
	defer l.muUsage.Unlock()
	if l.usage == nil {
		l.usage = loadUsage(s.usagePath(libID))
	}
	return fn(l.usage)
}

// MutateUsage runs fn against the usage index under its lock and persists
// the result.
func (s *Store) MutateUsage(libID string, fn func(*Usage) error) error {
	l := s.lib(libID)
	l.muUsage.Lock()
	defer l.muUsage.Unlock()
	if l.usage == nil {
		l.usage = loadUsage(s.usagePath(libID))
	}
	if err := fn(l.usage); err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		l.usage = nil
		return err
	}
	if err := saveUsage(s.usagePath(libID), l.usage); err != nil {
		l.usage = nil
		return err
	}
	return nil
}

package blob

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/graphdesk/graphdesk/internal/docid"
)

func mustID(t *testing.T, ext string) docid.ID {
	t.Helper()
	id, err := docid.New(ext)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestHashBytes(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := HashBytes([]byte("hello, world!"))
		b := HashBytes([]byte("hello, world!"))
		if a != b {
			t.Errorf("HashBytes not deterministic: %q != %q", a, b)
		}
		if a == HashBytes([]byte("hello, world?")) {
			t.Error("distinct content produced equal hashes")
		}
	})

	t.Run("format", func(t *testing.T) {
		h := HashBytes([]byte("hello, world!"))
		if err := h.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
		if h.Size() != 13 {
			t.Errorf("Size() = %d, want 13", h.Size())
		}
	})

	t.Run("validate rejects garbage", func(t *testing.T) {
		for _, s := range []string{"", "sha256:", "md5:ABC-3", "sha256:ABC", "sha256:!!-3", "sha256:ABCD--1"} {
			if err := Hash(s).Validate(); err == nil {
				t.Errorf("Validate(%q) expected error", s)
			}
		}
	})
}

func TestStore(t *testing.T) {
	t.Run("write and read live", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "files"))
		id := mustID(t, "txt")
		data := []byte("report contents")

		h, err := store.WriteLive(id, data)
		if err != nil {
			t.Fatalf("WriteLive() error = %v", err)
		}
		if h != HashBytes(data) {
			t.Errorf("WriteLive() hash = %q, want %q", h, HashBytes(data))
		}

		got, err := store.ReadLive(id)
		if err != nil {
			t.Fatalf("ReadLive() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("ReadLive() = %q, want %q", got, data)
		}
	})

	t.Run("read missing", func(t *testing.T) {
		store := NewStore(t.TempDir())
		if _, err := store.ReadLive(mustID(t, "txt")); !errors.Is(err, ErrNotFound) {
			t.Errorf("ReadLive() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("trash and restore round trip", func(t *testing.T) {
		store := NewStore(t.TempDir())
		id := mustID(t, "png")
		data := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
		if _, err := store.WriteLive(id, data); err != nil {
			t.Fatal(err)
		}

		if err := store.Trash(id); err != nil {
			t.Fatalf("Trash() error = %v", err)
		}
		if store.InLive(id) {
			t.Error("live copy still present after Trash()")
		}
		if !store.InTrash(id) {
			t.Error("trash copy missing after Trash()")
		}

		if err := store.Restore(id); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		got, err := store.ReadLive(id)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("restored bytes = %v, want %v", got, data)
		}
		if store.InTrash(id) {
			t.Error("trash copy still present after Restore()")
		}
	})

	t.Run("idempotent operations on missing files", func(t *testing.T) {
		store := NewStore(t.TempDir())
		id := mustID(t, "txt")
		if err := store.Trash(id); err != nil {
			t.Errorf("Trash() on missing = %v, want nil", err)
		}
		if err := store.Restore(id); err != nil {
			t.Errorf("Restore() on missing = %v, want nil", err)
		}
		if err := store.RemoveLive(id); err != nil {
			t.Errorf("RemoveLive() on missing = %v, want nil", err)
		}
		if err := store.RemoveTrash(id); err != nil {
			t.Errorf("RemoveTrash() on missing = %v, want nil", err)
		}
	})

	t.Run("list trash skips foreign files", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		id := mustID(t, "txt")
		if _, err := store.WriteLive(id, []byte("x")); err != nil {
			t.Fatal(err)
		}
		if err := store.Trash(id); err != nil {
			t.Fatal(err)
		}
		// A file dropped into the trash area by some external tool.
		if err := os.WriteFile(filepath.Join(dir, "trash", "notes.backup~"), []byte("y"), 0o644); err != nil {
			t.Fatal(err)
		}

		items, err := store.ListTrash()
		if err != nil {
			t.Fatalf("ListTrash() error = %v", err)
		}
		if len(items) != 1 || items[0].ID != id {
			t.Errorf("ListTrash() = %+v, want exactly %s", items, id)
		}
	})

	t.Run("cleanup tmp", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		if _, err := store.WriteLive(mustID(t, "txt"), []byte("x")); err != nil {
			t.Fatal(err)
		}
		stale := filepath.Join(dir, "tmp", "123.tmp")
		if err := os.WriteFile(stale, []byte("partial"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := store.CleanupTmp(); err != nil {
			t.Fatalf("CleanupTmp() error = %v", err)
		}
		if _, err := os.Stat(stale); !os.IsNotExist(err) {
			t.Error("stale tmp file survived CleanupTmp()")
		}
	})
}

package libindex

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/graphdesk/graphdesk/internal/blob"
	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/models"
)

func TestDecodeIndexV1Upgrade(t *testing.T) {
	data := []byte(`{
  "version": 1,
  "folders": [{"id": "f1", "name": "Reports"}],
  "documents": [
    {
      "id": "0abc123.md",
      "name": "notes.md",
      "folderId": "f1",
      "kind": "text",
      "mime": "text/markdown",
      "sizeBytes": 42,
      "fileHash": "sha256:aaaa-42",
      "createdAt": "2025-01-02T03:04:05Z"
    },
    {
      "id": "0abc124.png",
      "name": "chart.png",
      "kind": "image",
      "mime": "image/png",
      "sizeBytes": 7
    }
  ]
}`)
	idx, err := decodeIndex(data)
	if err != nil {
		t.Fatalf("decodeIndex() = %v", err)
	}
	if idx.Version != CurrentVersion {
		t.Fatalf("Version = %d, want %d", idx.Version, CurrentVersion)
	}
	if len(idx.Folders) != 1 || idx.Folders[0].Name != "Reports" {
		t.Fatalf("Folders = %+v", idx.Folders)
	}
	if len(idx.Documents) != 2 {
		t.Fatalf("got %d documents, want 2", len(idx.Documents))
	}
	d := idx.Documents[0]
	if d.ID != "0abc123.md" || d.FolderID != "f1" || d.Kind != models.DocKindText {
		t.Fatalf("document = %+v", d)
	}
	if d.FileHash != blob.Hash("sha256:aaaa-42") {
		t.Fatalf("FileHash = %q", d.FileHash)
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if !d.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", d.CreatedAt, want)
	}
	// Analysis never survives the upgrade; v1 had nowhere to store it.
	if d.Analysis.Excerpt != "" || d.Analysis.Summary != "" {
		t.Fatalf("upgraded document carries analysis: %+v", d.Analysis)
	}
}

func TestDecodeIndexUnknownVersion(t *testing.T) {
	if _, err := decodeIndex([]byte(`{"version": 99}`)); err == nil {
		t.Fatal("decodeIndex() accepted unknown version")
	}
}

func TestLoadIndexMissing(t *testing.T) {
	idx := loadIndex(filepath.Join(t.TempDir(), "index.json"))
	if idx.Version != CurrentVersion || len(idx.Documents) != 0 {
		t.Fatalf("missing file did not yield empty index: %+v", idx)
	}
}

func TestLoadIndexCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	idx := loadIndex(path)
	if idx.Version != CurrentVersion || len(idx.Documents) != 0 || len(idx.Folders) != 0 {
		t.Fatalf("corrupt file did not yield empty index: %+v", idx)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	id, err := docid.New("md")
	if err != nil {
		t.Fatal(err)
	}
	idx := &Index{
		Folders: []*models.Folder{{ID: "f1", Name: "Reports"}},
		Documents: []*models.Document{{
			ID:        id,
			Name:      "notes.md",
			Kind:      models.DocKindText,
			Mime:      "text/markdown",
			SizeBytes: 3,
			FileHash:  blob.HashBytes([]byte("abc")),
		}},
	}
	if err := saveIndex(path, idx); err != nil {
		t.Fatalf("saveIndex() = %v", err)
	}
	got := loadIndex(path)
	if got.Version != CurrentVersion {
		t.Fatalf("Version = %d", got.Version)
	}
	d := got.Document(id)
	if d == nil {
		t.Fatal("document lost in round trip")
	}
	if d.FileHash != idx.Documents[0].FileHash {
		t.Fatalf("FileHash = %q, want %q", d.FileHash, idx.Documents[0].FileHash)
	}
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Notes.md", "notes.md"},
		{"  Notes.md  ", "notes.md"},
		{"My   Report.pdf", "my report.pdf"},
		{"Ärger.txt", "ärger.txt"},
	}
	for _, tt := range tests {
		if got := NameKey(tt.in); got != tt.want {
			t.Errorf("NameKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocumentsByNameKey(t *testing.T) {
	now := time.Now()
	idx := &Index{Documents: []*models.Document{
		{ID: "a.md", Name: "Notes.md", FolderID: "f1"},
		{ID: "b.md", Name: "notes.MD", FolderID: "f1"},
		{ID: "c.md", Name: "notes.md", FolderID: "f2"},
		{ID: "d.md", Name: "Notes.md", FolderID: "f1", TrashedAt: &now},
	}}
	got := idx.DocumentsByNameKey("f1", NameKey("NOTES.md"))
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(got), got)
	}
	for _, d := range got {
		if d.FolderID != "f1" || d.Trashed() {
			t.Fatalf("unexpected match %+v", d)
		}
	}
}

func TestFolderEmpty(t *testing.T) {
	now := time.Now()
	idx := &Index{
		Folders: []*models.Folder{
			{ID: "f1"},
			{ID: "f2", ParentID: "f1"},
			{ID: "f3"},
		},
		Documents: []*models.Document{
			{ID: "a.md", FolderID: "f2", TrashedAt: &now},
		},
	}
	if idx.FolderEmpty("f1") {
		t.Fatal("folder with a subfolder reported empty")
	}
	if idx.FolderEmpty("f2") {
		t.Fatal("folder with a trashed document reported empty")
	}
	if !idx.FolderEmpty("f3") {
		t.Fatal("empty folder reported non-empty")
	}
}

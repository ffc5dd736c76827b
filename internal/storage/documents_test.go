package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/graphdesk/graphdesk/internal/models"
)

func TestUpdateDocumentRename(t *testing.T) {
	svc := newTestService(t)
	doc := uploadOne(t, svc, "draft.txt", []byte("content"))
	res, err := svc.UpdateDocument(lib, doc.ID, "final.txt", "", false)
	if err != nil {
		t.Fatalf("UpdateDocument() = %v", err)
	}
	if res.Document.Name != "final.txt" {
		t.Fatalf("Name = %q", res.Document.Name)
	}
	if res.Touched.Kind != models.PatchRefresh {
		t.Fatalf("Touched.Kind = %q, want refresh", res.Touched.Kind)
	}
	if res.Document.FileHash != doc.FileHash {
		t.Fatal("rename changed content identity")
	}
}

func TestUpdateDocumentMove(t *testing.T) {
	svc := newTestService(t)
	folder, err := svc.CreateFolder(lib, "", "Reports")
	if err != nil {
		t.Fatalf("CreateFolder() = %v", err)
	}
	doc := uploadOne(t, svc, "draft.txt", []byte("content"))
	res, err := svc.UpdateDocument(lib, doc.ID, "", folder.ID, true)
	if err != nil {
		t.Fatalf("UpdateDocument() = %v", err)
	}
	if res.Document.FolderID != folder.ID {
		t.Fatalf("FolderID = %q", res.Document.FolderID)
	}

	if _, err := svc.UpdateDocument(lib, doc.ID, "", "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("move to unknown folder = %v, want ErrNotFound", err)
	}
}

func TestReadFileAutoRestores(t *testing.T) {
	svc := newTestService(t)
	doc := uploadOne(t, svc, "draft.txt", []byte("content"))
	if _, err := svc.TrashDocument(lib, doc.ID); err != nil {
		t.Fatalf("TrashDocument() = %v", err)
	}

	data, got, err := svc.ReadFile(lib, doc.ID)
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}
	if !bytes.Equal(data, []byte("content")) {
		t.Fatalf("bytes = %q", data)
	}
	if got.Trashed() {
		t.Fatal("document still trashed after transparent restore")
	}
	if !svc.blobs(lib).InLive(doc.ID) {
		t.Fatal("bytes not back in live area")
	}
}

func TestDeleteFolderRefusesNonEmpty(t *testing.T) {
	svc := newTestService(t)
	folder, err := svc.CreateFolder(lib, "", "Reports")
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.Upload(lib, folder.ID, []UploadFile{{Name: "a.txt", Data: []byte("x")}})
	if err != nil {
		t.Fatal(err)
	}
	doc := res.Files[0].Document

	if err := svc.DeleteFolder(lib, folder.ID); !errors.Is(err, ErrFolderNotEmpty) {
		t.Fatalf("DeleteFolder() = %v, want ErrFolderNotEmpty", err)
	}

	// Trashed documents still pin the folder.
	if _, err := svc.TrashDocument(lib, doc.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteFolder(lib, folder.ID); !errors.Is(err, ErrFolderNotEmpty) {
		t.Fatalf("DeleteFolder() with trashed content = %v, want ErrFolderNotEmpty", err)
	}

	if _, err := svc.GC(lib, GCRequest{}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteFolder(lib, folder.ID); err != nil {
		t.Fatalf("DeleteFolder() after purge = %v", err)
	}
}

func TestUpdateFolderCycle(t *testing.T) {
	svc := newTestService(t)
	parent, err := svc.CreateFolder(lib, "", "parent")
	if err != nil {
		t.Fatal(err)
	}
	child, err := svc.CreateFolder(lib, parent.ID, "child")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateFolder(lib, parent.ID, "", child.ID, true); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("cycle move = %v, want ErrInvalidReference", err)
	}
	if _, err := svc.UpdateFolder(lib, parent.ID, "", parent.ID, true); err == nil {
		t.Fatal("self-parent move accepted")
	}
}

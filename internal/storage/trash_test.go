package storage

import (
	"bytes"
	"testing"

	"github.com/graphdesk/graphdesk/internal/models"
)

func TestTrashRestoreRoundTrip(t *testing.T) {
	svc := newTestService(t)
	content := []byte("precious bytes")
	doc := uploadOne(t, svc, "keep.txt", content)

	if _, err := svc.TrashDocument(lib, doc.ID); err != nil {
		t.Fatalf("TrashDocument() = %v", err)
	}
	got, err := svc.Document(lib, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Trashed() {
		t.Fatal("document not stamped trashed")
	}
	blobs := svc.blobs(lib)
	if blobs.InLive(doc.ID) || !blobs.InTrash(doc.ID) {
		t.Fatal("bytes not moved to trash area")
	}

	restored, err := svc.RestoreDocument(lib, doc.ID)
	if err != nil {
		t.Fatalf("RestoreDocument() = %v", err)
	}
	if restored.Trashed() || restored.ID != doc.ID {
		t.Fatalf("restored = %+v", restored)
	}
	data, _, err := svc.ReadFile(lib, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("restored bytes = %q, want %q", data, content)
	}
}

func TestTrashEmitsDetach(t *testing.T) {
	svc := newTestService(t)
	doc := uploadOne(t, svc, "ref.txt", []byte("referenced"))
	graph := &models.Graph{
		ID: "graph1",
		Nodes: []*models.GraphNode{{
			ID:          "n1",
			Attachments: []*models.Attachment{{DocumentID: doc.ID.String()}},
		}},
	}
	if err := svc.SaveGraph(lib, graph); err != nil {
		t.Fatalf("SaveGraph() = %v", err)
	}

	touched, err := svc.TrashDocument(lib, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if touched.Kind != models.PatchDetach {
		t.Fatalf("Kind = %q, want detach", touched.Kind)
	}
	if nodes := touched.Graphs["graph1"]; len(nodes) != 1 || nodes[0] != "n1" {
		t.Fatalf("Graphs = %+v", touched.Graphs)
	}
}

func TestTrashAlreadyTrashed(t *testing.T) {
	svc := newTestService(t)
	doc := uploadOne(t, svc, "a.txt", []byte("x"))
	if _, err := svc.TrashDocument(lib, doc.ID); err != nil {
		t.Fatal(err)
	}
	// Second trash is an idempotent no-op, as is restoring twice.
	if _, err := svc.TrashDocument(lib, doc.ID); err != nil {
		t.Fatalf("second TrashDocument() = %v", err)
	}
	if _, err := svc.RestoreDocument(lib, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RestoreDocument(lib, doc.ID); err != nil {
		t.Fatalf("second RestoreDocument() = %v", err)
	}
}

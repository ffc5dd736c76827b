// Package models defines the core domain types of the document library:
// documents, folders, analysis snapshots, graphs and the touched-set events
// emitted by mutating operations.
package models

import (
	"time"

	"github.com/graphdesk/graphdesk/internal/blob"
	"github.com/graphdesk/graphdesk/internal/docid"
)

// DocKind classifies a document by its sniffed content, never by extension
// or client-declared type.
type DocKind string

const (
	// DocKindText is any textual document (plain text, markdown, json, ...).
	DocKindText DocKind = "text"
	// DocKindImage is a raster image.
	DocKindImage DocKind = "image"
)

// Document is one library entry. The id is immutable; name and folder are
// display concerns and never used for addressing. FileHash always reflects
// the exact bytes currently on disk for this document.
type Document struct {
	ID        docid.ID  `json:"id"`
	Name      string    `json:"name"`
	FolderID  string    `json:"folderId,omitempty"`
	Kind      DocKind   `json:"kind"`
	Mime      string    `json:"mime"`
	SizeBytes int64     `json:"sizeBytes"`
	FileHash  blob.Hash `json:"fileHash"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// TrashedAt is set while the document's bytes sit in the trash area.
	TrashedAt *time.Time `json:"trashedAt,omitempty"`
	Analysis  Analysis   `json:"analysis,omitzero"`
}

// Trashed reports whether the document is currently in the trash area.
func (d *Document) Trashed() bool {
	return d.TrashedAt != nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	if d.TrashedAt != nil {
		t := *d.TrashedAt
		c.TrashedAt = &t
	}
	return &c
}

// Analysis caches derived attributes of a document. Summary and image
// description are each bound to the file hash they were computed against;
// use the accessor methods so a value bound to a stale hash reads as absent.
type Analysis struct {
	// Excerpt is cheap and computed synchronously at upload. It is refreshed
	// on every byte change so it carries no bound hash.
	Excerpt string `json:"excerpt,omitempty"`

	Summary          string    `json:"summary,omitempty"`
	SummaryBoundHash blob.Hash `json:"summaryBoundHash,omitempty"`

	ImageDescription          string    `json:"imageDescription,omitempty"`
	ImageDescriptionBoundHash blob.Hash `json:"imageDescriptionBoundHash,omitempty"`
	DescriptionLanguage       string    `json:"descriptionLanguage,omitempty"`

	Model     string     `json:"model,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// SummaryFor returns the cached summary if it was computed against hash.
func (a *Analysis) SummaryFor(hash blob.Hash) (string, bool) {
	if a.Summary == "" || a.SummaryBoundHash != hash {
		return "", false
	}
	return a.Summary, true
}

// DescriptionFor returns the cached image description if it was computed
// against hash.
func (a *Analysis) DescriptionFor(hash blob.Hash) (string, bool) {
	if a.ImageDescription == "" || a.ImageDescriptionBoundHash != hash {
		return "", false
	}
	return a.ImageDescription, true
}

// LanguageFor returns the fixed description language for hash. The language
// is chosen once per hash and only a content replace resets it.
func (a *Analysis) LanguageFor(hash blob.Hash) (string, bool) {
	if a.DescriptionLanguage == "" || a.ImageDescriptionBoundHash != hash {
		return "", false
	}
	return a.DescriptionLanguage, true
}

// Folder groups documents. Folders form a tree; a folder cannot be deleted
// while it still contains documents or subfolders.
type Folder struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy of the folder.
func (f *Folder) Clone() *Folder {
	c := *f
	return &c
}

// Graph is a user-authored canvas of nodes that may reference documents.
// The library engine only cares about attachments and generated responses;
// everything else round-trips opaquely through Extra.
type Graph struct {
	ID    string         `json:"id"`
	Name  string         `json:"name,omitempty"`
	Nodes []*GraphNode   `json:"nodes"`
	Extra map[string]any `json:"extra,omitempty"`
}

// GraphNode is one node of a graph.
type GraphNode struct {
	ID          string         `json:"id"`
	Prompt      string         `json:"prompt,omitempty"`
	Response    string         `json:"response,omitempty"`
	Stale       bool           `json:"stale,omitempty"`
	Attachments []*Attachment  `json:"attachments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Attachment is a reference from a graph node to a document, carrying an
// embedded snapshot of the document's identity and derived metadata as of
// the last save. The snapshot is a cache: the Document record is always
// authoritative and the reconciler corrects drift on every graph read.
type Attachment struct {
	DocumentID string    `json:"documentId"`
	Name       string    `json:"name"`
	Mime       string    `json:"mime,omitempty"`
	SizeBytes  int64     `json:"sizeBytes,omitempty"`
	FileHash   blob.Hash `json:"fileHash,omitempty"`

	// Derived metadata mirrored for display; refreshing these never marks
	// the owning node stale.
	Excerpt     string `json:"excerpt,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
}

// PatchKind describes what a touched-set patch means for a referencing node.
type PatchKind string

const (
	// PatchRefresh updates derived metadata only; never sets staleness.
	PatchRefresh PatchKind = "refresh"
	// PatchStale signals a content identity change; nodes with a generated
	// response must be marked stale.
	PatchStale PatchKind = "stale"
	// PatchDetach signals the referenced document is gone (trashed or
	// collected); the attachment should be dropped.
	PatchDetach PatchKind = "detach"
)

// Touched is the patch-set event emitted by every mutating operation so a
// caller holding an open in-memory graph can correct it without a reload.
type Touched struct {
	Kind PatchKind `json:"kind"`
	// Graphs maps graph id to the node ids referencing the mutated document.
	Graphs map[string][]string `json:"graphs"`
}

// IsZero reports whether the touched set names no nodes.
func (t *Touched) IsZero() bool {
	return len(t.Graphs) == 0
}

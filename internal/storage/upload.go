package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/graphdesk/graphdesk/internal/blob"
	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/graphdesk/graphdesk/internal/models"
)

// UploadFile is one incoming file of an upload batch.
type UploadFile struct {
	Name string
	Data []byte
	// Override resolves a name collision for this file by replacing the
	// colliding document's content instead of aborting the batch.
	Override bool
}

// File statuses in an upload result.
const (
	StatusCreated  = "created"
	StatusAttached = "attached"
	StatusReplaced = "replaced"
	StatusError    = "error"
)

// UploadFileResult is the per-file outcome of a batch, in input order.
type UploadFileResult struct {
	FileName string           `json:"fileName"`
	Status   string           `json:"status"`
	Document *models.Document `json:"document,omitempty"`
	Err      *FileError       `json:"error,omitempty"`
}

// UploadResult is the outcome of a committed batch.
type UploadResult struct {
	Files []UploadFileResult `json:"files"`
	// Touched lists the graph nodes referencing documents whose content an
	// override replaced. Created and attached files never touch anyone.
	Touched models.Touched `json:"touched"`
}

// fileClass is the conflict classification of one incoming file.
type fileClass int

const (
	classNew fileClass = iota
	classAttach
	classOverride
	classConflict
)

// classify decides what an incoming file means against the live documents
// already sharing its normalized name in the target folder. Pure: no
// filesystem, no index mutation.
//
// A hash match proves identity and reuses the existing document. A
// recorded hash that cannot be trusted (empty or malformed, legacy records)
// is never assumed identical. Everything unproven is a conflict unless the
// caller explicitly overrides.
func classify(existing []*models.Document, hash blob.Hash, override bool) (fileClass, *models.Document) {
	if len(existing) == 0 {
		return classNew, nil
	}
	for _, d := range existing {
		if d.FileHash.Validate() == nil && d.FileHash == hash {
			return classAttach, d
		}
	}
	if override {
		return classOverride, existing[0]
	}
	return classConflict, nil
}

// prepared carries the side-effect-free phase-one state of one batch file.
type prepared struct {
	in       UploadFile
	name     string
	nameKey  string
	ftype    FileType
	hash     blob.Hash
	excerpt  string
	class    fileClass
	existing *models.Document
	sibling  int
	ferr     *FileError
}

// Upload runs the two-phase batch pipeline. Phase one validates, sniffs and
// hashes every file with no side effects; phase two commits bytes and a
// single index update under the library lock. Any unresolved conflict
// aborts the whole batch before phase two, including files that were
// individually fine.
func (s *Service) Upload(libID, folderID string, files []UploadFile) (*UploadResult, error) {
	if len(files) == 0 {
		return &UploadResult{}, nil
	}
	var total int64
	for _, f := range files {
		total += int64(len(f.Data))
	}
	if max := s.cfg.Limits.MaxBatchBytes; max > 0 && total > max {
		return nil, &SizeLimitError{Limit: max}
	}

	preps := make([]prepared, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		p := &preps[i]
		p.in = f
		p.name = normalizeName(f.Name)
		if p.name == "" {
			p.ferr = &FileError{FileName: f.Name, Code: "INVALID_REFERENCE", Message: "empty file name"}
			continue
		}
		p.nameKey = libindex.NameKey(p.name)
		ft, ok := SniffFileType(p.name, f.Data)
		if !ok {
			p.ferr = &FileError{FileName: p.name, Code: "UNSUPPORTED_TYPE", Message: "content is neither accepted text nor an allowed image format"}
			continue
		}
		p.ftype = ft
		if max := s.cfg.Limits.ForKind(ft.Kind == models.DocKindImage); max > 0 && int64(len(f.Data)) > max {
			p.ferr = &FileError{FileName: p.name, Code: "SIZE_LIMIT_EXCEEDED", Message: fmt.Sprintf("file exceeds the %d byte limit", max)}
			continue
		}
		// Hashing is the expensive part and has no shared state.
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.hash = blob.HashBytes(p.in.Data)
			if p.ftype.Kind == models.DocKindText {
				p.excerpt = makeExcerpt(p.in.Data)
			}
		}()
	}
	wg.Wait()

	res := &UploadResult{Files: make([]UploadFileResult, len(files))}
	var replacedIDs []string
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		if folderID != "" && idx.Folder(folderID) == nil {
			return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}

		// Classification against the current index, still side-effect free.
		var conflicts []Conflict
		for i := range preps {
			p := &preps[i]
			p.sibling = -1
			if p.ferr != nil {
				continue
			}
			existing := idx.DocumentsByNameKey(folderID, p.nameKey)
			p.class, p.existing = classify(existing, p.hash, p.in.Override)
			// Earlier batch files count as committed for later ones: two
			// files sharing a name key either carry identical bytes, in
			// which case the later attaches to whatever document the
			// earlier one ends up on, or they diverge and the batch is a
			// conflict. Override resolves collisions with stored
			// documents, never within a single request.
			for j := range i {
				q := &preps[j]
				if q.ferr != nil || q.nameKey != p.nameKey {
					continue
				}
				if q.hash == p.hash {
					p.class, p.existing, p.sibling = classAttach, nil, j
				} else {
					p.class, p.existing, p.sibling = classConflict, nil, -1
				}
			}
			if p.class == classConflict {
				conflicts = append(conflicts, Conflict{FileName: p.name, Existing: cloneDocs(existing)})
			}
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		// Commit. Blob writes happen before the single index save; on a
		// write failure the blobs written so far are removed again so a
		// failed batch leaves no orphans.
		blobs := s.blobs(libID)
		var written []docid.ID
		cleanup := func() {
			for _, id := range written {
				_ = blobs.RemoveLive(id)
			}
		}
		now := s.now()
		committed := make([]*models.Document, len(preps))
		for i := range preps {
			p := &preps[i]
			out := &res.Files[i]
			out.FileName = p.name
			if out.FileName == "" {
				out.FileName = p.in.Name
			}
			if p.ferr != nil {
				out.Status = StatusError
				out.Err = p.ferr
				continue
			}
			switch p.class {
			case classAttach:
				doc := p.existing
				if p.sibling >= 0 {
					doc = committed[p.sibling]
				}
				committed[i] = doc
				out.Status = StatusAttached
				out.Document = doc.Clone()
			case classNew:
				id, err := docid.New(p.ftype.Ext)
				if err != nil {
					cleanup()
					return fmt.Errorf("failed to mint document id: %w", err)
				}
				if _, err := blobs.WriteLive(id, p.in.Data); err != nil {
					cleanup()
					return fmt.Errorf("failed to store %q: %w", p.name, err)
				}
				written = append(written, id)
				doc := &models.Document{
					ID:        id,
					Name:      p.name,
					FolderID:  folderID,
					Kind:      p.ftype.Kind,
					Mime:      p.ftype.Mime,
					SizeBytes: int64(len(p.in.Data)),
					FileHash:  p.hash,
					CreatedAt: now,
					UpdatedAt: now,
					Analysis:  models.Analysis{Excerpt: p.excerpt},
				}
				idx.Documents = append(idx.Documents, doc)
				committed[i] = doc
				out.Status = StatusCreated
				out.Document = doc.Clone()
			case classOverride:
				doc := idx.Document(p.existing.ID)
				if _, err := blobs.WriteLive(doc.ID, p.in.Data); err != nil {
					cleanup()
					return fmt.Errorf("failed to store %q: %w", p.name, err)
				}
				applyContent(doc, p.in.Data, p.ftype, p.hash, p.excerpt, now)
				replacedIDs = append(replacedIDs, doc.ID.String())
				committed[i] = doc
				out.Status = StatusReplaced
				out.Document = doc.Clone()
			}
		}
		if len(written) == 0 && len(replacedIDs) == 0 {
			// Attach-only batch: re-uploading identical content is free.
			return libindex.ErrNoChange
		}
		return nil
	})
	if err != nil {
		var cerr *ConflictError
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, err
	}

	if len(replacedIDs) > 0 {
		res.Touched = s.Touched(libID, models.PatchStale, replacedIDs...)
	}
	return res, nil
}

// ReplaceResult is the outcome of a single-document content replace.
type ReplaceResult struct {
	// Updated is false when the new bytes hash identically to the current
	// content and nothing was written.
	Updated  bool             `json:"updated"`
	Document *models.Document `json:"document"`
	Touched  models.Touched   `json:"touched"`
}

// Replace swaps a document's bytes for new content. Equal content is an
// idempotent no-op. A real change rewrites the blob, refreshes identity
// fields and drops every analysis value bound to the old hash; this is the
// one place hash-bound analysis gets invalidated.
func (s *Service) Replace(libID string, id docid.ID, data []byte) (*ReplaceResult, error) {
	ft, ok := SniffFileType(id.String(), data)
	if !ok {
		return nil, &FileError{FileName: id.String(), Code: "UNSUPPORTED_TYPE", Message: "content is neither accepted text nor an allowed image format"}
	}
	if max := s.cfg.Limits.ForKind(ft.Kind == models.DocKindImage); max > 0 && int64(len(data)) > max {
		return nil, &FileError{FileName: id.String(), Code: "SIZE_LIMIT_EXCEEDED", Message: fmt.Sprintf("file exceeds the %d byte limit", max)}
	}
	hash := blob.HashBytes(data)

	res := &ReplaceResult{}
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		doc := idx.Document(id)
		if doc == nil {
			return fmt.Errorf("document %q: %w", id, ErrNotFound)
		}
		if doc.FileHash.Validate() == nil && doc.FileHash == hash {
			res.Document = doc.Clone()
			return libindex.ErrNoChange
		}
		blobs := s.blobs(libID)
		if _, err := blobs.WriteLive(id, data); err != nil {
			return fmt.Errorf("failed to store %q: %w", id, err)
		}
		var excerpt string
		if ft.Kind == models.DocKindText {
			excerpt = makeExcerpt(data)
		}
		applyContent(doc, data, ft, hash, excerpt, s.now())
		if doc.TrashedAt != nil {
			// New content for a trashed document brings it back to life.
			_ = blobs.RemoveTrash(id)
			doc.TrashedAt = nil
		}
		res.Updated = true
		res.Document = doc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Updated {
		res.Touched = s.Touched(libID, models.PatchStale, id.String())
	}
	return res, nil
}

// applyContent updates a document record for new bytes. Analysis values
// bound to the old hash are physically dropped rather than left for the
// accessors to filter, keeping the persisted record small and unambiguous.
func applyContent(doc *models.Document, data []byte, ft FileType, hash blob.Hash, excerpt string, now time.Time) {
	doc.Kind = ft.Kind
	doc.Mime = ft.Mime
	doc.SizeBytes = int64(len(data))
	doc.FileHash = hash
	doc.UpdatedAt = now
	doc.Analysis = models.Analysis{Excerpt: excerpt}
}

// Touched pulls the affected node set for docIDs out of the usage index,
// tagged with the patch kind the mutation implies.
func (s *Service) Touched(libID string, kind models.PatchKind, docIDs ...string) models.Touched {
	t := models.Touched{Kind: kind, Graphs: map[string][]string{}}
	_ = s.idx.ViewUsage(libID, func(u *libindex.Usage) error {
		t.Graphs = u.Touched(docIDs...)
		return nil
	})
	return t
}

func cloneDocs(docs []*models.Document) []*models.Document {
	out := make([]*models.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

package storage

import (
	"fmt"

	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/graphdesk/graphdesk/internal/models"
)

// Document returns a snapshot of one document record.
func (s *Service) Document(libID string, id docid.ID) (*models.Document, error) {
	var doc *models.Document
	err := s.idx.ViewIndex(libID, func(idx *libindex.Index) error {
		if d := idx.Document(id); d != nil {
			doc = d.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %q: %w", id, ErrNotFound)
	}
	return doc, nil
}

// Listing is the full browsable state of one library.
type Listing struct {
	Folders   []*models.Folder   `json:"folders"`
	Documents []*models.Document `json:"documents"`
}

// Listing returns every folder and document of a library. Trashed documents
// are included; their TrashedAt field distinguishes them.
func (s *Service) Listing(libID string) (*Listing, error) {
	out := &Listing{}
	err := s.idx.ViewIndex(libID, func(idx *libindex.Index) error {
		for _, f := range idx.Folders {
			out.Folders = append(out.Folders, f.Clone())
		}
		for _, d := range idx.Documents {
			out.Documents = append(out.Documents, d.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateResult is the outcome of a metadata-only document mutation.
type UpdateResult struct {
	Document *models.Document `json:"document"`
	Touched  models.Touched   `json:"touched"`
}

// UpdateDocument renames or moves a document. Content identity is
// untouched, so referencing nodes get a refresh patch, never staleness.
// Empty name keeps the current name; folder moves pass the new folder id
// and setFolder true, since the root folder is the empty id.
func (s *Service) UpdateDocument(libID string, id docid.ID, name string, folderID string, setFolder bool) (*UpdateResult, error) {
	res := &UpdateResult{}
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		doc := idx.Document(id)
		if doc == nil {
			return fmt.Errorf("document %q: %w", id, ErrNotFound)
		}
		changed := false
		if name = normalizeName(name); name != "" && name != doc.Name {
			doc.Name = name
			changed = true
		}
		if setFolder && folderID != doc.FolderID {
			if folderID != "" && idx.Folder(folderID) == nil {
				return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
			}
			doc.FolderID = folderID
			changed = true
		}
		if !changed {
			res.Document = doc.Clone()
			return libindex.ErrNoChange
		}
		doc.UpdatedAt = s.now()
		res.Document = doc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Touched = s.Touched(libID, models.PatchRefresh, id.String())
	return res, nil
}

// ReadFile returns a document's bytes plus its current record. A document
// whose bytes sit in trash while a caller expects it live is transparently
// restored first; consumers get undo semantics without knowing trash
// exists. Only when the bytes are in neither area is this a real NotFound.
func (s *Service) ReadFile(libID string, id docid.ID) ([]byte, *models.Document, error) {
	doc, err := s.Document(libID, id)
	if err != nil {
		return nil, nil, err
	}
	blobs := s.blobs(libID)
	data, err := blobs.ReadLive(id)
	if err == nil {
		return data, doc, nil
	}
	if !blobs.InTrash(id) {
		return nil, nil, fmt.Errorf("document %q bytes: %w", id, ErrNotFound)
	}
	if _, err := s.RestoreDocument(libID, id); err != nil {
		return nil, nil, err
	}
	data, err = blobs.ReadLive(id)
	if err != nil {
		return nil, nil, fmt.Errorf("document %q bytes: %w", id, ErrNotFound)
	}
	doc, err = s.Document(libID, id)
	if err != nil {
		return nil, nil, err
	}
	return data, doc, nil
}

// SetAnalysis mutates a document's analysis record under the index lock.
// The analysis layer decides what to bind; this only stamps the update
// time and persists.
func (s *Service) SetAnalysis(libID string, id docid.ID, fn func(*models.Document)) error {
	return s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		doc := idx.Document(id)
		if doc == nil {
			return fmt.Errorf("document %q: %w", id, ErrNotFound)
		}
		fn(doc)
		now := s.now()
		doc.Analysis.UpdatedAt = &now
		return nil
	})
}

// CreateFolder adds a folder under parentID (empty for the root).
func (s *Service) CreateFolder(libID, parentID, name string) (*models.Folder, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty folder name", ErrInvalidReference)
	}
	var folder *models.Folder
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		if parentID != "" && idx.Folder(parentID) == nil {
			return fmt.Errorf("folder %q: %w", parentID, ErrNotFound)
		}
		now := s.now()
		folder = &models.Folder{
			ID:        newFolderID(),
			ParentID:  parentID,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		idx.Folders = append(idx.Folders, folder)
		folder = folder.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// UpdateFolder renames or reparents a folder.
func (s *Service) UpdateFolder(libID, folderID, name string, parentID string, setParent bool) (*models.Folder, error) {
	var folder *models.Folder
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		f := idx.Folder(folderID)
		if f == nil {
			return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}
		changed := false
		if name = normalizeName(name); name != "" && name != f.Name {
			f.Name = name
			changed = true
		}
		if setParent && parentID != f.ParentID {
			if parentID != "" && idx.Folder(parentID) == nil {
				return fmt.Errorf("folder %q: %w", parentID, ErrNotFound)
			}
			if wouldCycle(idx, folderID, parentID) {
				return fmt.Errorf("%w: move would create a folder cycle", ErrInvalidReference)
			}
			f.ParentID = parentID
			changed = true
		}
		if !changed {
			folder = f.Clone()
			return libindex.ErrNoChange
		}
		f.UpdatedAt = s.now()
		folder = f.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes an empty folder. Deletion is refused while the
// folder holds any document, trashed ones included, or any subfolder.
func (s *Service) DeleteFolder(libID, folderID string) error {
	return s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		if idx.Folder(folderID) == nil {
			return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}
		if !idx.FolderEmpty(folderID) {
			return fmt.Errorf("folder %q: %w", folderID, ErrFolderNotEmpty)
		}
		idx.RemoveFolder(folderID)
		return nil
	})
}

// wouldCycle reports whether reparenting folderID under parentID would make
// the folder its own ancestor.
func wouldCycle(idx *libindex.Index, folderID, parentID string) bool {
	for id := parentID; id != ""; {
		if id == folderID {
			return true
		}
		f := idx.Folder(id)
		if f == nil {
			return false
		}
		id = f.ParentID
	}
	return false
}

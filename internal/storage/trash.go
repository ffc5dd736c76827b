package storage

import (
	"fmt"

	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/graphdesk/graphdesk/internal/models"
)

// TrashDocument soft-deletes a document: its bytes move to the trash area
// and the record is stamped, but kept, so an undo recovers metadata and
// cached analysis intact. Referencing nodes get a detach patch.
func (s *Service) TrashDocument(libID string, id docid.ID) (models.Touched, error) {
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		doc := idx.Document(id)
		if doc == nil {
			return fmt.Errorf("document %q: %w", id, ErrNotFound)
		}
		if doc.Trashed() {
			return libindex.ErrNoChange
		}
		if err := s.blobs(libID).Trash(id); err != nil {
			return fmt.Errorf("failed to trash %q: %w", id, err)
		}
		now := s.now()
		doc.TrashedAt = &now
		doc.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Touched{}, err
	}
	return s.Touched(libID, models.PatchDetach, id.String()), nil
}

// RestoreDocument moves a trashed document back to live and clears the
// trash stamp. Restoring a live document is a no-op, and missing trash
// bytes are tolerated when the live copy already exists.
func (s *Service) RestoreDocument(libID string, id docid.ID) (*models.Document, error) {
	var doc *models.Document
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		d := idx.Document(id)
		if d == nil {
			return fmt.Errorf("document %q: %w", id, ErrNotFound)
		}
		if !d.Trashed() {
			doc = d.Clone()
			return libindex.ErrNoChange
		}
		if err := s.blobs(libID).Restore(id); err != nil {
			return fmt.Errorf("failed to restore %q: %w", id, err)
		}
		d.TrashedAt = nil
		d.UpdatedAt = s.now()
		doc = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

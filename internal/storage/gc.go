package storage

import (
	"slices"
	"time"

	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/graphdesk/graphdesk/internal/models"
)

// GCRequest drives an explicit, operator-triggered collection run. Nothing
// in the engine ever collects automatically.
type GCRequest struct {
	// TrashOlderThanDays purges trash entries older than this many days.
	// 0 purges everything currently in trash.
	TrashOlderThanDays int `json:"trashOlderThanDays"`

	// PurgeLiveOrphans additionally deletes live documents with zero usage
	// index references. Off by default; orphaned does not mean unwanted.
	PurgeLiveOrphans bool `json:"purgeLiveOrphans"`

	// DryRun computes the deletion plan without mutating anything.
	DryRun bool `json:"dryRun"`
}

// GCPlan is the candidate set of one collection run.
type GCPlan struct {
	TrashIDs      []docid.ID `json:"trashIds"`
	LiveOrphanIDs []docid.ID `json:"liveOrphanIds"`
}

// GCResult reports a collection run. For a dry run only the plan is set;
// the contract is that an immediate real run with the same request and no
// intervening mutation deletes exactly the planned set.
type GCResult struct {
	Plan       GCPlan         `json:"plan"`
	DryRun     bool           `json:"dryRun"`
	DeletedIDs []docid.ID     `json:"deletedIds,omitempty"`
	Touched    models.Touched `json:"touched"`
}

// GC computes the deletion plan and, unless dry-running, destroys the
// planned documents: blobs first (idempotent on already-missing files),
// then index records, then usage entries.
func (s *Service) GC(libID string, req GCRequest) (*GCResult, error) {
	res := &GCResult{DryRun: req.DryRun}
	var refCounts map[string]int
	if err := s.idx.ViewUsage(libID, func(u *libindex.Usage) error {
		refCounts = map[string]int{}
		for docID := range u.Refs {
			refCounts[docID] = u.RefCount(docID)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-time.Duration(req.TrashOlderThanDays) * 24 * time.Hour)
	err := s.idx.MutateIndex(libID, func(idx *libindex.Index) error {
		for _, d := range idx.Documents {
			switch {
			case d.Trashed():
				if !d.TrashedAt.After(cutoff) {
					res.Plan.TrashIDs = append(res.Plan.TrashIDs, d.ID)
				}
			case req.PurgeLiveOrphans && refCounts[d.ID.String()] == 0:
				res.Plan.LiveOrphanIDs = append(res.Plan.LiveOrphanIDs, d.ID)
			}
		}
		if req.DryRun {
			return libindex.ErrNoChange
		}
		blobs := s.blobs(libID)
		for _, id := range res.Plan.TrashIDs {
			if err := blobs.RemoveTrash(id); err != nil {
				return err
			}
			idx.RemoveDocument(id)
			res.DeletedIDs = append(res.DeletedIDs, id)
		}
		for _, id := range res.Plan.LiveOrphanIDs {
			if err := blobs.RemoveLive(id); err != nil {
				return err
			}
			idx.RemoveDocument(id)
			res.DeletedIDs = append(res.DeletedIDs, id)
		}
		if len(res.DeletedIDs) == 0 {
			return libindex.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if req.DryRun || len(res.DeletedIDs) == 0 {
		return res, nil
	}

	deleted := make([]string, len(res.DeletedIDs))
	for i, id := range res.DeletedIDs {
		deleted[i] = id.String()
	}
	res.Touched = s.Touched(libID, models.PatchDetach, deleted...)
	if err := s.idx.MutateUsage(libID, func(u *libindex.Usage) error {
		u.RemoveDocuments(deleted...)
		return nil
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// TrashReportItem is one trash entry in the orphans report.
type TrashReportItem struct {
	ID        docid.ID  `json:"id"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"sizeBytes"`
	TrashedAt time.Time `json:"trashedAt"`
	AgeDays   int       `json:"ageDays"`
}

// OrphansReport is the read-only diagnostic behind a GC confirmation UI.
type OrphansReport struct {
	LiveOrphanIDs []docid.ID        `json:"liveOrphanIds"`
	TrashItems    []TrashReportItem `json:"trashItems"`
}

// Orphans surveys a library for unreferenced live documents and current
// trash contents with approximate age. folderID narrows the live-orphan
// scan to one folder; empty means the whole library. No mutation.
func (s *Service) Orphans(libID, folderID string) (*OrphansReport, error) {
	report := &OrphansReport{}
	var referenced map[string]bool
	if err := s.idx.ViewUsage(libID, func(u *libindex.Usage) error {
		referenced = map[string]bool{}
		for docID := range u.Refs {
			if u.RefCount(docID) > 0 {
				referenced[docID] = true
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	now := s.now()
	err := s.idx.ViewIndex(libID, func(idx *libindex.Index) error {
		for _, d := range idx.Documents {
			if d.Trashed() {
				report.TrashItems = append(report.TrashItems, TrashReportItem{
					ID:        d.ID,
					Name:      d.Name,
					SizeBytes: d.SizeBytes,
					TrashedAt: *d.TrashedAt,
					AgeDays:   int(now.Sub(*d.TrashedAt) / (24 * time.Hour)),
				})
				continue
			}
			if folderID != "" && d.FolderID != folderID {
				continue
			}
			if !referenced[d.ID.String()] {
				report.LiveOrphanIDs = append(report.LiveOrphanIDs, d.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(report.LiveOrphanIDs)
	return report, nil
}

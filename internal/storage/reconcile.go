package storage

import (
	"fmt"
	"slices"

	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/graphdesk/graphdesk/internal/models"
)

// LoadGraph reads a graph and reconciles every attachment snapshot against
// the authoritative document records. The corrected graph is an in-memory
// view only; reconciliation never writes back to the graph file. Read-time
// reconciliation is the source of truth for consistency; the touched
// patches mutating operations emit are an optimization layered on top.
func (s *Service) LoadGraph(libID, graphID string) (*models.Graph, error) {
	if !ValidGraphID(graphID) {
		return nil, fmt.Errorf("%w: bad graph id %q", ErrInvalidReference, graphID)
	}
	graph, err := s.graphs(libID).Load(graphID)
	if err != nil {
		return nil, err
	}
	err = s.idx.ViewIndex(libID, func(idx *libindex.Index) error {
		for _, node := range graph.Nodes {
			reconcileNode(idx, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// reconcileNode corrects one node's attachment snapshots in place.
//
// Identity drift (hash, size, mime) refreshes the snapshot and marks the
// node stale when it already carries a generated response, since that
// response may reflect the old content. Display name and derived metadata
// drift refreshes silently; staleness is reserved for content changes.
// Attachments whose document is gone or trashed are dropped from the view.
func reconcileNode(idx *libindex.Index, node *models.GraphNode) {
	node.Attachments = slices.DeleteFunc(node.Attachments, func(att *models.Attachment) bool {
		id, err := docid.Parse(att.DocumentID)
		if err != nil {
			return true
		}
		doc := idx.Document(id)
		if doc == nil || doc.Trashed() {
			return true
		}
		reconcileAttachment(doc, att, node)
		return false
	})
}

// reconcileAttachment refreshes one snapshot from its document record.
func reconcileAttachment(doc *models.Document, att *models.Attachment, node *models.GraphNode) {
	identityChanged := att.FileHash != doc.FileHash ||
		att.SizeBytes != doc.SizeBytes ||
		att.Mime != doc.Mime
	if identityChanged {
		att.FileHash = doc.FileHash
		att.SizeBytes = doc.SizeBytes
		att.Mime = doc.Mime
		if node.Response != "" {
			node.Stale = true
		}
	}
	att.Name = doc.Name

	att.Excerpt = doc.Analysis.Excerpt
	if summary, ok := doc.Analysis.SummaryFor(doc.FileHash); ok {
		att.Summary = summary
	} else {
		att.Summary = ""
	}
	if desc, ok := doc.Analysis.DescriptionFor(doc.FileHash); ok {
		att.Description = desc
	} else {
		att.Description = ""
	}
}

// ApplyTouched patches an open in-memory graph with a touched event from a
// mutating operation, sparing the caller a reload. Only the named nodes
// are visited; the result matches what the next LoadGraph would return for
// those nodes.
func (s *Service) ApplyTouched(libID string, graph *models.Graph, t models.Touched) error {
	nodeIDs := t.Graphs[graph.ID]
	if len(nodeIDs) == 0 {
		return nil
	}
	return s.idx.ViewIndex(libID, func(idx *libindex.Index) error {
		for _, node := range graph.Nodes {
			if !slices.Contains(nodeIDs, node.ID) {
				continue
			}
			reconcileNode(idx, node)
		}
		return nil
	})
}

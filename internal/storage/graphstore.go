package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/libindex"
	"github.com/graphdesk/graphdesk/internal/models"
)

// GraphStore persists graphs as one JSON file per graph under a library's
// graphs directory. Graphs are plain key-value payloads to the engine; the
// interesting part happens around save (usage index rebuild) and load
// (reconciliation), both driven from Service.
type GraphStore struct {
	dir string
}

// ValidGraphID accepts ksid-style tokens and other short opaque ids from
// the canvas layer. Anything that could alter the storage path is rejected.
func ValidGraphID(graphID string) bool {
	if graphID == "" || len(graphID) > 64 {
		return false
	}
	for _, r := range graphID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func (g *GraphStore) path(graphID string) string {
	return filepath.Join(g.dir, graphID+".json")
}

// Load reads one graph.
func (g *GraphStore) Load(graphID string) (*models.Graph, error) {
	data, err := os.ReadFile(g.path(graphID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("graph %q: %w", graphID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read graph %q: %w", graphID, err)
	}
	graph := &models.Graph{}
	if err := json.Unmarshal(data, graph); err != nil {
		return nil, fmt.Errorf("failed to parse graph %q: %w", graphID, err)
	}
	graph.ID = graphID
	return graph, nil
}

// Save writes one graph atomically.
func (g *GraphStore) Save(graph *models.Graph) error {
	if err := os.MkdirAll(g.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create graphs directory: %w", err)
	}
	data, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph %q: %w", graph.ID, err)
	}
	data = append(data, '\n')
	path := g.path(graph.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write graph %q: %w", graph.ID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Join(fmt.Errorf("failed to commit graph %q: %w", graph.ID, err), os.Remove(tmp))
	}
	return nil
}

// Delete removes one graph file. Missing is a no-op.
func (g *GraphStore) Delete(graphID string) error {
	if err := os.Remove(g.path(graphID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete graph %q: %w", graphID, err)
	}
	return nil
}

// List returns the ids of every stored graph.
func (g *GraphStore) List() ([]string, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if id := strings.TrimSuffix(name, ".json"); ValidGraphID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SaveGraph persists a graph and rebuilds its contribution to the usage
// index from scratch. Attachments without an identity snapshot are seeded
// from the index before the write. Attachment references that are
// structurally invalid or name a document the index does not know are
// filtered out of the rebuild; older canvas formats left such garbage
// behind and it must never pin storage.
func (s *Service) SaveGraph(libID string, graph *models.Graph) error {
	if !ValidGraphID(graph.ID) {
		return fmt.Errorf("%w: bad graph id %q", ErrInvalidReference, graph.ID)
	}
	docs := map[docid.ID]*models.Document{}
	if err := s.idx.ViewIndex(libID, func(idx *libindex.Index) error {
		for _, d := range idx.Documents {
			docs[d.ID] = d.Clone()
		}
		return nil
	}); err != nil {
		return err
	}
	refs := map[string][]string{}
	for _, node := range graph.Nodes {
		for _, att := range node.Attachments {
			id, err := docid.Parse(att.DocumentID)
			if err != nil {
				continue
			}
			doc, ok := docs[id]
			if !ok {
				continue
			}
			// Attachments arriving without an identity snapshot bind to
			// the document's current content. Anything else would read as
			// drift on the next load and stale a node that saw no change.
			if att.FileHash.IsZero() {
				att.Name = doc.Name
				att.Mime = doc.Mime
				att.SizeBytes = doc.SizeBytes
				att.FileHash = doc.FileHash
			}
			refs[id.String()] = append(refs[id.String()], node.ID)
		}
	}
	if err := s.graphs(libID).Save(graph); err != nil {
		return err
	}
	return s.idx.MutateUsage(libID, func(u *libindex.Usage) error {
		u.ReplaceGraph(graph.ID, refs)
		return nil
	})
}

// DeleteGraph removes a graph and its usage contribution.
func (s *Service) DeleteGraph(libID, graphID string) error {
	if !ValidGraphID(graphID) {
		return fmt.Errorf("%w: bad graph id %q", ErrInvalidReference, graphID)
	}
	if err := s.graphs(libID).Delete(graphID); err != nil {
		return err
	}
	return s.idx.MutateUsage(libID, func(u *libindex.Usage) error {
		u.RemoveGraph(graphID)
		return nil
	})
}

// ListGraphs returns the ids of a library's graphs.
func (s *Service) ListGraphs(libID string) ([]string, error) {
	return s.graphs(libID).List()
}

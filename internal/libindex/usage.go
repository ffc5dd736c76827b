package libindex

import (
	"encoding/json"
	"log/slog"
	"os"
	"slices"
)

// GraphRef lists the nodes of one graph that reference a document.
type GraphRef struct {
	GraphID string   `json:"graphId"`
	NodeIDs []string `json:"nodeIds"`
}

// Usage is the derived reverse map from document id to referencing graph
// nodes. It is rebuilt wholesale per graph on every graph save, so it can
// always be reconstructed by re-scanning the graphs; losing it is never
// data loss.
type Usage struct {
	Version int                   `json:"version"`
	Refs    map[string][]GraphRef `json:"refs"`
}

func newUsage() *Usage {
	return &Usage{Version: 1, Refs: map[string][]GraphRef{}}
}

// loadUsage reads usage.json. Missing or corrupt files degrade to an empty
// usage index; unlike the library index this is harmless since it is
// derived data.
func loadUsage(path string) *Usage {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("usage index unreadable, starting empty", "path", path, "err", err)
		}
		return newUsage()
	}
	u := &Usage{}
	if err := json.Unmarshal(data, u); err != nil {
		slog.Warn("usage index corrupt, starting empty", "path", path, "err", err)
		return newUsage()
	}
	if u.Refs == nil {
		u.Refs = map[string][]GraphRef{}
	}
	return u
}

func saveUsage(path string, u *Usage) error {
	return writeJSONFile(path, u)
}

// ReplaceGraph swaps out graphID's entire contribution to the index.
// refs maps document id to the node ids referencing it; callers have
// already filtered out structurally invalid and unknown document ids.
// Replacement rather than patching avoids incremental-update drift.
func (u *Usage) ReplaceGraph(graphID string, refs map[string][]string) {
	for docID, entries := range u.Refs {
		filtered := slices.DeleteFunc(entries, func(r GraphRef) bool {
			return r.GraphID == graphID
		})
		if len(filtered) == 0 {
			delete(u.Refs, docID)
		} else {
			u.Refs[docID] = filtered
		}
	}
	for docID, nodeIDs := range refs {
		if len(nodeIDs) == 0 {
			continue
		}
		ids := slices.Clone(nodeIDs)
		slices.Sort(ids)
		ids = slices.Compact(ids)
		u.Refs[docID] = append(u.Refs[docID], GraphRef{GraphID: graphID, NodeIDs: ids})
	}
}

// RemoveGraph drops graphID's contribution entirely.
func (u *Usage) RemoveGraph(graphID string) {
	u.ReplaceGraph(graphID, nil)
}

// RemoveDocuments drops all entries for the given document ids.
func (u *Usage) RemoveDocuments(docIDs ...string) {
	for _, id := range docIDs {
		delete(u.Refs, id)
	}
}

// RefCount returns the number of referencing nodes across all graphs.
func (u *Usage) RefCount(docID string) int {
	n := 0
	for _, r := range u.Refs[docID] {
		n += len(r.NodeIDs)
	}
	return n
}

// Touched computes the affected {graphID → nodeIDs} set for a group of
// documents, the payload of the patch event every mutating operation emits.
func (u *Usage) Touched(docIDs ...string) map[string][]string {
	out := map[string][]string{}
	for _, docID := range docIDs {
		for _, ref := range u.Refs[docID] {
			out[ref.GraphID] = append(out[ref.GraphID], ref.NodeIDs...)
		}
	}
	for graphID, nodeIDs := range out {
		slices.Sort(nodeIDs)
		out[graphID] = slices.Compact(nodeIDs)
	}
	return out
}

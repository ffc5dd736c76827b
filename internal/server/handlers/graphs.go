package handlers

import (
	"context"

	"github.com/graphdesk/graphdesk/internal/models"
	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// GraphHandler handles graph persistence and reconciled reads.
type GraphHandler struct {
	svc *storage.Service
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(svc *storage.Service) *GraphHandler {
	return &GraphHandler{svc: svc}
}

// Get returns the reconciled view of one graph. Attachment snapshots are
// rebuilt against the current library on every read.
func (h *GraphHandler) Get(ctx context.Context, req *dto.GraphRequest) (*dto.GraphResponse, error) {
	graph, err := h.svc.LoadGraph(req.LibID, req.GraphID)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.GraphResponse{Graph: graph}, nil
}

// Save stores a graph wholesale and rebuilds its usage index
// contribution, then returns the reconciled view.
func (h *GraphHandler) Save(ctx context.Context, req *dto.SaveGraphRequest) (*dto.GraphResponse, error) {
	graph := &models.Graph{
		ID:    req.GraphID,
		Name:  req.Name,
		Extra: req.Extra,
	}
	for _, n := range req.Nodes {
		node := &models.GraphNode{
			ID:       n.ID,
			Prompt:   n.Prompt,
			Response: n.Response,
			Stale:    n.Stale,
			Extra:    n.Extra,
		}
		// Bare ids; SaveGraph seeds the identity snapshots from the index.
		for _, id := range n.DocumentIDs {
			node.Attachments = append(node.Attachments, &models.Attachment{DocumentID: id})
		}
		graph.Nodes = append(graph.Nodes, node)
	}
	if err := h.svc.SaveGraph(req.LibID, graph); err != nil {
		return nil, apiError(err)
	}
	out, err := h.svc.LoadGraph(req.LibID, req.GraphID)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.GraphResponse{Graph: out}, nil
}

// Delete removes a graph and its usage index contribution.
func (h *GraphHandler) Delete(ctx context.Context, req *dto.GraphRequest) (*dto.OKResponse, error) {
	if err := h.svc.DeleteGraph(req.LibID, req.GraphID); err != nil {
		return nil, apiError(err)
	}
	return &dto.OKResponse{OK: true}, nil
}

// List returns the graph ids of a library.
func (h *GraphHandler) List(ctx context.Context, req *dto.LibraryRequest) (*dto.ListGraphsResponse, error) {
	ids, err := h.svc.ListGraphs(req.LibID)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.ListGraphsResponse{Graphs: ids}, nil
}

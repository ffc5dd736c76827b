package handlers

import (
	"context"

	"github.com/graphdesk/graphdesk/internal/analysis"
	"github.com/graphdesk/graphdesk/internal/docid"
	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// AnalyzeHandler handles on-demand document analysis requests.
type AnalyzeHandler struct {
	svc *analysis.Service
}

// NewAnalyzeHandler creates a new analysis handler.
func NewAnalyzeHandler(svc *analysis.Service) *AnalyzeHandler {
	return &AnalyzeHandler{svc: svc}
}

// Analyze computes summaries and image descriptions for a batch of
// documents. Items fail independently; a malformed id fails the whole
// request since it is a client bug, not a document state.
func (h *AnalyzeHandler) Analyze(ctx context.Context, req *dto.AnalyzeRequest) (*analysis.Result, error) {
	ids := make([]docid.ID, len(req.IDs))
	for i, raw := range req.IDs {
		id, err := storage.ParseDocID(raw)
		if err != nil {
			return nil, apiError(err)
		}
		ids[i] = id
	}
	res, err := h.svc.Analyze(ctx, req.LibID, ids, req.RequestText)
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

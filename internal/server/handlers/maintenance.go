package handlers

import (
	"context"

	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// MaintenanceHandler handles garbage collection and diagnostics requests.
type MaintenanceHandler struct {
	svc *storage.Service
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(svc *storage.Service) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc}
}

// GC runs a garbage collection pass. With dryRun set the response carries
// the plan an immediate real run would execute, and nothing is deleted.
func (h *MaintenanceHandler) GC(ctx context.Context, req *dto.GCRequest) (*storage.GCResult, error) {
	res, err := h.svc.GC(req.LibID, storage.GCRequest{
		TrashOlderThanDays: req.TrashOlderThanDays,
		PurgeLiveOrphans:   req.PurgeLiveOrphans,
		DryRun:             req.DryRun,
	})
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

// Orphans surveys unreferenced live documents and trash contents.
func (h *MaintenanceHandler) Orphans(ctx context.Context, req *dto.OrphansRequest) (*storage.OrphansReport, error) {
	res, err := h.svc.Orphans(req.LibID, req.FolderID)
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

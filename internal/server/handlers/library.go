package handlers

import (
	"context"

	"github.com/graphdesk/graphdesk/internal/models"
	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// LibraryHandler handles library listing and folder requests.
type LibraryHandler struct {
	svc *storage.Service
}

// NewLibraryHandler creates a new library handler.
func NewLibraryHandler(svc *storage.Service) *LibraryHandler {
	return &LibraryHandler{svc: svc}
}

// Listing returns every folder and document of a library.
func (h *LibraryHandler) Listing(ctx context.Context, req *dto.LibraryRequest) (*storage.Listing, error) {
	res, err := h.svc.Listing(req.LibID)
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

// CreateFolder creates a folder, optionally under a parent.
func (h *LibraryHandler) CreateFolder(ctx context.Context, req *dto.CreateFolderRequest) (*models.Folder, error) {
	folder, err := h.svc.CreateFolder(req.LibID, req.ParentID, req.Name)
	if err != nil {
		return nil, apiError(err)
	}
	return folder, nil
}

// UpdateFolder renames or moves a folder.
func (h *LibraryHandler) UpdateFolder(ctx context.Context, req *dto.UpdateFolderRequest) (*models.Folder, error) {
	parentID := ""
	if req.ParentID != nil {
		parentID = *req.ParentID
	}
	folder, err := h.svc.UpdateFolder(req.LibID, req.FolderID, req.Name, parentID, req.ParentID != nil)
	if err != nil {
		return nil, apiError(err)
	}
	return folder, nil
}

// DeleteFolder removes an empty folder. Trashed documents still count as
// contents, so deletion may require emptying the trash first.
func (h *LibraryHandler) DeleteFolder(ctx context.Context, req *dto.FolderRequest) (*dto.OKResponse, error) {
	if err := h.svc.DeleteFolder(req.LibID, req.FolderID); err != nil {
		return nil, apiError(err)
	}
	return &dto.OKResponse{OK: true}, nil
}

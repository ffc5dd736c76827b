// Package handlers provides HTTP request handlers for the REST API.
//
// Each handler type wraps a service, validates and converts inputs, and
// returns standardized responses. Business logic lives in the storage and
// analysis packages; handlers only translate between wire and domain.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// DocumentHandler handles document-related HTTP requests.
type DocumentHandler struct {
	svc *storage.Service
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(svc *storage.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Upload ingests a batch of files in one atomic decision.
func (h *DocumentHandler) Upload(ctx context.Context, req *dto.UploadRequest) (*storage.UploadResult, error) {
	files := make([]storage.UploadFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = storage.UploadFile{Name: f.Name, Data: f.Data, Override: f.Override}
	}
	res, err := h.svc.Upload(req.LibID, req.FolderID, files)
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

// Replace swaps one document's content.
func (h *DocumentHandler) Replace(ctx context.Context, req *dto.ReplaceRequest) (*storage.ReplaceResult, error) {
	id, err := storage.ParseDocID(req.DocID)
	if err != nil {
		return nil, apiError(err)
	}
	res, err := h.svc.Replace(req.LibID, id, req.Data)
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

// Update renames or moves a document.
func (h *DocumentHandler) Update(ctx context.Context, req *dto.UpdateDocumentRequest) (*storage.UpdateResult, error) {
	id, err := storage.ParseDocID(req.DocID)
	if err != nil {
		return nil, apiError(err)
	}
	folderID := ""
	if req.FolderID != nil {
		folderID = *req.FolderID
	}
	res, err := h.svc.UpdateDocument(req.LibID, id, req.Name, folderID, req.FolderID != nil)
	if err != nil {
		return nil, apiError(err)
	}
	return res, nil
}

// Trash soft-deletes a document.
func (h *DocumentHandler) Trash(ctx context.Context, req *dto.DocumentRequest) (*dto.TrashResponse, error) {
	id, err := storage.ParseDocID(req.DocID)
	if err != nil {
		return nil, apiError(err)
	}
	touched, err := h.svc.TrashDocument(req.LibID, id)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.TrashResponse{Touched: touched}, nil
}

// Restore brings a trashed document back.
func (h *DocumentHandler) Restore(ctx context.Context, req *dto.DocumentRequest) (*dto.RestoreResponse, error) {
	id, err := storage.ParseDocID(req.DocID)
	if err != nil {
		return nil, apiError(err)
	}
	doc, err := h.svc.RestoreDocument(req.LibID, id)
	if err != nil {
		return nil, apiError(err)
	}
	return &dto.RestoreResponse{Document: doc}, nil
}

// ServeFile streams raw document bytes. Reading a trashed document
// restores it first, so a successful response always reflects live state.
func (h *DocumentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	libID := r.PathValue("libID")
	if !storage.ValidLibID(libID) {
		writeErrorResponse(w, dto.InvalidReference("invalid library id"))
		return
	}
	id, err := storage.ParseDocID(r.PathValue("docID"))
	if err != nil {
		writeErrorResponse(w, apiError(err))
		return
	}
	data, doc, err := h.svc.ReadFile(libID, id)
	if err != nil {
		writeErrorResponse(w, apiError(err))
		return
	}
	w.Header().Set("Content-Type", doc.Mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(data); err != nil {
		// Client went away mid-transfer; nothing to clean up.
		return
	}
}

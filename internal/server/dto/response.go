// Defines API response types not covered by a domain result type.
//
// Most endpoints return storage or analysis result structs directly; those
// already carry JSON tags and are part of the on-disk format, so mirroring
// them here would only invite drift. The types below exist for endpoints
// whose result has no domain counterpart.

package dto

import "github.com/graphdesk/graphdesk/internal/models"

// HealthResponse reports server liveness and version.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// TrashResponse is the outcome of trashing a document.
type TrashResponse struct {
	Touched models.Touched `json:"touched"`
}

// RestoreResponse is the outcome of restoring a document from trash.
type RestoreResponse struct {
	Document *models.Document `json:"document"`
}

// GraphResponse carries one reconciled graph view.
type GraphResponse struct {
	Graph *models.Graph `json:"graph"`
}

// ListGraphsResponse lists graph ids of a library.
type ListGraphsResponse struct {
	Graphs []string `json:"graphs"`
}

// OKResponse acknowledges an operation with no other payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

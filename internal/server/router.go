// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/graphdesk/graphdesk/internal/analysis"
	"github.com/graphdesk/graphdesk/internal/server/handlers"
	"github.com/graphdesk/graphdesk/internal/server/ratelimit"
	"github.com/graphdesk/graphdesk/internal/server/reqctx"
	"github.com/graphdesk/graphdesk/internal/storage"
)

// NewRouter creates and configures the HTTP router. All endpoints live
// under /api; library-scoped ones under /api/{libID}. The returned stop
// function releases the rate limiter janitors and must be called when the
// server shuts down.
func NewRouter(svc *storage.Service, an *analysis.Service, version string) (http.Handler, func()) {
	rl := svc.Config().RateLimits
	limiters := ratelimit.NewConfig(ratelimit.Rates{
		WritePerMin:   rl.WriteRatePerMin,
		AnalyzePerMin: rl.AnalyzeRatePerMin,
		ReadPerMin:    rl.ReadRatePerMin,
	})
	opts := &Options{
		Limiters: limiters,
		// Upload batches arrive base64-encoded inside JSON, so the raw body
		// cap leaves headroom over the decoded batch ceiling.
		MaxBodyBytes: svc.Config().Limits.MaxBatchBytes * 2,
	}

	dh := handlers.NewDocumentHandler(svc)
	lh := handlers.NewLibraryHandler(svc)
	mh := handlers.NewMaintenanceHandler(svc)
	gh := handlers.NewGraphHandler(svc)
	ah := handlers.NewAnalyzeHandler(an)
	hh := handlers.NewHealthHandler(version)

	mux := &http.ServeMux{}

	// Health check
	mux.Handle("GET /api/health", Wrap(hh.Health, opts))

	// Document endpoints
	mux.Handle("POST /api/{libID}/documents", Wrap(dh.Upload, opts))
	mux.Handle("POST /api/{libID}/documents/{docID}/replace", Wrap(dh.Replace, opts))
	mux.Handle("PATCH /api/{libID}/documents/{docID}", Wrap(dh.Update, opts))
	mux.Handle("DELETE /api/{libID}/documents/{docID}", Wrap(dh.Trash, opts))
	mux.Handle("POST /api/{libID}/documents/{docID}/restore", Wrap(dh.Restore, opts))
	mux.Handle("GET /api/{libID}/documents/{docID}/file", withRawLimit(limiters, http.HandlerFunc(dh.ServeFile)))

	// Library and folder endpoints
	mux.Handle("GET /api/{libID}/library", Wrap(lh.Listing, opts))
	mux.Handle("POST /api/{libID}/folders", Wrap(lh.CreateFolder, opts))
	mux.Handle("PATCH /api/{libID}/folders/{folderID}", Wrap(lh.UpdateFolder, opts))
	mux.Handle("DELETE /api/{libID}/folders/{folderID}", Wrap(lh.DeleteFolder, opts))

	// Maintenance endpoints
	mux.Handle("POST /api/{libID}/gc", Wrap(mh.GC, opts))
	mux.Handle("GET /api/{libID}/orphans", Wrap(mh.Orphans, opts))

	// Analysis endpoint
	mux.Handle("POST /api/{libID}/analyze", Wrap(ah.Analyze, opts))

	// Graph endpoints
	mux.Handle("GET /api/{libID}/graphs", Wrap(gh.List, opts))
	mux.Handle("GET /api/{libID}/graphs/{graphID}", Wrap(gh.Get, opts))
	mux.Handle("PUT /api/{libID}/graphs/{graphID}", Wrap(gh.Save, opts))
	mux.Handle("DELETE /api/{libID}/graphs/{graphID}", Wrap(gh.Delete, opts))

	return withRecovery(withAccessLog(mux)), limiters.Close
}

// withRawLimit applies the read tier to a raw handler that bypasses Wrap.
func withRawLimit(limiters *ratelimit.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tier := limiters.Match(r.Method, r.URL.Path); tier != nil {
			var ok bool
			w, ok = checkRateLimit(w, tier, reqctx.GetClientIP(r))
			if !ok {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

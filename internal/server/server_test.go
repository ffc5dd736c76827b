package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphdesk/graphdesk/internal/analysis"
	"github.com/graphdesk/graphdesk/internal/server/dto"
	"github.com/graphdesk/graphdesk/internal/storage"
)

const lib = "workspace"

// stubProvider answers every provider call with a fixed string.
type stubProvider struct {
	text string
}

func (p *stubProvider) GenerateText(context.Context, string, string) (string, error) {
	return p.text, nil
}

func (p *stubProvider) DescribeImage(context.Context, string, string, string, []byte) (string, error) {
	return p.text, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := storage.DefaultConfig()
	svc, err := storage.NewService(cfg, t.TempDir())
	if err != nil {
		t.Fatalf("NewService() = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	an := analysis.NewService(svc, &stubProvider{text: "stub"}, cfg.Analysis)
	handler, stopLimiters := NewRouter(svc, an, "test")
	t.Cleanup(stopLimiters)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON issues a request with a JSON body and decodes the JSON response.
func doJSON(t *testing.T, srv *httptest.Server, method, path string, body, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, buf)
	if err != nil {
		t.Fatalf("NewRequest() = %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func uploadOne(t *testing.T, srv *httptest.Server, name, content string) string {
	t.Helper()
	req := map[string]any{
		"files": []map[string]any{{"name": name, "data": []byte(content)}},
	}
	var res struct {
		Files []struct {
			Status   string `json:"status"`
			Document struct {
				ID string `json:"id"`
			} `json:"document"`
		} `json:"files"`
	}
	if code := doJSON(t, srv, "POST", "/api/"+lib+"/documents", req, &res); code != http.StatusOK {
		t.Fatalf("upload %q: status %d", name, code)
	}
	if res.Files[0].Status != "created" && res.Files[0].Status != "attached" {
		t.Fatalf("upload %q: status %q", name, res.Files[0].Status)
	}
	return res.Files[0].Document.ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var res dto.HealthResponse
	if code := doJSON(t, srv, "GET", "/api/health", nil, &res); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if res.Status != "ok" || res.Version != "test" {
		t.Fatalf("health = %+v", res)
	}
}

func TestUploadAndServeFile(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "notes.txt", "meeting notes")

	resp, err := srv.Client().Get(srv.URL + "/api/" + lib + "/documents/" + id + "/file")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("Content-Type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	if string(data) != "meeting notes" {
		t.Fatalf("body = %q", data)
	}
}

func TestUploadConflictReturns409(t *testing.T) {
	srv := newTestServer(t)
	uploadOne(t, srv, "report.txt", "first version")

	req := map[string]any{
		"files": []map[string]any{{"name": "report.txt", "data": []byte("second version")}},
	}
	var res dto.ErrorResponse
	code := doJSON(t, srv, "POST", "/api/"+lib+"/documents", req, &res)
	if code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", code)
	}
	if res.Error.Code != dto.ErrorCodeConflict {
		t.Fatalf("code = %q", res.Error.Code)
	}
	if res.Details["conflicts"] == nil {
		t.Fatal("missing conflicts detail")
	}
}

func TestUploadOverrideResolvesConflict(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "report.txt", "first version")

	req := map[string]any{
		"files": []map[string]any{{"name": "report.txt", "data": []byte("second version"), "override": true}},
	}
	var res struct {
		Files []struct {
			Status   string `json:"status"`
			Document struct {
				ID string `json:"id"`
			} `json:"document"`
		} `json:"files"`
	}
	if code := doJSON(t, srv, "POST", "/api/"+lib+"/documents", req, &res); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if res.Files[0].Status != "replaced" || res.Files[0].Document.ID != id {
		t.Fatalf("file result = %+v", res.Files[0])
	}
}

func TestRenameAndListing(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "draft.md", "# Draft")

	var upd struct {
		Document struct {
			Name string `json:"name"`
		} `json:"document"`
	}
	code := doJSON(t, srv, "PATCH", "/api/"+lib+"/documents/"+id, map[string]any{"name": "final.md"}, &upd)
	if code != http.StatusOK {
		t.Fatalf("patch status = %d", code)
	}
	if upd.Document.Name != "final.md" {
		t.Fatalf("name = %q", upd.Document.Name)
	}

	var listing struct {
		Documents []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"documents"`
	}
	if code := doJSON(t, srv, "GET", "/api/"+lib+"/library", nil, &listing); code != http.StatusOK {
		t.Fatalf("listing status = %d", code)
	}
	if len(listing.Documents) != 1 || listing.Documents[0].Name != "final.md" {
		t.Fatalf("listing = %+v", listing)
	}
}

func TestTrashRestoreRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "tmp.txt", "scratch")

	if code := doJSON(t, srv, "DELETE", "/api/"+lib+"/documents/"+id, nil, nil); code != http.StatusOK {
		t.Fatalf("trash status = %d", code)
	}
	var res dto.RestoreResponse
	if code := doJSON(t, srv, "POST", "/api/"+lib+"/documents/"+id+"/restore", nil, &res); code != http.StatusOK {
		t.Fatalf("restore status = %d", code)
	}
	if res.Document.TrashedAt != nil {
		t.Fatal("restored document still trashed")
	}
}

func TestFolderLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var folder struct {
		ID string `json:"id"`
	}
	code := doJSON(t, srv, "POST", "/api/"+lib+"/folders", map[string]any{"name": "Projects"}, &folder)
	if code != http.StatusOK {
		t.Fatalf("create folder status = %d", code)
	}
	if folder.ID == "" {
		t.Fatal("empty folder id")
	}
	code = doJSON(t, srv, "PATCH", "/api/"+lib+"/folders/"+folder.ID, map[string]any{"name": "Archive"}, nil)
	if code != http.StatusOK {
		t.Fatalf("update folder status = %d", code)
	}
	if code := doJSON(t, srv, "DELETE", "/api/"+lib+"/folders/"+folder.ID, nil, nil); code != http.StatusOK {
		t.Fatalf("delete folder status = %d", code)
	}
}

func TestGraphSaveAndReconciledGet(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "paper.md", "# A research document")

	put := map[string]any{
		"name": "research",
		"nodes": []map[string]any{
			{"id": "n1", "prompt": "summarize", "documentIds": []string{id}},
		},
	}
	var res dto.GraphResponse
	if code := doJSON(t, srv, "PUT", "/api/"+lib+"/graphs/g1", put, &res); code != http.StatusOK {
		t.Fatalf("put status = %d", code)
	}
	if len(res.Graph.Nodes) != 1 || len(res.Graph.Nodes[0].Attachments) != 1 {
		t.Fatalf("graph = %+v", res.Graph)
	}
	att := res.Graph.Nodes[0].Attachments[0]
	if att.Name != "paper.md" || att.SizeBytes == 0 {
		t.Fatalf("attachment snapshot not reconciled: %+v", att)
	}

	var got dto.GraphResponse
	if code := doJSON(t, srv, "GET", "/api/"+lib+"/graphs/g1", nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	if got.Graph.ID != "g1" || got.Graph.Name != "research" {
		t.Fatalf("graph = %+v", got.Graph)
	}

	var list dto.ListGraphsResponse
	if code := doJSON(t, srv, "GET", "/api/"+lib+"/graphs", nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if len(list.Graphs) != 1 || list.Graphs[0] != "g1" {
		t.Fatalf("graphs = %v", list.Graphs)
	}

	if code := doJSON(t, srv, "DELETE", "/api/"+lib+"/graphs/g1", nil, nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	var errRes dto.ErrorResponse
	if code := doJSON(t, srv, "GET", "/api/"+lib+"/graphs/g1", nil, &errRes); code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", code)
	}
}

func TestGraphSaveWithResponseStaysFresh(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "notes.txt", "meeting notes")

	// A node saved with a response and bare document ids binds to the
	// current content. Reading it back against the unchanged document must
	// not flag staleness.
	put := map[string]any{
		"nodes": []map[string]any{
			{"id": "n1", "prompt": "summarize", "response": "already generated", "documentIds": []string{id}},
		},
	}
	var res dto.GraphResponse
	if code := doJSON(t, srv, "PUT", "/api/"+lib+"/graphs/g1", put, &res); code != http.StatusOK {
		t.Fatalf("put status = %d", code)
	}
	if res.Graph.Nodes[0].Stale {
		t.Fatal("save marked the node stale")
	}

	var got dto.GraphResponse
	if code := doJSON(t, srv, "GET", "/api/"+lib+"/graphs/g1", nil, &got); code != http.StatusOK {
		t.Fatalf("get status = %d", code)
	}
	node := got.Graph.Nodes[0]
	if node.Stale {
		t.Fatal("unchanged document marked the node stale on read")
	}
	att := node.Attachments[0]
	if att.FileHash.IsZero() || att.SizeBytes == 0 || att.Mime == "" {
		t.Fatalf("attachment snapshot not seeded: %+v", att)
	}
}

func TestReplaceWithEmptyContent(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "notes.txt", "meeting notes")

	// An empty file is accepted text on upload, so replacing down to empty
	// is legitimate too.
	var res storage.ReplaceResult
	code := doJSON(t, srv, "POST", "/api/"+lib+"/documents/"+id+"/replace", map[string]any{"data": []byte{}}, &res)
	if code != http.StatusOK {
		t.Fatalf("replace status = %d", code)
	}
	if !res.Updated || res.Document.SizeBytes != 0 {
		t.Fatalf("replace result = %+v", res)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/" + lib + "/documents/" + id + "/file")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("file status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(body) != 0 {
		t.Fatalf("stored bytes = %q", body)
	}
}

func TestGCDryRunDeletesNothing(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "old.txt", "stale content")
	if code := doJSON(t, srv, "DELETE", "/api/"+lib+"/documents/"+id, nil, nil); code != http.StatusOK {
		t.Fatalf("trash status = %d", code)
	}

	var res struct {
		Plan struct {
			TrashIDs []string `json:"trashIds"`
		} `json:"plan"`
		DryRun     bool     `json:"dryRun"`
		DeletedIDs []string `json:"deletedIds"`
	}
	code := doJSON(t, srv, "POST", "/api/"+lib+"/gc", map[string]any{"dryRun": true}, &res)
	if code != http.StatusOK {
		t.Fatalf("gc status = %d", code)
	}
	if !res.DryRun || len(res.Plan.TrashIDs) != 1 || len(res.DeletedIDs) != 0 {
		t.Fatalf("gc result = %+v", res)
	}

	// The document is still restorable.
	if code := doJSON(t, srv, "POST", "/api/"+lib+"/documents/"+id+"/restore", nil, nil); code != http.StatusOK {
		t.Fatalf("restore after dry run status = %d", code)
	}
}

func TestOrphansReport(t *testing.T) {
	srv := newTestServer(t)
	uploadOne(t, srv, "loose.txt", "nobody references this")

	var res struct {
		LiveOrphanIDs []string `json:"liveOrphanIds"`
	}
	if code := doJSON(t, srv, "GET", "/api/"+lib+"/orphans", nil, &res); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(res.LiveOrphanIDs) != 1 {
		t.Fatalf("orphans = %v", res.LiveOrphanIDs)
	}
}

func TestAnalyzeShortTextSelfSummary(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "short.txt", "a short note")

	var res struct {
		Items []struct {
			Status   string `json:"status"`
			Analysis struct {
				Summary string `json:"summary"`
			} `json:"analysis"`
		} `json:"items"`
	}
	code := doJSON(t, srv, "POST", "/api/"+lib+"/analyze", map[string]any{"ids": []string{id}}, &res)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if res.Items[0].Status != "ok" {
		t.Fatalf("item = %+v", res.Items[0])
	}
	if res.Items[0].Analysis.Summary != "a short note" {
		t.Fatalf("summary = %q", res.Items[0].Analysis.Summary)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	srv := newTestServer(t)

	var res dto.ErrorResponse
	code := doJSON(t, srv, "DELETE", "/api/"+lib+"/documents/not-a-valid-id", nil, &res)
	if code != http.StatusBadRequest || res.Error.Code != dto.ErrorCodeInvalidReference {
		t.Fatalf("malformed id: status %d code %q", code, res.Error.Code)
	}

	res = dto.ErrorResponse{}
	code = doJSON(t, srv, "POST", "/api/"+lib+"/documents", map[string]any{"files": []any{}}, &res)
	if code != http.StatusBadRequest || res.Error.Code != dto.ErrorCodeMissingField {
		t.Fatalf("empty batch: status %d code %q", code, res.Error.Code)
	}

	res = dto.ErrorResponse{}
	code = doJSON(t, srv, "GET", "/api/UPPER/library", nil, &res)
	if code != http.StatusBadRequest || res.Error.Code != dto.ErrorCodeInvalidReference {
		t.Fatalf("bad lib id: status %d code %q", code, res.Error.Code)
	}
}

func TestNotFoundDocument(t *testing.T) {
	srv := newTestServer(t)
	id := uploadOne(t, srv, "probe.txt", "probe")
	missing := strings.Replace(id, ".txt", ".md", 1)

	var res dto.ErrorResponse
	code := doJSON(t, srv, "POST", "/api/"+lib+"/documents/"+missing+"/restore", nil, &res)
	if code != http.StatusNotFound || res.Error.Code != dto.ErrorCodeNotFound {
		t.Fatalf("status %d code %q", code, res.Error.Code)
	}
}

func TestRateLimitHeadersPresent(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/api/" + lib + "/library")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-RateLimit-Limit") == "" {
		t.Fatal("missing X-RateLimit-Limit header")
	}
}

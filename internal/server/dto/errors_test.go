package dto

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIErrorWrapping(t *testing.T) {
	inner := errors.New("disk full")
	err := InternalWithError("failed to save", inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped error lost")
	}
	if got := err.Error(); got != "failed to save: disk full" {
		t.Fatalf("Error() = %q", got)
	}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("StatusCode() = %d", err.StatusCode())
	}
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
		code   ErrorCode
	}{
		{NotFound("document"), http.StatusNotFound, ErrorCodeNotFound},
		{BadRequest("bad"), http.StatusBadRequest, ErrorCodeValidationFailed},
		{MissingField("name"), http.StatusBadRequest, ErrorCodeMissingField},
		{InvalidReference("bad id"), http.StatusBadRequest, ErrorCodeInvalidReference},
		{Conflict("collision"), http.StatusConflict, ErrorCodeConflict},
		{FolderNotEmpty(), http.StatusConflict, ErrorCodeFolderNotEmpty},
		{UnsupportedType("nope"), http.StatusUnsupportedMediaType, ErrorCodeUnsupportedType},
		{SizeLimitExceeded("too big", 10), http.StatusRequestEntityTooLarge, ErrorCodeSizeLimitExceeded},
		{PayloadTooLarge(10), http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge},
		{RateLimitExceeded(1), http.StatusTooManyRequests, ErrorCodeRateLimited},
		{DependencyUnavailable("down"), http.StatusBadGateway, ErrorCodeDependencyUnavailable},
	}
	for _, tt := range tests {
		if tt.err.StatusCode() != tt.status || tt.err.Code() != tt.code {
			t.Errorf("%v: status %d code %q, want %d %q", tt.err, tt.err.StatusCode(), tt.err.Code(), tt.status, tt.code)
		}
	}
}

func TestWithDetail(t *testing.T) {
	err := BadRequest("bad").WithDetail("field", "name")
	if err.Details()["field"] != "name" {
		t.Fatalf("Details() = %v", err.Details())
	}
}

func TestValidateRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Validatable
		ok   bool
	}{
		{"upload ok", &UploadRequest{LibID: "ws", Files: []UploadFileInput{{Name: "a.txt"}}}, true},
		{"upload no files", &UploadRequest{LibID: "ws"}, false},
		{"upload unnamed file", &UploadRequest{LibID: "ws", Files: []UploadFileInput{{}}}, false},
		{"upload bad lib", &UploadRequest{LibID: "Bad/Lib", Files: []UploadFileInput{{Name: "a"}}}, false},
		{"replace with empty data", &ReplaceRequest{LibID: "ws", DocID: "x.md"}, true},
		{"update nothing", &UpdateDocumentRequest{LibID: "ws", DocID: "x.md"}, false},
		{"gc negative age", &GCRequest{LibID: "ws", TrashOlderThanDays: -1}, false},
		{"gc ok", &GCRequest{LibID: "ws"}, true},
		{"analyze no ids", &AnalyzeRequest{LibID: "ws"}, false},
		{"graph node without id", &SaveGraphRequest{LibID: "ws", GraphID: "g", Nodes: []SaveGraphNode{{}}}, false},
		{"health", &HealthRequest{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

package storage

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/graphdesk/graphdesk/internal/models"
)

// FileType is the result of content sniffing an upload.
type FileType struct {
	Kind models.DocKind
	Mime string
	// Ext is the canonical lowercase extension for the sniffed type,
	// used when minting a document id.
	Ext string
}

// imageTypes is the allowlist of accepted raster formats, keyed by the
// sniffed media type. Anything else that sniffs as an image is rejected.
var imageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// textExts maps well-known textual extensions to a canonical extension.
// The extension only influences the id suffix and the served mime type,
// never the kind decision.
var textExts = map[string]string{
	"txt":  "txt",
	"md":   "md",
	"json": "json",
	"csv":  "csv",
	"yaml": "yaml",
	"yml":  "yaml",
	"xml":  "xml",
	"html": "html",
	"log":  "log",
}

// SniffFileType classifies upload bytes by magic-byte sniffing. The client
// declared type and the file extension are never authoritative; only the
// bytes decide the kind. Returns false when the content matches neither the
// image allowlist nor valid text.
func SniffFileType(name string, data []byte) (FileType, bool) {
	sniffed := http.DetectContentType(data)
	if base, _, ok := strings.Cut(sniffed, ";"); ok {
		sniffed = base
	}
	sniffed = strings.TrimSpace(sniffed)

	if ext, ok := imageTypes[sniffed]; ok {
		return FileType{Kind: models.DocKindImage, Mime: sniffed, Ext: ext}, true
	}
	if strings.HasPrefix(sniffed, "image/") || strings.HasPrefix(sniffed, "video/") ||
		strings.HasPrefix(sniffed, "audio/") {
		return FileType{}, false
	}

	if !validText(data) {
		return FileType{}, false
	}
	ext := strings.ToLower(strings.TrimPrefix(strings.ToLower(extOf(name)), "."))
	canonical, ok := textExts[ext]
	if !ok {
		canonical = "txt"
	}
	return FileType{Kind: models.DocKindText, Mime: mimeForTextExt(canonical), Ext: canonical}, true
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func mimeForTextExt(ext string) string {
	switch ext {
	case "md":
		return "text/markdown"
	case "json":
		return "application/json"
	case "csv":
		return "text/csv"
	case "html":
		return "text/html"
	case "xml":
		return "application/xml"
	case "yaml":
		return "application/yaml"
	default:
		return "text/plain"
	}
}

// validText accepts UTF-8 without NUL bytes. Empty input is valid text;
// an empty file is a legitimate document.
func validText(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return utf8.Valid(data)
}

package storage

import (
	"bytes"
	"testing"

	"github.com/graphdesk/graphdesk/internal/models"
)

func TestSniffFileType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 8)...)
	jpeg := append([]byte("\xff\xd8\xff\xe0"), bytes.Repeat([]byte{0x10}, 8)...)
	tests := []struct {
		name string
		data []byte
		want FileType
		ok   bool
	}{
		{"notes.md", []byte("# Heading\nbody"), FileType{models.DocKindText, "text/markdown", "md"}, true},
		{"data.json", []byte(`{"a":1}`), FileType{models.DocKindText, "application/json", "json"}, true},
		{"noext", []byte("plain words"), FileType{models.DocKindText, "text/plain", "txt"}, true},
		{"UPPER.TXT", []byte("shouting"), FileType{models.DocKindText, "text/plain", "txt"}, true},
		{"pic.png", png, FileType{models.DocKindImage, "image/png", "png"}, true},
		// The bytes decide, not the name: a PNG called .txt is an image.
		{"lying.txt", png, FileType{models.DocKindImage, "image/png", "png"}, true},
		{"photo.jpg", jpeg, FileType{models.DocKindImage, "image/jpeg", "jpg"}, true},
		{"prog.exe", []byte{0x4d, 0x5a, 0x00, 0x01, 0x02}, FileType{}, false},
		{"broken.txt", []byte{0xff, 0xfe, 0xfd}, FileType{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SniffFileType(tt.name, tt.data)
			if ok != tt.ok {
				t.Fatalf("SniffFileType(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("SniffFileType(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMakeExcerpt(t *testing.T) {
	if got := makeExcerpt([]byte("  a\n\nb\tc  ")); got != "a b c" {
		t.Fatalf("makeExcerpt = %q", got)
	}
	long := bytes.Repeat([]byte("word "), 200)
	got := makeExcerpt(long)
	if len([]rune(got)) > excerptMaxChars+1 {
		t.Fatalf("excerpt too long: %d runes", len([]rune(got)))
	}
	if got[len(got)-3:] != "…" {
		t.Fatalf("excerpt not marked truncated: %q", got[len(got)-10:])
	}
}

// Package detect provides cheap, stateless heuristics that strategies use to
// classify an input file without parsing it in full.
package detect

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Unknown is returned when neither content sniffing nor the extension table
// can classify a file.
const Unknown = "application/octet-stream"

// MimeType returns a best-effort MIME type for the file at path.
// Content sniffing is tried first, then the extension table; it never fails.
func MimeType(path string) string {
	if m, err := mimetype.DetectFile(path); err == nil && m != nil {
		return m.String()
	}
	if guessed := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); guessed != "" {
		return guessed
	}
	return Unknown
}

// HasMimePrefix reports whether the detected MIME type of path starts with prefix
// (e.g. "image/"). Parameters such as "; charset=utf-8" are ignored.
func HasMimePrefix(path, prefix string) bool {
	mt := MimeType(path)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.HasPrefix(strings.TrimSpace(mt), prefix)
}

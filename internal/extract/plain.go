package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/doctext/internal/detect"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var textExtensions = map[string]bool{".txt": true, ".log": true, ".md": true}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textStrategy struct{}

// NewTextStrategy returns the strategy for plain text files.
func NewTextStrategy() Strategy {
	return textStrategy{}
}

func (textStrategy) Type() DocumentType { return TypeText }

// CanProcess accepts known text extensions, and extension-less files that
// sniff as text/plain.
func (textStrategy) CanProcess(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		return true
	}
	return ext == "" && detect.HasMimePrefix(path, "text/plain")
}

func (s textStrategy) ExtractText(_ context.Context, path string) (string, error) {
	return readDecoded(s.Type(), path)
}

// readDecoded reads path and decodes it to UTF-8. An empty file yields "".
func readDecoded(t DocumentType, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", strategyErr(t, fmt.Errorf("read file: %w", err))
	}
	if len(raw) == 0 {
		return "", nil
	}
	return decodeText(raw), nil
}

// decodeText detects the character set of raw and converts it to UTF-8.
// When decoding fails the bytes are treated as UTF-8 with invalid sequences
// replaced.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return extractPlain(bytes.TrimPrefix(raw, utf8BOM))
	}
	enc, name, _ := charset.DetermineEncoding(raw, "text/plain")
	if enc != nil && name != "utf-8" {
		// A leading BOM picks the decoder and is consumed, as on the UTF-8 path.
		if decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), raw); err == nil {
			return string(decoded)
		}
	}
	return extractPlain(raw)
}

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) string {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return string(content)
}

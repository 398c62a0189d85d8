package detect

import (
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFHasTextLayer reports whether the first page of the PDF at path carries
// an embedded text layer. Only page 1 is read. Non-PDF extensions return false
// without opening the file; malformed or encrypted PDFs also return false so
// they are routed to OCR.
func PDFHasTextLayer(path string) (ok bool) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return false
	}
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	if r.NumPage() < 1 {
		return false
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return false
	}
	return strings.TrimSpace(text) != ""
}

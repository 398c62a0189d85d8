package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/doctext/internal/detect"
	"github.com/ledongthuc/pdf"
)

type pdfTextStrategy struct{}

// NewPDFTextStrategy returns the strategy for PDFs with an embedded text layer.
func NewPDFTextStrategy() Strategy {
	return pdfTextStrategy{}
}

func (pdfTextStrategy) Type() DocumentType { return TypePDFText }

// CanProcess accepts only PDFs whose first page has a text layer.
func (pdfTextStrategy) CanProcess(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return false
	}
	return detect.PDFHasTextLayer(path)
}

func (s pdfTextStrategy) ExtractText(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", strategyErr(s.Type(), fmt.Errorf("read file: %w", err))
	}
	text, err := extractPDF(ctx, content)
	if err != nil {
		return "", strategyErr(s.Type(), err)
	}
	return text, nil
}

func extractPDF(ctx context.Context, content []byte) (text string, err error) {
	// The PDF reader panics on some malformed streams.
	defer func() {
		if v := recover(); v != nil {
			text, err = "", fmt.Errorf("parse PDF: %v", v)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

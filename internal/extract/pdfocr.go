package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hyperjump/doctext/internal/detect"
	"github.com/hyperjump/doctext/internal/ocr"
	"golang.org/x/sync/errgroup"
)

// PageSeparator joins the text of consecutive OCR'd pages.
const PageSeparator = "\f"

type scannedPDFStrategy struct {
	raster  ocr.Rasterizer
	engine  ocr.Engine
	workers int
}

// NewScannedPDFStrategy returns the OCR strategy for PDFs without a text
// layer. Pages are rendered by raster and recognized by engine concurrently,
// at most workers at a time (runtime.NumCPU() when workers <= 0).
func NewScannedPDFStrategy(raster ocr.Rasterizer, engine ocr.Engine, workers int) Strategy {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return scannedPDFStrategy{raster: raster, engine: engine, workers: workers}
}

func (scannedPDFStrategy) Type() DocumentType { return TypePDFImage }

// CanProcess accepts PDFs whose first page has no text layer.
func (scannedPDFStrategy) CanProcess(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return false
	}
	return !detect.PDFHasTextLayer(path)
}

// ExtractText OCRs every page and joins the trimmed page texts with
// PageSeparator, in page order.
func (s scannedPDFStrategy) ExtractText(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "doctext-pages-*")
	if err != nil {
		return "", strategyErr(s.Type(), fmt.Errorf("create raster dir: %w", err))
	}
	defer os.RemoveAll(dir)

	pages, err := s.raster.Rasterize(ctx, path, dir)
	if err != nil {
		return "", strategyErr(s.Type(), err)
	}
	if len(pages) == 0 {
		return "", nil
	}

	texts := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			text, err := s.engine.Recognize(gctx, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			texts[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", strategyErr(s.Type(), err)
	}
	return strings.Join(texts, PageSeparator), nil
}

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer renders every page of a PDF to an image file inside outDir and
// returns the image paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	Binary string
	DPI    int
}

// NewPdftoppm returns a Pdftoppm rasterizer configured from cfg.
func NewPdftoppm(cfg Config) *Pdftoppm {
	cfg = cfg.WithDefaults()
	return &Pdftoppm{Binary: cfg.PdftoppmPath, DPI: cfg.DPI}
}

const pagePrefix = "page"

// Rasterize writes page-N.png files (pdftoppm zero-pads N) and returns them
// sorted by page number.
func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	bin, err := exec.LookPath(p.Binary)
	if err != nil {
		return nil, &EngineUnavailableError{Engine: p.Binary, Err: err}
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-r", strconv.Itoa(p.DPI),
		"-png",
		pdfPath,
		filepath.Join(outDir, pagePrefix))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, &EngineUnavailableError{Engine: p.Binary, Err: err}
		}
		return nil, fmt.Errorf("pdftoppm %s: %w: %s", pdfPath, err, strings.TrimSpace(stderr.String()))
	}
	return pageImages(outDir)
}

// pageImages lists page-*.png files in dir ordered by their page number.
func pageImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raster dir: %w", err)
	}
	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, pagePrefix+"-") || filepath.Ext(name) != ".png" {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, pagePrefix+"-"), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.path
	}
	return out, nil
}

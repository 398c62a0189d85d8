package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hyperjump/doctext/internal/detect"
	"github.com/hyperjump/doctext/internal/ocr"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".bmp": true, ".gif": true,
}

type imageStrategy struct {
	engine ocr.Engine
}

// NewImageStrategy returns the OCR strategy for standalone images.
func NewImageStrategy(engine ocr.Engine) Strategy {
	return imageStrategy{engine: engine}
}

func (imageStrategy) Type() DocumentType { return TypeImage }

// CanProcess accepts known image extensions, and extension-less files that
// sniff as an image.
func (imageStrategy) CanProcess(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if imageExtensions[ext] {
		return true
	}
	return ext == "" && detect.HasMimePrefix(path, "image/")
}

func (s imageStrategy) ExtractText(ctx context.Context, path string) (string, error) {
	text, err := s.engine.Recognize(ctx, path)
	if err != nil {
		return "", strategyErr(s.Type(), err)
	}
	return text, nil
}

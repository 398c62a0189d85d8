package extract

import (
	"slices"

	"github.com/hyperjump/doctext/internal/ocr"
)

// DefaultStrategies returns the built-in strategies in their base order:
// cheap, precise strategies first and OCR last. The PDF text-layer strategy
// precedes the scanned-PDF one because a PDF may satisfy both checks.
func DefaultStrategies(cfg ocr.Config) []Strategy {
	engine := ocr.NewTesseract(cfg)
	return []Strategy{
		NewPDFTextStrategy(),
		NewDocxStrategy(),
		NewTextStrategy(),
		NewCSVStrategy(),
		NewImageStrategy(engine),
		NewScannedPDFStrategy(ocr.NewPdftoppm(cfg), engine, 0),
	}
}

// Order returns the strategies in the order they are tried. With preferOCR
// the OCR strategies move to the front; relative order within the OCR and
// non-OCR groups is kept. The input slice is never modified.
func Order(strategies []Strategy, preferOCR bool) []Strategy {
	if !preferOCR {
		return strategies
	}
	ordered := slices.Clone(strategies)
	slices.SortStableFunc(ordered, func(a, b Strategy) int {
		return ocrRank(a) - ocrRank(b)
	})
	return ordered
}

func ocrRank(s Strategy) int {
	if s.Type().IsOCR() {
		return 0
	}
	return 1
}

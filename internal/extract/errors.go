package extract

import (
	"errors"
	"fmt"

	"github.com/hyperjump/doctext/internal/ocr"
)

// ErrExtraction is the base kind matched by every error in this package:
// errors.Is(err, ErrExtraction) catches them all.
var ErrExtraction = errors.New("extraction error")

// OcrEngineUnavailableError is returned (wrapped in a StrategyError) when the
// OCR engine or rasterizer binary is missing.
type OcrEngineUnavailableError = ocr.EngineUnavailableError

// InvalidSourceError means the source could not be turned into a file on disk.
type InvalidSourceError struct {
	Reason string
	Err    error
}

func (e *InvalidSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid source: %s: %v", e.Reason, e.Err)
	}
	return "invalid source: " + e.Reason
}

func (e *InvalidSourceError) Unwrap() error        { return e.Err }
func (e *InvalidSourceError) Is(target error) bool { return target == ErrExtraction }

// UnsupportedDocumentError means no strategy accepted the document.
type UnsupportedDocumentError struct {
	Name string
}

func (e *UnsupportedDocumentError) Error() string {
	return fmt.Sprintf("no extractor recognised document %q", e.Name)
}

func (e *UnsupportedDocumentError) Is(target error) bool { return target == ErrExtraction }

// ExtractionFailedError means every strategy that accepted the document
// failed. Err is the failure of the last one tried.
type ExtractionFailedError struct {
	Name string
	Type DocumentType
	Err  error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("all extractors failed to extract text from %q (last: %s): %v", e.Name, e.Type, e.Err)
}

func (e *ExtractionFailedError) Unwrap() error        { return e.Err }
func (e *ExtractionFailedError) Is(target error) bool { return target == ErrExtraction }

// StrategyError is returned by the built-in strategies when extraction fails.
type StrategyError struct {
	Type DocumentType
	Err  error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s extraction: %v", e.Type, e.Err)
}

func (e *StrategyError) Unwrap() error        { return e.Err }
func (e *StrategyError) Is(target error) bool { return target == ErrExtraction }

func strategyErr(t DocumentType, err error) error {
	return &StrategyError{Type: t, Err: err}
}

// IsEngineUnavailable reports whether err was caused by a missing OCR binary.
func IsEngineUnavailable(err error) bool {
	var e *OcrEngineUnavailableError
	return errors.As(err, &e)
}

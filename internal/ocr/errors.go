package ocr

import "fmt"

// EngineUnavailableError is returned when an external OCR or rasterization
// binary cannot be found or started.
type EngineUnavailableError struct {
	Engine string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("ocr engine %q unavailable: %v", e.Engine, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error {
	return e.Err
}

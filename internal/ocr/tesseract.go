package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Engine recognizes text in a single image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract runs the tesseract CLI, writing recognized text to stdout.
type Tesseract struct {
	Binary   string
	Language string
}

// NewTesseract returns a Tesseract engine configured from cfg.
func NewTesseract(cfg Config) *Tesseract {
	cfg = cfg.WithDefaults()
	return &Tesseract{Binary: cfg.TesseractPath, Language: cfg.Language}
}

// Recognize returns the text tesseract finds in imagePath.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	bin, err := exec.LookPath(t.Binary)
	if err != nil {
		return "", &EngineUnavailableError{Engine: t.Binary, Err: err}
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, imagePath, "stdout", "-l", t.Language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", &EngineUnavailableError{Engine: t.Binary, Err: err}
		}
		return "", fmt.Errorf("tesseract %s: %w: %s", imagePath, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

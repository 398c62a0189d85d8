// Package ocr wraps the external OCR engine (tesseract) and PDF rasterizer
// (pdftoppm) used by the OCR-based strategies.
package ocr

import (
	"os"
	"strconv"
	"strings"
)

// Defaults applied when neither config nor environment set a value.
const (
	DefaultLanguage  = "eng"
	DefaultDPI       = 300
	DefaultTesseract = "tesseract"
	DefaultPdftoppm  = "pdftoppm"
)

// Environment variables consulted by ConfigFromEnv.
const (
	EnvLanguage  = "OCR_LANG"
	EnvDPI       = "OCR_DPI"
	EnvTesseract = "TESSERACT_CMD"
	EnvPdftoppm  = "PDFTOPPM_CMD"
)

// Config holds OCR settings.
type Config struct {
	Language      string `yaml:"language"`
	DPI           int    `yaml:"dpi"`
	TesseractPath string `yaml:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
}

// WithDefaults returns a copy of c with zero fields set to their defaults.
func (c Config) WithDefaults() Config {
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}
	if c.TesseractPath == "" {
		c.TesseractPath = DefaultTesseract
	}
	if c.PdftoppmPath == "" {
		c.PdftoppmPath = DefaultPdftoppm
	}
	return c
}

// ApplyEnv overrides fields of c from the process environment. Invalid
// numeric values are ignored.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		c.Language = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDPI)); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil && dpi > 0 {
			c.DPI = dpi
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTesseract)); v != "" {
		c.TesseractPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPdftoppm)); v != "" {
		c.PdftoppmPath = v
	}
}

// ConfigFromEnv returns the default config with environment overrides applied.
func ConfigFromEnv() Config {
	var c Config
	c.ApplyEnv()
	return c.WithDefaults()
}

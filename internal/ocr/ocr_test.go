package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigWithDefaults(t *testing.T) {
	got := Config{}.WithDefaults()
	want := Config{Language: DefaultLanguage, DPI: DefaultDPI, TesseractPath: DefaultTesseract, PdftoppmPath: DefaultPdftoppm}
	if got != want {
		t.Errorf("WithDefaults() = %+v, want %+v", got, want)
	}
	kept := Config{Language: "deu", DPI: 150}.WithDefaults()
	if kept.Language != "deu" || kept.DPI != 150 {
		t.Errorf("WithDefaults overwrote set fields: %+v", kept)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvLanguage, "fra")
	t.Setenv(EnvDPI, "200")
	t.Setenv(EnvTesseract, "/opt/tess")
	t.Setenv(EnvPdftoppm, "")

	c := ConfigFromEnv()
	if c.Language != "fra" || c.DPI != 200 || c.TesseractPath != "/opt/tess" || c.PdftoppmPath != DefaultPdftoppm {
		t.Errorf("ConfigFromEnv() = %+v", c)
	}

	t.Setenv(EnvDPI, "lots")
	if c := ConfigFromEnv(); c.DPI != DefaultDPI {
		t.Errorf("invalid DPI should fall back to default, got %d", c.DPI)
	}
}

func TestPageImagesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-10.png", "page-02.png", "page-1.png", "other.png", "page-x.png", "page-3.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := pageImages(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"page-1.png", "page-02.png", "page-10.png"}
	if len(got) != len(want) {
		t.Fatalf("pageImages = %v", got)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Errorf("page %d = %s, want %s", i, filepath.Base(got[i]), want[i])
		}
	}
}

func TestMissingBinaries(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-binary")

	_, err := (&Tesseract{Binary: missing, Language: "eng"}).Recognize(context.Background(), "img.png")
	var unavailable *EngineUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Recognize err = %v, want EngineUnavailableError", err)
	}
	if unavailable.Engine != missing {
		t.Errorf("Engine = %q", unavailable.Engine)
	}

	_, err = (&Pdftoppm{Binary: missing, DPI: 72}).Rasterize(context.Background(), "doc.pdf", t.TempDir())
	if !errors.As(err, &unavailable) {
		t.Fatalf("Rasterize err = %v, want EngineUnavailableError", err)
	}
}

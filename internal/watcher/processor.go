package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/pkg/utils"
	"go.uber.org/zap"
)

// Processor extracts watched files and records the results.
type Processor struct {
	loader    *extract.Loader
	store     storage.Storage
	outputDir string
	logger    *zap.Logger
}

// NewProcessor returns a Processor. store and outputDir are optional; with
// neither set results are only logged.
func NewProcessor(loader *extract.Loader, store storage.Storage, outputDir string, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{loader: loader, store: store, outputDir: outputDir, logger: logger}
}

// Process extracts path and replaces any earlier results for it.
func (p *Processor) Process(ctx context.Context, path string) (*extract.Envelope, error) {
	start := time.Now()
	res, err := p.loader.Load(ctx, extract.FromPath(path), "")
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	env := res.Envelope(elapsed)

	if p.store != nil {
		if _, err := p.store.DeleteBySource(ctx, path); err != nil {
			return nil, fmt.Errorf("failed to clear previous results: %w", err)
		}
		if err := p.store.SaveResult(ctx, storage.NewRecord(res, path, elapsed)); err != nil {
			return nil, err
		}
	}
	if p.outputDir != "" {
		if err := p.writeOutputs(path, env); err != nil {
			return nil, err
		}
	}
	p.logger.Info("extracted",
		zap.String("path", path),
		zap.String("type", string(env.DocumentType)),
		zap.Int("chars", env.CharCount),
		zap.Duration("elapsed", elapsed))
	p.logger.Debug("extracted text preview", zap.String("path", path), zap.String("text", utils.Truncate(env.TextPayload, 120)))
	return &env, nil
}

// Remove drops stored results and output files for path.
func (p *Processor) Remove(ctx context.Context, path string) error {
	var errs []error
	if p.store != nil {
		n, err := p.store.DeleteBySource(ctx, path)
		if err != nil {
			errs = append(errs, err)
		} else {
			p.logger.Info("removed results", zap.String("path", path), zap.Int64("count", n))
		}
	}
	if p.outputDir != "" {
		txt, js := p.outputPaths(path)
		for _, f := range []string{txt, js} {
			if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// OnChange adapts Process to a Watcher callback; failures are logged.
func (p *Processor) OnChange(ctx context.Context) func(string) {
	return func(path string) {
		if _, err := p.Process(ctx, path); err != nil {
			level := zap.WarnLevel
			var unsupported *extract.UnsupportedDocumentError
			if errors.As(err, &unsupported) {
				level = zap.DebugLevel
			}
			p.logger.Log(level, "extraction failed", zap.String("path", path), zap.Error(err))
		}
	}
}

// OnRemove adapts Remove to a Watcher callback; failures are logged.
func (p *Processor) OnRemove(ctx context.Context) func(string) {
	return func(path string) {
		if err := p.Remove(ctx, path); err != nil {
			p.logger.Warn("cleanup failed", zap.String("path", path), zap.Error(err))
		}
	}
}

// outputPaths keeps the source extension in the names so report.pdf and
// report.docx do not collide.
func (p *Processor) outputPaths(path string) (txt, js string) {
	base := filepath.Join(p.outputDir, filepath.Base(path))
	return base + ".txt", base + ".json"
}

func (p *Processor) writeOutputs(path string, env extract.Envelope) error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	txt, js := p.outputPaths(path)
	if err := writeFileAtomic(txt, []byte(env.TextPayload)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return writeFileAtomic(js, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".doctext-*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

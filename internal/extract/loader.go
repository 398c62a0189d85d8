package extract

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hyperjump/doctext/internal/ocr"
	"github.com/hyperjump/doctext/internal/workpool"
	"go.uber.org/zap"
)

// Loader runs the fallback chain over its strategies.
type Loader struct {
	strategies []Strategy
	preferOCR  bool
	executor   workpool.Executor
	ocrConfig  ocr.Config
	logger     *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithStrategies replaces the built-in strategies. The order given is the base order.
func WithStrategies(strategies ...Strategy) Option {
	return func(l *Loader) { l.strategies = slices.Clone(strategies) }
}

// WithPreferOCR tries the OCR strategies first and, unless WithExecutor is
// given, runs them on the process-wide worker pool.
func WithPreferOCR(prefer bool) Option {
	return func(l *Loader) { l.preferOCR = prefer }
}

// WithExecutor runs OCR strategies on e.
func WithExecutor(e workpool.Executor) Option {
	return func(l *Loader) { l.executor = e }
}

// WithOCRConfig sets the OCR settings used by the built-in strategies.
// It has no effect together with WithStrategies.
func WithOCRConfig(cfg ocr.Config) Option {
	return func(l *Loader) { l.ocrConfig = cfg }
}

// WithLogger sets a logger for per-attempt debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader returns a Loader. Without options it uses the built-in strategies
// with OCR settings from the environment.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{ocrConfig: ocr.ConfigFromEnv()}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.strategies == nil {
		l.strategies = DefaultStrategies(l.ocrConfig)
	}
	if l.executor == nil && l.preferOCR {
		l.executor = workpool.Default()
	}
	return l
}

// Strategies returns the strategies in the order Load tries them.
func (l *Loader) Strategies() []Strategy {
	return slices.Clone(Order(l.strategies, l.preferOCR))
}

// Load extracts text from src with the first strategy that accepts it and
// succeeds. filename, if set, names the document and supplies the extension
// for byte and stream sources.
//
// Errors: *InvalidSourceError if src cannot be resolved,
// *UnsupportedDocumentError if no strategy accepts it, *ExtractionFailedError
// (wrapping the last failure) if every accepting strategy fails. Executor and
// context failures are returned as-is.
func (l *Loader) Load(ctx context.Context, src Source, filename string) (*Result, error) {
	n, err := Normalize(src, filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := n.Cleanup(); err != nil {
			l.logger.Warn("temp file cleanup failed", zap.String("path", n.Path), zap.Error(err))
		}
	}()

	var last Outcome
	for _, s := range Order(l.strategies, l.preferOCR) {
		if !l.canProcess(s, n.Path) {
			continue
		}
		out, err := l.attempt(ctx, s, n.Path)
		if err != nil {
			return nil, err
		}
		if out.OK() {
			return newResult(n.Name, out.Type, out.Text), nil
		}
		last = out
	}
	if last.Err == nil {
		return nil, &UnsupportedDocumentError{Name: n.Name}
	}
	return nil, &ExtractionFailedError{Name: n.Name, Type: last.Type, Err: last.Err}
}

// canProcess runs the admissibility probe; a panicking probe counts as false.
func (l *Loader) canProcess(s Strategy, path string) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			l.logger.Debug("probe panicked, skipping strategy",
				zap.String("strategy", string(s.Type())), zap.Any("panic", v))
			ok = false
		}
	}()
	return s.CanProcess(path)
}

// attempt runs one extraction. The Outcome carries strategy failures; the
// error is reserved for failures that must end the Load.
func (l *Loader) attempt(ctx context.Context, s Strategy, path string) (Outcome, error) {
	start := time.Now()
	var text string
	var err error
	pooled := l.executor != nil && s.Type().IsOCR()
	if pooled {
		text, err = l.executor.Submit(ctx, func(ctx context.Context) (string, error) {
			return s.ExtractText(ctx, path)
		})
		if err != nil && workpool.IsExecutorError(err) {
			return Outcome{}, err
		}
	} else {
		text, err = s.ExtractText(ctx, path)
	}
	l.logger.Debug("extraction attempt",
		zap.String("strategy", string(s.Type())),
		zap.Bool("pooled", pooled),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, fmt.Errorf("%s extraction interrupted: %w", s.Type(), ctxErr)
		}
		return Outcome{Type: s.Type(), Err: err}, nil
	}
	return Outcome{Type: s.Type(), Text: text}, nil
}

// Load is a convenience for NewLoader(opts...).Load(ctx, src, filename).
func Load(ctx context.Context, src Source, filename string, opts ...Option) (*Result, error) {
	return NewLoader(opts...).Load(ctx, src, filename)
}

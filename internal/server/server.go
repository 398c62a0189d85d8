// Package server provides the HTTP API for doctext.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/internal/workpool"
	"go.uber.org/zap"
)

// WatchService manages watched directories (implemented by watcher.Watcher).
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the doctext API.
type Server struct {
	config     *config.Config
	configPath string
	configMu   sync.Mutex

	storage      storage.Storage
	watch        WatchService
	executor     workpool.Executor
	ownsExecutor bool
	loaderOpts   []extract.Option
	loaders      map[bool]*extract.Loader // keyed by preferOCR

	logger    *zap.Logger
	server    *http.Server
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStorage persists every successful extraction and enables the
// /api/v1/documents routes.
func WithStorage(st storage.Storage) Option {
	return func(s *Server) { s.storage = st }
}

// WithWatch enables the watch directory routes. When configPath is set,
// directory changes are saved back to it.
func WithWatch(ws WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = ws
		s.configPath = configPath
	}
}

// WithExecutor runs OCR strategies on e instead of a server-owned pool.
func WithExecutor(e workpool.Executor) Option {
	return func(s *Server) { s.executor = e }
}

// WithLoaderOptions appends options to every loader the server builds.
func WithLoaderOptions(opts ...extract.Option) Option {
	return func(s *Server) { s.loaderOpts = append(s.loaderOpts, opts...) }
}

// NewServer creates a server. Without WithExecutor it owns a lazily started
// worker pool sized by cfg.Extract.Workers, closed by Stop.
func NewServer(cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{config: cfg, logger: logger, startedAt: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	if s.executor == nil {
		s.executor = workpool.NewLazy(cfg.Extract.Workers)
		s.ownsExecutor = true
	}
	base := []extract.Option{
		extract.WithOCRConfig(cfg.OCR),
		extract.WithLogger(logger),
		extract.WithExecutor(s.executor),
	}
	base = slices.Clip(append(base, s.loaderOpts...))
	s.loaders = map[bool]*extract.Loader{
		false: extract.NewLoader(append(base, extract.WithPreferOCR(false))...),
		true:  extract.NewLoader(append(base, extract.WithPreferOCR(true))...),
	}
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/gettext", s.handleExtract)
	r.Post("/api/v1/extract", s.handleExtract)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server and the pool it owns.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if closer, ok := s.executor.(interface{ Close() error }); ok && s.ownsExecutor {
		err = errors.Join(err, closer.Close())
	}
	return err
}

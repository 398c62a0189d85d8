package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/storage"
	"go.uber.org/zap"
)

const (
	uploadField      = "file"
	defaultListLimit = 20
	maxListLimit     = 100
	multipartMemory  = 8 << 20
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Extract.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, `missing multipart field "file"`)
		return
	}
	defer file.Close()

	preferOCR := s.config.Extract.PreferOCR
	if v := r.URL.Query().Get("prefer_ocr"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid prefer_ocr value")
			return
		}
		preferOCR = b
	}

	s.logger.Debug("extract request",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
		zap.Bool("prefer_ocr", preferOCR))
	start := time.Now()
	res, err := s.loaders[preferOCR].Load(r.Context(), extract.FromReader(file), header.Filename)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		} else {
			s.logger.Debug("extraction rejected", zap.String("filename", header.Filename), zap.Error(err))
		}
		s.respondError(w, status, err.Error())
		return
	}
	elapsed := time.Since(start)

	if s.storage != nil {
		if err := s.storage.SaveResult(r.Context(), storage.NewRecord(res, "", elapsed)); err != nil {
			s.logger.Warn("failed to store result", zap.String("id", res.ID()), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, res.Envelope(elapsed))
}

// statusFor maps Load errors to HTTP status codes.
func statusFor(err error) int {
	var (
		invalid     *extract.InvalidSourceError
		unsupported *extract.UnsupportedDocumentError
		failed      *extract.ExtractionFailedError
	)
	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &failed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not enabled")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxListLimit)

	recs, err := s.storage.ListResults(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	total, err := s.storage.CountResults(r.Context())
	if err != nil {
		s.logger.Error("count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*storage.Record{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": recs,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.storage.GetResult(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("get document failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "storage not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	err := s.storage.DeleteResult(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	strategies := func(preferOCR bool) []string {
		var out []string
		for _, st := range s.loaders[preferOCR].Strategies() {
			out = append(out, string(st.Type()))
		}
		return out
	}
	resp := map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"strategies": map[string][]string{
			"default":    strategies(false),
			"prefer_ocr": strategies(true),
		},
	}
	if lazy, ok := s.executor.(interface{ Started() bool }); ok {
		resp["ocr_pool_started"] = lazy.Started()
	}
	if s.storage != nil {
		count, err := s.storage.CountResults(r.Context())
		if err != nil {
			s.logger.Error("status: count documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["documents"] = count
		if size, err := storage.DatabaseSizeBytes(s.config.Storage.DatabasePath); err == nil {
			resp["disk_usage_bytes"] = size
		}
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	resp["config"] = map[string]interface{}{
		"ocr_language":     s.config.OCR.Language,
		"ocr_dpi":          s.config.OCR.DPI,
		"prefer_ocr":       s.config.Extract.PreferOCR,
		"workers":          s.config.Extract.Workers,
		"max_upload_bytes": s.config.Extract.MaxUploadBytes,
		"database_path":    s.config.Storage.DatabasePath,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/internal/testfixture"
	"github.com/hyperjump/doctext/internal/workpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "results.db")
	return cfg
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *storage.SQLiteStorage) {
	t.Helper()
	cfg := testConfig(t)
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	srv := NewServer(cfg, zap.NewNop(), append([]Option{WithStorage(store)}, opts...)...)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv, store
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, target, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func serve(srv *Server, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestHandleExtract_TextUpload(t *testing.T) {
	srv, store := newTestServer(t)

	for _, route := range []string{"/gettext", "/api/v1/extract"} {
		w := serve(srv, uploadRequest(t, route, "doc.txt", []byte("This is a TEXT document")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var env extract.Envelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		assert.Equal(t, extract.TypeText, env.DocumentType)
		assert.Equal(t, "doc.txt", env.DocumentName)
		assert.Equal(t, "This is a TEXT document", env.TextPayload)
		assert.Equal(t, len("This is a TEXT document"), env.CharCount)
		assert.NotEmpty(t, env.DocumentID)

		rec, err := store.GetResult(context.Background(), env.DocumentID)
		require.NoError(t, err)
		assert.Equal(t, env.TextPayload, rec.Text)
		assert.Empty(t, rec.SourcePath)
	}
}

func TestHandleExtract_StatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serve(srv, uploadRequest(t, "/api/v1/extract", "blob.bin", []byte{0x00, 0x01, 0x02}))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code, w.Body.String())

	w = serve(srv, uploadRequest(t, "/api/v1/extract", "broken.docx", []byte("not a zip archive")))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = serve(srv, uploadRequest(t, "/api/v1/extract?prefer_ocr=sometimes", "doc.txt", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader([]byte("plain body")))
	r.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, serve(srv, r).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())
	r = httptest.NewRequest(http.MethodPost, "/api/v1/extract", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, serve(srv, r).Code)
}

func TestHandleExtract_UploadTooLarge(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.Extract.MaxUploadBytes = 1024

	w := serve(srv, uploadRequest(t, "/api/v1/extract", "big.txt", bytes.Repeat([]byte("a"), 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&extract.InvalidSourceError{Reason: "bad"}, http.StatusBadRequest},
		{&extract.UnsupportedDocumentError{Name: "x"}, http.StatusUnsupportedMediaType},
		{&extract.ExtractionFailedError{Name: "x", Type: extract.TypeDOCX, Err: errors.New("boom")}, http.StatusUnprocessableEntity},
		{fmt.Errorf("ocr interrupted: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{&workpool.Error{Op: "submit", Err: workpool.ErrClosed}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}

func TestHandleExtract_PreferOCRUsesExecutor(t *testing.T) {
	ocrStub := &stubOCRStrategy{text: "from ocr"}
	pool := workpool.NewLazy(1)
	defer pool.Close()
	srv, _ := newTestServer(t,
		WithExecutor(pool),
		WithLoaderOptions(extract.WithStrategies(extract.NewTextStrategy(), ocrStub)))

	w := serve(srv, uploadRequest(t, "/api/v1/extract", "doc.txt", []byte("plain text")))
	require.Equal(t, http.StatusOK, w.Code)
	var env extract.Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, extract.TypeText, env.DocumentType)
	assert.False(t, pool.Started())

	w = serve(srv, uploadRequest(t, "/api/v1/extract?prefer_ocr=true", "doc.txt", []byte("plain text")))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Equal(t, extract.TypeImage, env.DocumentType)
	assert.Equal(t, "from ocr", env.TextPayload)
	assert.True(t, pool.Started())
}

// stubOCRStrategy accepts every file and claims to be OCR-based.
type stubOCRStrategy struct{ text string }

func (s *stubOCRStrategy) Type() extract.DocumentType { return extract.TypeImage }
func (s *stubOCRStrategy) CanProcess(string) bool     { return true }
func (s *stubOCRStrategy) ExtractText(context.Context, string) (string, error) {
	return s.text, nil
}

func TestDocumentsRoutes(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveResult(ctx, &storage.Record{
			ID: fmt.Sprintf("doc-%d", i), Name: "n.txt", Type: "text", Text: "t",
		}))
	}

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Documents []storage.Record `json:"documents"`
		Total     int64            `json:"total"`
		Limit     int              `json:"limit"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list.Documents, 2)
	assert.Equal(t, int64(3), list.Total)
	assert.Equal(t, 2, list.Limit)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents?offset=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var rec storage.Record
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.Equal(t, "doc-1", rec.ID)

	w = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentsRoutes_NoStorage(t *testing.T) {
	srv := NewServer(testConfig(t), zap.NewNop())
	defer srv.Stop(context.Background())
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	// Extraction still works without a store.
	w = serve(srv, uploadRequest(t, "/gettext", "a.csv", []byte("id,first_name\n1,Ada\n")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndStatus(t *testing.T) {
	srv, _ := newTestServer(t, WithWatch(&mockWatchService{dirs: []string{"/tmp/docs"}}, ""))

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Documents      int64               `json:"documents"`
		Strategies     map[string][]string `json:"strategies"`
		OCRPoolStarted bool                `json:"ocr_pool_started"`
		WatchDirs      []string            `json:"watch_directories"`
		Config         map[string]any      `json:"config"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, []string{"pdf_text", "docx", "text", "csv", "image", "pdf_image"}, status.Strategies["default"])
	assert.Equal(t, []string{"image", "pdf_image", "pdf_text", "docx", "text", "csv"}, status.Strategies["prefer_ocr"])
	assert.False(t, status.OCRPoolStarted)
	assert.Equal(t, []string{"/tmp/docs"}, status.WatchDirs)
	assert.Equal(t, "eng", status.Config["ocr_language"])
}

func TestHandleWatchDirectories(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	mock := &mockWatchService{}
	srv, _ := newTestServer(t, WithWatch(mock, configPath))

	body, _ := json.Marshal(map[string]string{"path": dir})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := serve(srv, r)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{dir}, mock.Directories())

	saved, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, saved.Watch.Directories)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Directories []string `json:"directories"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, []string{dir}, out.Directories)

	w = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/watch/directories?path="+dir, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mock.Directories())
}

func TestHandleWatchDirectoriesAdd_InvalidPath(t *testing.T) {
	srv, _ := newTestServer(t, WithWatch(&mockWatchService{}, ""))

	body, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "nonexistent")})
	w := serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	file := testfixture.WriteFile(t, "file.txt", []byte("x"))
	body, _ = json.Marshal(map[string]string{"path": file})
	w = serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/watch/directories", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(srv, httptest.NewRequest(http.MethodDelete, "/api/v1/watch/directories", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWatchDirectories_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t)
	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/watch/directories", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestStop_ClosesOwnedPool(t *testing.T) {
	srv := NewServer(testConfig(t), zap.NewNop())
	require.NoError(t, srv.Stop(context.Background()))
	_, err := srv.executor.Submit(context.Background(), func(context.Context) (string, error) { return "", nil })
	assert.ErrorIs(t, err, workpool.ErrClosed)
}

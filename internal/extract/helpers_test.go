package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/hyperjump/doctext/internal/workpool"
)

func zipWith(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// stubStrategy is a configurable Strategy that records the paths it saw.
type stubStrategy struct {
	docType     DocumentType
	accept      bool
	probePanics bool
	text        string
	err         error

	mu        sync.Mutex
	probed    []string
	extracted []string
}

func (s *stubStrategy) Type() DocumentType { return s.docType }

func (s *stubStrategy) CanProcess(path string) bool {
	s.mu.Lock()
	s.probed = append(s.probed, path)
	s.mu.Unlock()
	if s.probePanics {
		panic("probe exploded")
	}
	return s.accept
}

func (s *stubStrategy) ExtractText(_ context.Context, path string) (string, error) {
	s.mu.Lock()
	s.extracted = append(s.extracted, path)
	s.mu.Unlock()
	return s.text, s.err
}

func (s *stubStrategy) extractCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.extracted)
}

// countingExecutor runs tasks inline and counts submissions.
type countingExecutor struct {
	mu        sync.Mutex
	submitted int
	fail      error
}

func (e *countingExecutor) Submit(ctx context.Context, task workpool.Task) (string, error) {
	e.mu.Lock()
	e.submitted++
	e.mu.Unlock()
	if e.fail != nil {
		return "", e.fail
	}
	return task(ctx)
}

func (e *countingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitted
}

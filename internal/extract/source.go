package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourcePath
	sourceBytes
	sourceReader
)

// Source is a document input: a path on disk, a byte buffer or a stream.
// Build one with FromPath, FromBytes or FromReader; the zero Source is invalid.
type Source struct {
	kind sourceKind
	path string
	data []byte
	r    io.Reader
}

// FromPath refers to a file that already exists on disk. It is never deleted.
func FromPath(path string) Source {
	return Source{kind: sourcePath, path: path}
}

// FromBytes wraps an in-memory document. It is written to a temp file for the
// duration of a Load.
func FromBytes(data []byte) Source {
	return Source{kind: sourceBytes, data: data}
}

// FromReader wraps a stream. It is drained into a temp file for the duration
// of a Load; the caller keeps ownership of r.
func FromReader(r io.Reader) Source {
	if r == nil {
		return Source{}
	}
	return Source{kind: sourceReader, r: r}
}

// Normalized is a source resolved to a file on disk.
type Normalized struct {
	Path string
	Name string

	once    sync.Once
	cleanup func() error
}

// Temporary reports whether Path is a temp file owned by n.
func (n *Normalized) Temporary() bool {
	return n.cleanup != nil
}

// Cleanup removes the temp file, if any. Only the first call does work.
func (n *Normalized) Cleanup() error {
	var err error
	n.once.Do(func() {
		if n.cleanup != nil {
			err = n.cleanup()
		}
	})
	return err
}

// Normalize resolves src to a file on disk. filename, when non-empty, is used
// as the display name and as the suffix of any temp file so extension-based
// detection keeps working. The caller must call Cleanup on the result.
func Normalize(src Source, filename string) (*Normalized, error) {
	switch src.kind {
	case sourcePath:
		return normalizePath(src.path, filename)
	case sourceBytes:
		return materialize(filename, func(w io.Writer) error {
			_, err := w.Write(src.data)
			return err
		})
	case sourceReader:
		return materialize(filename, func(w io.Writer) error {
			_, err := io.Copy(w, src.r)
			return err
		})
	default:
		return nil, &InvalidSourceError{Reason: "unsupported source; expected path, bytes or reader"}
	}
}

func normalizePath(path, filename string) (*Normalized, error) {
	if path == "" {
		return nil, &InvalidSourceError{Reason: "empty path"}
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &InvalidSourceError{Reason: "resolve path", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &InvalidSourceError{Reason: fmt.Sprintf("file not found: %s", abs), Err: err}
		}
		return nil, &InvalidSourceError{Reason: "stat " + abs, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &InvalidSourceError{Reason: fmt.Sprintf("not a regular file: %s", abs)}
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	name := filename
	if name == "" {
		name = filepath.Base(abs)
	}
	return &Normalized{Path: abs, Name: name}, nil
}

func materialize(filename string, write func(io.Writer) error) (*Normalized, error) {
	suffix := ""
	if base := filepath.Base(filename); filename != "" && base != "." && base != string(filepath.Separator) {
		suffix = "_" + strings.ReplaceAll(base, "*", "_")
	}
	f, err := os.CreateTemp("", "doctext-*"+suffix)
	if err != nil {
		return nil, &InvalidSourceError{Reason: "create temp file", Err: err}
	}
	tmp := f.Name()
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil, &InvalidSourceError{Reason: "write temp file", Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, &InvalidSourceError{Reason: "close temp file", Err: err}
	}
	name := filename
	if name == "" {
		name = filepath.Base(tmp)
	}
	return &Normalized{
		Path:    tmp,
		Name:    name,
		cleanup: func() error { return os.Remove(tmp) },
	}, nil
}

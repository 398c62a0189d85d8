// Package storage defines the persistence interface for extraction results.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/doctext/internal/extract"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("result not found")

// Record is a persisted extraction result.
type Record struct {
	ID         string    `json:"document_id"`
	Name       string    `json:"document_name"`
	Type       string    `json:"document_type"`
	Text       string    `json:"text_payload"`
	SourcePath string    `json:"source_path,omitempty"`
	CharCount  int       `json:"char_count"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRecord builds a Record from a Result. sourcePath is empty for uploads.
func NewRecord(res *extract.Result, sourcePath string, elapsed time.Duration) *Record {
	env := res.Envelope(elapsed)
	return &Record{
		ID:         env.DocumentID,
		Name:       env.DocumentName,
		Type:       string(env.DocumentType),
		Text:       env.TextPayload,
		SourcePath: sourcePath,
		CharCount:  env.CharCount,
		ElapsedMS:  env.ElapsedMS,
	}
}

// Storage defines result persistence operations.
type Storage interface {
	SaveResult(ctx context.Context, rec *Record) error
	GetResult(ctx context.Context, id string) (*Record, error)
	ListResults(ctx context.Context, offset, limit int) ([]*Record, error)
	DeleteResult(ctx context.Context, id string) error
	// DeleteBySource removes every record extracted from sourcePath and
	// returns how many were removed.
	DeleteBySource(ctx context.Context, sourcePath string) (int64, error)

	CountResults(ctx context.Context) (int64, error)

	Close() error
}

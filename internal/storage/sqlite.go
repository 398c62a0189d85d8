package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document_type TEXT NOT NULL,
		text_payload TEXT NOT NULL,
		source_path TEXT,
		char_count INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);
	CREATE INDEX IF NOT EXISTS idx_results_source_path ON results(source_path);
	`
	_, err := db.Exec(schema)
	return err
}

const resultColumns = `id, name, document_type, text_payload, source_path, char_count, elapsed_ms, created_at`

// SaveResult inserts rec, replacing any record with the same ID. CreatedAt is
// set when zero.
func (s *SQLiteStorage) SaveResult(ctx context.Context, rec *Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (`+resultColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Type, rec.Text, nullString(rec.SourcePath), rec.CharCount, rec.ElapsedMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save result %s: %w", rec.ID, err)
	}
	return nil
}

// GetResult returns a record by ID, or ErrNotFound.
func (s *SQLiteStorage) GetResult(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListResults returns records newest first with offset and limit.
func (s *SQLiteStorage) ListResults(ctx context.Context, offset, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteResult removes a record by ID, or returns ErrNotFound.
func (s *SQLiteStorage) DeleteResult(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DeleteBySource removes all records for sourcePath.
func (s *SQLiteStorage) DeleteBySource(ctx context.Context, sourcePath string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE source_path = ?`, sourcePath)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountResults returns the total number of records.
func (s *SQLiteStorage) CountResults(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var source sql.NullString
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.Text, &source,
		&rec.CharCount, &rec.ElapsedMS, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.SourcePath = source.String
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

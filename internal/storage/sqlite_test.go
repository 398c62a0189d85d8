package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/testfixture"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "results.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &Record{ID: "r1", Name: "a.txt", Type: "text", Text: "hello", SourcePath: "/docs/a.txt", CharCount: 5, ElapsedMS: 12}
	if err := store.SaveResult(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetResult(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "a.txt" || got.Text != "hello" || got.SourcePath != "/docs/a.txt" || got.CharCount != 5 || got.ElapsedMS != 12 {
		t.Errorf("got %+v", got)
	}

	rec.Text = "updated"
	if err := store.SaveResult(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetResult(ctx, "r1")
	if got.Text != "updated" {
		t.Errorf("expected replaced text, got %s", got.Text)
	}

	if err := store.DeleteResult(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetResult(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteResult(ctx, "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		rec := &Record{ID: id, Name: id + ".txt", Type: "text", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.SaveResult(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.CountResults(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	page, err := store.ListResults(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != "new" || page[1].ID != "mid" {
		t.Errorf("first page = %v", ids(page))
	}
	page, err = store.ListResults(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "old" {
		t.Errorf("second page = %v", ids(page))
	}
}

func TestSQLiteStorage_DeleteBySource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, rec := range []*Record{
		{ID: "a1", Name: "a", Type: "text", SourcePath: "/docs/a.txt"},
		{ID: "a2", Name: "a", Type: "text", SourcePath: "/docs/a.txt"},
		{ID: "b1", Name: "b", Type: "text", SourcePath: "/docs/b.txt"},
		{ID: "u1", Name: "upload", Type: "text"},
	} {
		if err := store.SaveResult(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.DeleteBySource(ctx, "/docs/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if count, _ := store.CountResults(ctx); count != 2 {
		t.Errorf("remaining %d, want 2", count)
	}
	if got, err := store.GetResult(ctx, "u1"); err != nil || got.SourcePath != "" {
		t.Errorf("upload record: %+v, %v", got, err)
	}
}

func TestNewRecord(t *testing.T) {
	path := testfixture.WriteFile(t, "note.txt", []byte("héllo"))
	res, err := extract.Load(context.Background(), extract.FromPath(path), "")
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecord(res, path, 1500*time.Millisecond)
	if rec.ID != res.ID() || rec.Type != "text" || rec.Name != "note.txt" {
		t.Errorf("got %+v", rec)
	}
	if rec.CharCount != 5 {
		t.Errorf("CharCount = %d, want 5", rec.CharCount)
	}
	if rec.ElapsedMS != 1500 {
		t.Errorf("ElapsedMS = %d, want 1500", rec.ElapsedMS)
	}
}

func ids(recs []*Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

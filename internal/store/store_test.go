package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"studynotes/internal/store"
	"studynotes/pkg/models"
)

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "data", "notes.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveListGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first := &models.Note{Filename: "networks.pdf", Kind: models.KindPDF, OriginalText: "Net (rorewet", Summary: "<h3>Summary</h3>"}
	second := &models.Note{Filename: "os.txt", Kind: models.KindPlainText, OriginalText: "processes", Summary: "<h3>Summary</h3>", Truncated: true}

	for _, n := range []*models.Note{first, second} {
		if err := s.Save(ctx, n); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if n.ID == 0 || n.CreatedAt.IsZero() {
			t.Fatalf("Save() did not set ID/CreatedAt: %+v", n)
		}
	}

	notes, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("List() returned %d notes, want 2", len(notes))
	}
	if notes[0].ID != second.ID || notes[1].ID != first.ID {
		t.Errorf("List() order = [%d %d], want newest first", notes[0].ID, notes[1].ID)
	}
	if !notes[0].Truncated || notes[0].Kind != models.KindPlainText {
		t.Errorf("List()[0] = %+v, want truncated plain-text note", notes[0])
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.OriginalText != "Net (rorewet" || got.Filename != "networks.pdf" {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, first.CreatedAt)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestListEmpty(t *testing.T) {
	s := openTestStore(t)

	notes, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if notes == nil || len(notes) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", notes)
	}
}

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer s.Close()

	if err := s.Save(ctx, &models.Note{Filename: "a.txt", OriginalText: "x", Summary: "y"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpenMigratesLegacyTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "database.db")

	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE notes (id INTEGER PRIMARY KEY, filename TEXT, original_text TEXT, summary TEXT, quiz TEXT)`,
		`INSERT INTO notes (filename, original_text, summary, quiz) VALUES ('old.pdf', 'old text', NULL, 'Included')`,
	} {
		if _, err := legacy.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	legacy.Close()

	s, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() on legacy database error = %v", err)
	}

	note := &models.Note{Filename: "new.txt", Kind: models.KindPlainText, OriginalText: "x", Summary: "y", Truncated: true}
	if err := s.Save(ctx, note); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	notes, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("List() returned %d notes, want 2", len(notes))
	}
	if notes[0].Filename != "new.txt" || !notes[0].Truncated {
		t.Errorf("List()[0] = %+v", notes[0])
	}
	if old := notes[1]; old.Filename != "old.pdf" || old.OriginalText != "old text" || old.Summary != "" || !old.CreatedAt.IsZero() {
		t.Errorf("legacy note = %+v", old)
	}

	s.Close()

	reopened, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	reopened.Close()
}

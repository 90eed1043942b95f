// Package store persists processed notes in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"studynotes/internal/logger"
	"studynotes/pkg/models"
)

// QuizColumnValue is written to the legacy quiz column; the quiz is part of the summary HTML.
const QuizColumnValue = "Included"

// ErrNotFound is returned when no note has the requested ID.
var ErrNotFound = errors.New("note not found")

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	filename      TEXT NOT NULL,
	original_text TEXT NOT NULL,
	summary       TEXT NOT NULL,
	quiz          TEXT NOT NULL DEFAULT '',
	kind          TEXT NOT NULL DEFAULT '',
	truncated     INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
)`

// migrations add the columns a notes table created by earlier releases lacks.
var migrations = []struct {
	column string
	ddl    string
}{
	{"kind", "ALTER TABLE notes ADD COLUMN kind TEXT NOT NULL DEFAULT ''"},
	{"truncated", "ALTER TABLE notes ADD COLUMN truncated INTEGER NOT NULL DEFAULT 0"},
	{"created_at", "ALTER TABLE notes ADD COLUMN created_at TEXT NOT NULL DEFAULT ''"},
}

// noteColumns tolerates NULLs left by legacy rows.
const noteColumns = `id, COALESCE(filename, ''), COALESCE(original_text, ''), COALESCE(summary, ''),
		kind, truncated, created_at`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=10000",
	"PRAGMA synchronous=NORMAL",
}

// SQLiteStore stores notes in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	const op = "Open"

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("%s: create database directory: %w", op, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", op, path, err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %s: %w", op, p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", op, err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &SQLiteStore{db: db, log: logger.WithComponent("store")}
	s.log.Info().Str("path", path).Msg("Database ready")
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA table_info(notes)`)
	if err != nil {
		return fmt.Errorf("read notes columns: %w", err)
	}
	existing := map[string]bool{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("scan notes column: %w", err)
		}
		existing[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read notes columns: %w", err)
	}

	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		if _, err := db.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", m.column, err)
		}
	}
	return nil
}

// Save inserts note and sets its ID and CreatedAt.
func (s *SQLiteStore) Save(ctx context.Context, note *models.Note) error {
	const op = "Save"

	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (filename, original_text, summary, quiz, kind, truncated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.Filename, note.OriginalText, note.Summary, QuizColumnValue,
		string(note.Kind), note.Truncated, note.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%s: insert note: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: read note id: %w", op, err)
	}
	note.ID = id

	s.log.Debug().Int64("note_id", id).Str("filename", note.Filename).Msg("Note saved")
	return nil
}

// List returns all notes, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]models.Note, error) {
	const op = "List"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: query notes: %w", op, err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate notes: %w", op, err)
	}
	return notes, nil
}

// Get returns the note with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Note, error) {
	const op = "Get"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: id %d: %w", op, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &note, nil
}

// Delete removes the note with the given ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	const op = "Delete"

	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: delete note %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: id %d: %w", op, id, ErrNotFound)
	}

	s.log.Info().Int64("note_id", id).Msg("Note deleted")
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (models.Note, error) {
	var (
		note      models.Note
		kind      string
		truncated bool
		createdAt string
	)
	if err := row.Scan(&note.ID, &note.Filename, &note.OriginalText, &note.Summary, &kind, &truncated, &createdAt); err != nil {
		return note, err
	}
	note.Kind = models.Kind(kind)
	note.Truncated = truncated
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		note.CreatedAt = t
	}
	return note, nil
}

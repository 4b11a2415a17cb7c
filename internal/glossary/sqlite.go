package glossary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an SQLite database. Writes are single
// UPSERT statements, so concurrent writers never lose each other's terms.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("glossary migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS glossary (
		term        TEXT PRIMARY KEY,
		definition  TEXT NOT NULL,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// Get mirrors FileStore.Get: exact key first, then lower case, and an empty
// definition counts as not found.
func (s *SQLiteStore) Get(ctx context.Context, term string) (string, bool, error) {
	for _, key := range []string{term, strings.ToLower(term)} {
		var def string
		err := s.db.QueryRowContext(ctx, `SELECT definition FROM glossary WHERE term = ?`, key).Scan(&def)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("reading term %q: %w", term, err)
		}
		return def, def != "", nil
	}
	return "", false, nil
}

func (s *SQLiteStore) Put(ctx context.Context, term, definition string) (Ack, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Ack{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM glossary WHERE term = ?`, term).Scan(&n); err != nil {
		return Ack{}, fmt.Errorf("checking term %q: %w", term, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO glossary (term, definition) VALUES (?, ?)
		ON CONFLICT(term) DO UPDATE SET definition = excluded.definition, updated_at = CURRENT_TIMESTAMP`,
		term, definition)
	if err != nil {
		return Ack{}, fmt.Errorf("writing term %q: %w", term, err)
	}
	if err := tx.Commit(); err != nil {
		return Ack{}, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("glossary term stored", "term", term, "replaced", n > 0)
	return Ack{Term: term, Replaced: n > 0}, nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term FROM glossary ORDER BY term`)
	if err != nil {
		return nil, fmt.Errorf("listing terms: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

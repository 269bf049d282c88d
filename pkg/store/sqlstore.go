package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS pages (
    title      TEXT PRIMARY KEY,
    content    TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLStore keeps pages in a SQLite database. The driver is selected at build
// time: the pure-Go driver by default, the cgo driver under the cgo_sqlite
// tag (see sqlstore_native.go / sqlstore_cgo.go).
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (and if necessary initialises) the database at
// dataSource.
func OpenSQLStore(dataSource string) (*SQLStore, error) {
	db, err := openSQLite(dataSource)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %q: %w", dataSource, err)
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialise sqlite schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ReadPage implements PageStore.
func (s *SQLStore) ReadPage(ctx context.Context, title string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM pages WHERE title = ?`, title).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrPageMissing
	}
	if err != nil {
		return "", &FetchError{Title: title, Err: err}
	}
	return content, nil
}

// WritePage implements PageStore. The read-modify-write runs in one
// transaction so concurrent submissions cannot interleave.
func (s *SQLStore) WritePage(ctx context.Context, req WriteRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &WriteError{Target: req.Target, Err: err}
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT content FROM pages WHERE title = ?`, req.Target).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return &WriteError{Target: req.Target, Err: err}
	}

	content := Apply(existing, req.Text, req.Mode)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (title, content, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(title) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`,
		req.Target, content)
	if err != nil {
		return &WriteError{Target: req.Target, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &WriteError{Target: req.Target, Err: err}
	}
	return nil
}

var _ PageStore = (*SQLStore)(nil)

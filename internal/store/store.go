package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/Emberfield/autodoc/internal/boundary"
)

// Store provides persistence for analyzed files and their entities.
type Store interface {
	// GetFileHash returns the stored hash for a path, or "" if not analyzed.
	GetFileHash(path string) (string, error)
	// ReplaceFile records a file and swaps its entities for records in a
	// single transaction.
	ReplaceFile(path, hash string, records []boundary.Record) error
	// FileEntities returns a file's entities in extraction order.
	FileEntities(path string) ([]boundary.Record, error)
	// ListEntities returns entities matching f, ordered by file then position.
	ListEntities(f Filter) ([]boundary.Record, error)
	// Search matches query case-insensitively against names and docstrings
	// of the entities selected by f. Name hits rank above docstring-only
	// hits.
	Search(query string, f Filter) ([]SearchResult, error)
	// Endpoints returns every entity flagged as an API endpoint.
	Endpoints() ([]boundary.Record, error)
	// Files lists analyzed files ordered by path.
	Files() ([]FileRecord, error)
	// DeleteFile removes a file and its entities.
	DeleteFile(path string) error
	// DeleteAll removes all files and entities.
	DeleteAll() error
	// GetMeta returns a metadata value by key, or "" if not set.
	GetMeta(key string) (string, error)
	// SetMeta sets a metadata key-value pair.
	SetMeta(key, value string) error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// Open creates or opens a SQLite database at the given path and initializes
// the schema. A nil logger falls back to the logrus standard logger.
func Open(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Analysis workers write concurrently; one connection serializes them.
	db.SetMaxOpenConns(1)

	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	logger.WithField("path", dbPath).Debug("opened entity store")
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) GetFileHash(path string) (string, error) {
	var hash string
	err := s.db.Get(&hash, "SELECT hash FROM files WHERE path = ?", path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return hash, err
}

const upsertFileSQL = `
INSERT INTO files (path, hash, analyzed_at, entity_count)
VALUES (?, ?, CURRENT_TIMESTAMP, ?)
ON CONFLICT(path) DO UPDATE SET
    hash = excluded.hash,
    analyzed_at = excluded.analyzed_at,
    entity_count = excluded.entity_count`

const insertEntitySQL = `
INSERT INTO entities (
    file_id, ordinal, entity_type, name, file_path, line_number, docstring,
    code, is_async, decorators, parameters, return_type, is_internal,
    is_api_endpoint, endpoint_path, http_methods, complexity_score
) VALUES (
    :file_id, :ordinal, :entity_type, :name, :file_path, :line_number, :docstring,
    :code, :is_async, :decorators, :parameters, :return_type, :is_internal,
    :is_api_endpoint, :endpoint_path, :http_methods, :complexity_score
)`

func (s *SQLiteStore) ReplaceFile(path, hash string, records []boundary.Record) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(upsertFileSQL, path, hash, len(records)); err != nil {
		return fmt.Errorf("upsert file %s: %w", path, err)
	}
	var fileID int64
	if err := tx.Get(&fileID, "SELECT id FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("lookup file %s: %w", path, err)
	}
	if _, err := tx.Exec("DELETE FROM entities WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete entities for %s: %w", path, err)
	}

	if len(records) > 0 {
		stmt, err := tx.PrepareNamed(insertEntitySQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, r := range records {
			row, err := toRow(fileID, i, r)
			if err != nil {
				return fmt.Errorf("encode entity %s: %w", r.Name, err)
			}
			if _, err := stmt.Exec(row); err != nil {
				return fmt.Errorf("insert entity %s: %w", r.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"file":     path,
		"entities": len(records),
	}).Debug("stored file entities")
	return nil
}

func (s *SQLiteStore) FileEntities(path string) ([]boundary.Record, error) {
	var rows []entityRow
	err := s.db.Select(&rows, `
		SELECT e.* FROM entities e
		JOIN files f ON f.id = e.file_id
		WHERE f.path = ?
		ORDER BY e.ordinal`, path)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// where translates f into SQL conditions over entities e joined to files f.
func (f Filter) where() ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "e.entity_type = ?")
		args = append(args, f.Type)
	}
	if f.FilePath != "" {
		where = append(where, "f.path = ?")
		args = append(args, f.FilePath)
	}
	if f.NameContains != "" {
		where = append(where, "instr(lower(e.name), lower(?)) > 0")
		args = append(args, f.NameContains)
	}
	if f.EndpointsOnly {
		where = append(where, "e.is_api_endpoint = 1")
	}
	if f.MinComplexity > 0 {
		where = append(where, "e.complexity_score >= ?")
		args = append(args, f.MinComplexity)
	}
	return where, args
}

func (s *SQLiteStore) ListEntities(f Filter) ([]boundary.Record, error) {
	where, args := f.where()

	var b strings.Builder
	b.WriteString("SELECT e.* FROM entities e JOIN files f ON f.id = e.file_id")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY f.path, e.ordinal")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	var rows []entityRow
	if err := s.db.Select(&rows, b.String(), args...); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return decodeRows(rows)
}

const searchSQL = `
SELECT * FROM (
    SELECT e.*,
        CASE WHEN instr(lower(e.name), lower(?)) > 0 THEN 1.0 ELSE 0.5 END AS score,
        f.path AS file_key
    FROM entities e
    JOIN files f ON f.id = e.file_id
    WHERE (instr(lower(e.name), lower(?)) > 0
       OR instr(lower(coalesce(e.docstring, '')), lower(?)) > 0)%s
)
ORDER BY score DESC, file_key, ordinal`

func (s *SQLiteStore) Search(query string, f Filter) ([]SearchResult, error) {
	results := []SearchResult{}
	if strings.TrimSpace(query) == "" {
		return results, nil
	}
	where, fargs := f.where()
	extra := ""
	if len(where) > 0 {
		extra = " AND " + strings.Join(where, " AND ")
	}
	q := fmt.Sprintf(searchSQL, extra)
	args := append([]any{query, query, query}, fargs...)
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var rows []searchRow
	if err := s.db.Select(&rows, q, args...); err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("decode entity %d: %w", row.ID, err)
		}
		results = append(results, SearchResult{Record: r, Score: row.Score})
	}
	return results, nil
}

func (s *SQLiteStore) Endpoints() ([]boundary.Record, error) {
	return s.ListEntities(Filter{EndpointsOnly: true})
}

func (s *SQLiteStore) Files() ([]FileRecord, error) {
	files := []FileRecord{}
	err := s.db.Select(&files, "SELECT id, path, hash, analyzed_at, entity_count FROM files ORDER BY path")
	return files, err
}

func (s *SQLiteStore) DeleteFile(path string) error {
	_, err := s.db.Exec("DELETE FROM files WHERE path = ?", path)
	return err
}

func (s *SQLiteStore) DeleteAll() error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM entities", "DELETE FROM files"} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeRows(rows []entityRow) ([]boundary.Record, error) {
	out := make([]boundary.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("decode entity %d: %w", row.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

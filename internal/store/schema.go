package store

import "github.com/jmoiron/sqlx"

const ddl = `
CREATE TABLE IF NOT EXISTS files (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    path         TEXT NOT NULL UNIQUE,
    hash         TEXT NOT NULL,
    analyzed_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    entity_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entities (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id          INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    ordinal          INTEGER NOT NULL,
    entity_type      TEXT NOT NULL,
    name             TEXT NOT NULL,
    file_path        TEXT NOT NULL,
    line_number      INTEGER NOT NULL,
    docstring        TEXT,
    code             TEXT NOT NULL DEFAULT '',
    is_async         BOOLEAN NOT NULL DEFAULT 0,
    decorators       TEXT NOT NULL DEFAULT '[]',
    parameters       TEXT NOT NULL DEFAULT '[]',
    return_type      TEXT,
    is_internal      BOOLEAN NOT NULL DEFAULT 0,
    is_api_endpoint  BOOLEAN NOT NULL DEFAULT 0,
    endpoint_path    TEXT,
    http_methods     TEXT NOT NULL DEFAULT '[]',
    complexity_score INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
CREATE INDEX IF NOT EXISTS idx_entities_endpoint ON entities(is_api_endpoint);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Init creates the schema tables if they don't exist.
func Init(db *sqlx.DB) error {
	_, err := db.Exec(ddl)
	return err
}

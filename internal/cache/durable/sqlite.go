package durable

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Ensure SQLiteStore implements interfaces.Store
var _ interfaces.Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS namespaces (
	name       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	namespace TEXT NOT NULL REFERENCES namespaces(name) ON DELETE CASCADE,
	key       TEXT NOT NULL,
	data      BLOB NOT NULL,
	stored_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// SQLiteStore persists cache namespaces on disk so they survive restarts
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if absent) the database at the configured path
func NewSQLiteStore(cfg *config.SQLiteConfig, logger *zap.Logger) (interfaces.Store, error) {
	dsn := cfg.Path
	if dsn != ":memory:" {
		dsn = filepath.Clean(dsn)
	}
	dsn += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	logger.Info("Opened durable cache store", zap.String("path", cfg.Path))

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Get retrieves an entry from the namespace
func (s *SQLiteStore) Get(namespace, key string) (*models.CacheEntry, bool) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM entries WHERE namespace = ? AND key = ?`, namespace, key).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("Durable cache get error", zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError("durable", "upstream")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("Failed to unmarshal durable cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("durable", "decode")
		s.Delete(namespace, key)
		return nil, false
	}

	return &entry, true
}

// Set stores an entry, creating the namespace if needed
func (s *SQLiteStore) Set(namespace, key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		metrics.RecordCacheError("durable", "encode")
		return fmt.Errorf("marshal durable cache entry: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	if _, err := tx.Exec(`INSERT OR IGNORE INTO namespaces (name, created_at) VALUES (?, ?)`, namespace, now); err != nil {
		metrics.RecordCacheError("durable", "upstream")
		return fmt.Errorf("register namespace: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO entries (namespace, key, data, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET data = excluded.data, stored_at = excluded.stored_at`,
		namespace, key, data, now,
	); err != nil {
		metrics.RecordCacheError("durable", "upstream")
		return fmt.Errorf("store entry: %w", err)
	}

	return tx.Commit()
}

// Delete removes an entry from the namespace
func (s *SQLiteStore) Delete(namespace, key string) {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		s.logger.Error("Failed to delete durable cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Keys lists the keys held in the namespace
func (s *SQLiteStore) Keys(namespace string) ([]string, error) {
	return s.queryStrings(`SELECT key FROM entries WHERE namespace = ? ORDER BY key`, namespace)
}

// CreateNamespace registers an empty namespace
func (s *SQLiteStore) CreateNamespace(namespace string) error {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO namespaces (name, created_at) VALUES (?, ?)`, namespace, time.Now().Unix()); err != nil {
		return fmt.Errorf("create namespace: %w", err)
	}
	return nil
}

// Namespaces lists registered namespaces
func (s *SQLiteStore) Namespaces() ([]string, error) {
	return s.queryStrings(`SELECT name FROM namespaces ORDER BY name`)
}

// DropNamespace removes the namespace; its entries cascade
func (s *SQLiteStore) DropNamespace(namespace string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM namespaces WHERE name = ?`, namespace)
	if err != nil {
		return false, fmt.Errorf("drop namespace: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop namespace: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sqlite: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan sqlite row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

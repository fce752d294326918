package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB is a SQLite database holding any number of buckets.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	d := &DB{db: db, path: dbPath}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		bucket     TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (bucket, key)
	);
	CREATE INDEX IF NOT EXISTS idx_kv_updated ON kv(bucket, updated_at DESC);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// BucketStats holds per-bucket counts.
type BucketStats struct {
	Bucket string `json:"bucket"`
	Keys   int    `json:"keys"`
	Bytes  int64  `json:"bytes"`
}

// Stats returns key counts and payload sizes per bucket.
func (d *DB) Stats(ctx context.Context) ([]BucketStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT bucket, COUNT(*), COALESCE(SUM(LENGTH(value)), 0)
		FROM kv GROUP BY bucket ORDER BY bucket`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BucketStats
	for rows.Next() {
		var b BucketStats
		if err := rows.Scan(&b.Bucket, &b.Keys, &b.Bytes); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SQLite is a Store backed by one bucket of a DB. Values are JSON encoded.
type SQLite[V any] struct {
	db     *DB
	bucket string
}

// NewSQLite returns a store over the named bucket of db.
func NewSQLite[V any](db *DB, bucket string) *SQLite[V] {
	return &SQLite[V]{db: db, bucket: bucket}
}

func (s *SQLite[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	var raw string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE bucket = ? AND key = ?`, s.bucket, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("get %s/%s: %w", s.bucket, key, err)
	}
	var v V
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, false, fmt.Errorf("decode %s/%s: %w", s.bucket, key, err)
	}
	return v, true, nil
}

func (s *SQLite[V]) Put(ctx context.Context, key string, v V) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", s.bucket, key, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.db.ExecContext(ctx,
		`INSERT INTO kv (bucket, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.bucket, key, string(b), now)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *SQLite[V]) Delete(ctx context.Context, key string) error {
	_, err := s.db.db.ExecContext(ctx,
		`DELETE FROM kv WHERE bucket = ? AND key = ?`, s.bucket, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *SQLite[V]) Scan(ctx context.Context, prefix string) ([]Entry[V], error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE bucket = ? AND key LIKE ? ESCAPE '\' ORDER BY key`,
		s.bucket, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.bucket, err)
	}
	defer rows.Close()

	var out []Entry[V]
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var v V
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", s.bucket, key, err)
		}
		out = append(out, Entry[V]{Key: key, Value: v})
	}
	return out, rows.Err()
}

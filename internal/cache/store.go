package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	// sqlite driver
	_ "modernc.org/sqlite"
)

// ErrStorageUnavailable marks every failure of the durable tier.
var ErrStorageUnavailable = errors.New("cache storage unavailable")

// StorageError records which durable operation failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrStorageUnavailable.
func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

func unavailable(op string, err error) error {
	return errors.WithStack(&StorageError{Op: op, Err: err})
}

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache (expires_at);
`

// Row is one durable cache entry.
type Row struct {
	Key       string
	Value     string
	ExpiresAt time.Time
}

// Store is the sqlite-backed durable tier.
type Store struct {
	path string
	db   *sql.DB
}

// OpenStore opens (creating if needed) the sqlite file at path and ensures
// the cache table exists. Safe to call repeatedly against the same file.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, unavailable("mkdir", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, unavailable("open", err)
	}
	// sqlite has a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	s := &Store{path: path, db: db}
	if err := s.exec(ctx, "init", schema); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the sqlite file location.
func (s *Store) Path() string { return s.path }

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return unavailable("close", err)
	}
	return nil
}

// Get returns the row for key regardless of its expiry.
func (s *Store) Get(ctx context.Context, key string) (Row, bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return Row{}, false, unavailable("get", err)
	}
	defer conn.Close()

	var (
		value     string
		expiresAt float64
	)
	err = conn.QueryRowContext(ctx, `SELECT value, expires_at FROM cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, unavailable("get", err)
	}
	return Row{Key: key, Value: value, ExpiresAt: fromEpoch(expiresAt)}, true, nil
}

// Set upserts the row for key.
func (s *Store) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	return s.exec(ctx, "set",
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, toEpoch(expiresAt))
}

// Delete removes the row for key. A missing row is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.exec(ctx, "delete", `DELETE FROM cache WHERE key = ?`, key)
}

// Clear removes every row.
func (s *Store) Clear(ctx context.Context) error {
	return s.exec(ctx, "clear", `DELETE FROM cache`)
}

// Sweep removes rows whose expiry is before now and returns how many went.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, unavailable("sweep", err)
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, `DELETE FROM cache WHERE expires_at < ?`, toEpoch(now))
	if err != nil {
		return 0, unavailable("sweep", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("sweep", err)
	}
	return n, nil
}

// StoreStats counts durable rows.
type StoreStats struct {
	Rows    int64 `json:"rows"`
	Expired int64 `json:"expired"`
}

// Stats counts all rows and the rows already expired at now.
func (s *Store) Stats(ctx context.Context, now time.Time) (StoreStats, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return StoreStats{}, unavailable("stats", err)
	}
	defer conn.Close()

	var st StoreStats
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0) FROM cache`,
		toEpoch(now)).Scan(&st.Rows, &st.Expired)
	if err != nil {
		return StoreStats{}, unavailable("stats", err)
	}
	return st, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return unavailable(op, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromEpoch(f float64) time.Time {
	return time.Unix(0, int64(f*float64(time.Second)))
}

package config

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

const (
	sqliteFileName     = "settings.db"
	sqlitePollInterval = time.Second
)

// SQLiteStore keeps each option as a row of a key/value table.
// The transform runs inside a transaction, so a failed or cancelled
// update leaves every row untouched.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the settings database in configDir.
func NewSQLiteStore(configDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	path := filepath.Join(configDir, sqliteFileName)

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Load reads all rows over the defaults.
func (s *SQLiteStore) Load() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(context.Background(), s.db)
}

// Update applies fn inside a transaction and upserts the changed options.
func (s *SQLiteStore) Update(ctx context.Context, fn models.Transform) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Settings{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	cur, err := s.read(ctx, tx)
	if err != nil {
		return models.Settings{}, err
	}
	next := fn(cur)
	if next == cur {
		return cur, nil
	}

	prev := cur.Values()
	for opt, v := range next.Values() {
		if prev[opt] == v {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, string(opt), v)
		if err != nil {
			return models.Settings{}, fmt.Errorf("save option %s: %w", opt, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Settings{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

// Watch calls fn with the reloaded document whenever another connection
// commits to the database, including from another process. Blocks until ctx
// is cancelled.
func (s *SQLiteStore) Watch(ctx context.Context, fn func(models.Settings)) error {
	last, err := s.dataVersion(ctx)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(sqlitePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		v, err := s.dataVersion(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("config: poll database failed", "path", s.path, "err", err)
			continue
		}
		if v == last {
			continue
		}
		last = v
		st, err := s.Load()
		if err != nil {
			slog.Warn("config: reload after change failed", "path", s.path, "err", err)
			continue
		}
		fn(st)
	}
}

// dataVersion changes whenever another connection commits. Commits made
// through s.db leave it alone.
func (s *SQLiteStore) dataVersion(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("config: read data_version: %w", err)
	}
	return v, nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) read(ctx context.Context, q querier) (models.Settings, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	st := models.DefaultSettings()
	for rows.Next() {
		var key string
		var value bool
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, fmt.Errorf("scan settings: %w", err)
		}
		opt, err := models.ParseOption(key)
		if err != nil {
			// Rows written by a newer version are kept but ignored.
			continue
		}
		st, _ = st.With(opt, value)
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, fmt.Errorf("iterate settings: %w", err)
	}
	return st, nil
}

// Ensure SQLiteStore implements config.Store
var _ Store = (*SQLiteStore)(nil)

package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	path TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at_ms INTEGER NOT NULL
);`

// SQLiteKV stores paths as rows of a single kv table.
type SQLiteKV struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteKV opens (or creates) the database file and its schema.
func OpenSQLiteKV(dbPath string) (*SQLiteKV, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		dbPath, (5 * time.Second).Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return &SQLiteKV{db: db, now: time.Now}, nil
}

func (s *SQLiteKV) Write(ctx context.Context, path string, value []byte) error {
	key, err := validatePath(path)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (path, value, updated_at_ms) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET value = excluded.value, updated_at_ms = excluded.updated_at_ms`,
		key, value, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) ReadAll(ctx context.Context, path string) (Snapshot, error) {
	collection := normalizeCollection(path)

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, value FROM kv WHERE substr(path, 1, ?) = ? ORDER BY path`,
		len(collection), collection)
	if err != nil {
		return Snapshot{}, fmt.Errorf("sqlite read %s: %w", collection, err)
	}
	defer rows.Close()

	children := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return Snapshot{}, err
		}
		if name, ok := directChild(collection, key); ok {
			children[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(collection, children), nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the durable key/value storage plus the activity log.
type Store struct {
	db *sql.DB
}

const busyTimeout = 5000 // milliseconds

// New opens (or creates) the SQLite database at the given path.
//
// Every transaction starts with BEGIN IMMEDIATE so a read-modify-write in
// Update holds the write lock from its first read. Several processes may
// have the file open at once.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_txlock=immediate", dbPath, busyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     INTEGER NOT NULL DEFAULT 0,
		event_type  TEXT NOT NULL,
		content     TEXT DEFAULT '',
		timestamp   DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_task ON events(task_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before payloads were logged.
	s.addColumnIfMissing("events", "payload", "TEXT DEFAULT ''")

	return nil
}

// addColumnIfMissing adds a column to a table if it doesn't exist yet.
func (s *Store) addColumnIfMissing(table, column, colDef string) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return
	}

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			rows.Close()
			return
		}
		if name == column {
			rows.Close()
			return
		}
	}
	rows.Close()

	s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + colDef)
}

// WithTx runs fn inside a transaction, committing on success.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetMany loads several keys at once. Absent keys are missing from the map.
func (s *Store) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	return getMany(ctx, s.db, keys)
}

// Entries lists stored entries whose key starts with prefix, ordered by key.
func (s *Store) Entries(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateFunc gets the stored values of the requested keys and returns the
// values to write plus the activity log lines to append. An empty value
// deletes the key. Returning an error writes nothing.
type UpdateFunc func(stored map[string]string) (values map[string]string, events []Event, err error)

// Update reads keys, hands them to fn and writes its result, all in one
// transaction. No other writer can commit between the read and the write,
// even from another process.
func (s *Store) Update(ctx context.Context, keys []string, fn UpdateFunc) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stored, err := getMany(ctx, tx, keys)
		if err != nil {
			return err
		}
		values, events, err := fn(stored)
		if err != nil {
			return err
		}
		return write(ctx, tx, values, events)
	})
}

// GetEvents returns all events for a task, oldest first.
func (s *Store) GetEvents(ctx context.Context, taskID int64) ([]Event, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE task_id = ? ORDER BY timestamp, id`, taskID)
}

// RecentEvents returns the latest events across everything, oldest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM (SELECT * FROM events ORDER BY id DESC LIMIT ?) ORDER BY id`, limit)
}

const eventColumns = `id, task_id, event_type, content, payload, timestamp`

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Type, &e.Content, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = payload.String
		events = append(events, e)
	}
	return events, rows.Err()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getMany(ctx context.Context, q querier, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := q.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

func write(ctx context.Context, tx *sql.Tx, values map[string]string, events []Event) error {
	now := time.Now().UTC()
	for k, v := range values {
		if v == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
				return fmt.Errorf("delete %s: %w", k, err)
			}
			continue
		}
		if err := setEntry(ctx, tx, k, v, now); err != nil {
			return err
		}
	}
	for _, e := range events {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = now
		}
		if err := insertEvent(ctx, tx, e.TaskID, e.Type, e.Content, e.Payload, ts); err != nil {
			return err
		}
	}
	return nil
}

func setEntry(ctx context.Context, tx *sql.Tx, key, value string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, taskID int64, eventType, content, payload string, ts time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO events (task_id, event_type, content, payload, timestamp) VALUES (?, ?, ?, ?, ?)`,
		taskID, eventType, content, payload, ts,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flemzord/agentgate/pkg/protocol"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// defaultBusyTimeout is the SQLite busy_timeout in milliseconds.
const defaultBusyTimeout = 5000

// SQLiteStore is a Store backed by a SQLite database (modernc.org/sqlite,
// pure Go, no CGO) with WAL mode and a single connection, since SQLite
// serialises writes anyway.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if necessary) a SQLite task store at path.
// The caller closes the store when done.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// migrate creates the tasks table when missing.
func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	context_id  TEXT NOT NULL,
	state       TEXT NOT NULL,
	snapshot    TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_context ON tasks(context_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tasks_state_updated ON tasks(state, updated_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTask implements Store.
func (s *SQLiteStore) SaveTask(ctx context.Context, task protocol.Task) error {
	snapshot, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("sqlite: encode task %s: %w", task.ID, err)
	}

	now := s.now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO tasks (id, context_id, state, snapshot, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state      = excluded.state,
	snapshot   = excluded.snapshot,
	updated_at = excluded.updated_at`,
		task.ID, task.ContextID, string(task.Status.State), string(snapshot), now, now)
	if err != nil {
		return fmt.Errorf("sqlite: save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask implements Store.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (protocol.Task, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM tasks WHERE id = ?`, id).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return protocol.Task{}, ErrNotFound
	}
	if err != nil {
		return protocol.Task{}, fmt.Errorf("sqlite: get task %s: %w", id, err)
	}

	var task protocol.Task
	if err := json.Unmarshal([]byte(snapshot), &task); err != nil {
		return protocol.Task{}, fmt.Errorf("sqlite: decode task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks implements Store.
func (s *SQLiteStore) ListTasks(ctx context.Context, contextID string, limit, offset int) ([]protocol.Task, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	var (
		rows *sql.Rows
		err  error
	)
	if contextID != "" {
		rows, err = s.db.QueryContext(ctx, `
SELECT snapshot FROM tasks WHERE context_id = ?
ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, contextID, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `
SELECT snapshot FROM tasks
ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []protocol.Task
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("sqlite: scan task: %w", err)
		}
		var task protocol.Task
		if err := json.Unmarshal([]byte(snapshot), &task); err != nil {
			return nil, fmt.Errorf("sqlite: decode task: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// PruneTerminal implements Store.
func (s *SQLiteStore) PruneTerminal(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM tasks
WHERE state IN (?, ?, ?) AND updated_at < ?`,
		string(protocol.TaskStateCompleted),
		string(protocol.TaskStateFailed),
		string(protocol.TaskStateCancelled),
		cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune count: %w", err)
	}
	return int(n), nil
}

// Interface guard.
var _ Store = (*SQLiteStore)(nil)

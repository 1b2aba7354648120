// Package checkpoint persists memoized task results and task state
// transitions in a SQLite database, so that re-running a job reuses the tool
// runs that already completed.
package checkpoint

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS memo (
	key        TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL,
	outputs    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS task_state (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT NOT NULL,
	state       TEXT NOT NULL,
	attempt     INTEGER NOT NULL,
	message     TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS task_state_task ON task_state (task_id, id);
`

// Store is a checkpoint database. It is safe for concurrent use.
type Store struct {
	db *sqlx.DB
}

// StateRecord is one recorded transition.
type StateRecord struct {
	ID         int64  `db:"id" json:"-"`
	TaskID     string `db:"task_id" json:"task_id"`
	State      string `db:"state" json:"state"`
	Attempt    int    `db:"attempt" json:"attempt"`
	Message    string `db:"message" json:"message,omitempty"`
	RecordedAt int64  `db:"recorded_at" json:"recorded_at"`
}

// Time is when the transition was recorded.
func (r StateRecord) Time() time.Time {
	return time.UnixMilli(r.RecordedAt)
}

// Open opens, creating if needed, the checkpoint database at path.
func Open(path string) (*Store, error) {
	if driverName == "" {
		return nil, errors.New("checkpointing requires a cgo-enabled build")
	}

	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	db, err := sqlx.Connect(driverName, path+sep+"_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, pfx.Err(err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadMemo returns the outputs recorded for a memo key.
func (s *Store) LoadMemo(key string) ([]string, bool, error) {
	var encoded string
	err := s.db.Get(&encoded, "SELECT outputs FROM memo WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, pfx.Err(err)
	}

	var outputs []string
	if err := json.Unmarshal([]byte(encoded), &outputs); err != nil {
		return nil, false, pfx.Err(fmt.Sprintf("memo %s: %v", key, err))
	}

	return outputs, true, nil
}

// SaveMemo records (or replaces) the outputs of a completed task.
func (s *Store) SaveMemo(key, taskID string, outputs []string) error {
	encoded, err := json.Marshal(outputs)
	if err != nil {
		return pfx.Err(err)
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO memo (key, task_id, outputs, created_at) VALUES (?, ?, ?, ?)`,
		key, taskID, string(encoded), time.Now().UnixMilli())

	return pfx.Err(err)
}

// RecordState appends a state transition for a task.
func (s *Store) RecordState(taskID, state string, attempt int, message string) error {
	_, err := s.db.Exec(`INSERT INTO task_state (task_id, state, attempt, message, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		taskID, state, attempt, message, time.Now().UnixMilli())

	return pfx.Err(err)
}

// Latest returns the most recent transition of every task, ordered by task.
func (s *Store) Latest() ([]StateRecord, error) {
	var out []StateRecord
	err := s.db.Select(&out, `
SELECT t.id, t.task_id, t.state, t.attempt, t.message, t.recorded_at
FROM task_state t
JOIN (SELECT task_id, MAX(id) AS id FROM task_state GROUP BY task_id) last ON last.id = t.id
ORDER BY t.task_id`)

	return out, pfx.Err(err)
}

// History returns every transition of one task, oldest first.
func (s *Store) History(taskID string) ([]StateRecord, error) {
	var out []StateRecord
	err := s.db.Select(&out, `
SELECT id, task_id, state, attempt, message, recorded_at
FROM task_state WHERE task_id = ? ORDER BY id`, taskID)

	return out, pfx.Err(err)
}

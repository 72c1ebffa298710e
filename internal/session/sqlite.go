package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    call_id    TEXT PRIMARY KEY,
    profile    TEXT NOT NULL DEFAULT '{}',
    turns      TEXT NOT NULL DEFAULT '[]',
    state      TEXT NOT NULL DEFAULT 'active',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_state_updated ON sessions(state, updated_at);
`

// SQLiteStore implements Store backed by a SQLite database, so sessions
// survive process restarts and webhook redeliveries land on consistent
// state. Per-call locking still lives in process: one salesline instance
// owns the database.
type SQLiteStore struct {
	*callLocks
	db *sql.DB
}

// DefaultDBPath returns the default database path
// (~/.local/share/salesline/sessions.db).
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "salesline", "sessions.db"), nil
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{callLocks: newCallLocks(), db: db}, nil
}

func (s *SQLiteStore) GetOrCreate(callID string, lookup LookupFunc) (*Session, bool, error) {
	if sess, err := s.Get(callID); err == nil {
		return sess, false, nil
	} else if err != ErrUnknownSession {
		return nil, false, err
	}

	p, err := lookup()
	if err != nil {
		return nil, false, err
	}

	profileJSON, err := json.Marshal(p)
	if err != nil {
		return nil, false, fmt.Errorf("marshal profile: %w", err)
	}

	now := time.Now()
	_, err = s.db.Exec(`
		INSERT INTO sessions (call_id, profile, turns, state, created_at, updated_at)
		VALUES (?, ?, '[]', ?, ?, ?)`,
		callID, string(profileJSON), string(StateActive),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}

	return &Session{
		CallID:    callID,
		Profile:   p,
		State:     StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, true, nil
}

func (s *SQLiteStore) Get(callID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT call_id, profile, turns, state, created_at, updated_at
		FROM sessions WHERE call_id = ?`, callID)

	var sess Session
	var profileJSON, turnsJSON, state, createdAt, updatedAt string
	err := row.Scan(&sess.CallID, &profileJSON, &turnsJSON, &state, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal([]byte(profileJSON), &sess.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
		return nil, fmt.Errorf("unmarshal turns: %w", err)
	}
	sess.Turns = turns
	sess.State = State(state)
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &sess, nil
}

func (s *SQLiteStore) Append(callID string, turns ...Turn) error {
	sess, err := s.Get(callID)
	if err != nil {
		return err
	}
	return s.ReplaceTurns(callID, append(sess.Turns, turns...))
}

// ReplaceTurns writes the whole turn sequence in one UPDATE, so a
// concurrent reader sees either the old or the new sequence.
func (s *SQLiteStore) ReplaceTurns(callID string, turns []Turn) error {
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE sessions SET turns = ?, updated_at = ? WHERE call_id = ?`,
		string(turnsJSON), time.Now().Format(time.RFC3339Nano), callID,
	)
	if err != nil {
		return fmt.Errorf("replace turns: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrUnknownSession
	}
	return nil
}

func (s *SQLiteStore) Close(callID string) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET state = ?, updated_at = ? WHERE call_id = ?`,
		string(StateClosed), time.Now().Format(time.RFC3339Nano), callID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ResetAll() error {
	if _, err := s.db.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("reset sessions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PurgeClosed(keep time.Duration) (int, error) {
	cutoff := time.Now().Add(-keep).Format(time.RFC3339Nano)
	result, err := s.db.Exec(`
		DELETE FROM sessions WHERE state = ? AND updated_at < ?`,
		string(StateClosed), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)

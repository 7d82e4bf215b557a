package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/workclock/workclock/internal/model"
)

// Storage keys. The store is a small key-value table holding whole JSON
// blobs; every write replaces the full value under its key.
const (
	KeySettings     = "settings"
	KeyRecords      = "records"
	KeyCurrentTimer = "currentTimer"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("key not found")

	// ErrUnavailable is returned when the persistence medium cannot be
	// reached or refuses the operation.
	ErrUnavailable = errors.New("storage unavailable")
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Store is the persistent key-value store backing timer state, settings
// and work records.
type Store struct {
	db *sqlx.DB
}

// Open opens the SQLite database at path, creating file and schema on
// first use.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w: %v", dir, ErrUnavailable, err)
		}
	}
	// WAL with a busy timeout: the daemon ticks while transient commands
	// read and write the same file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w: %v", path, ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising database %s: %w: %v", path, ErrUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw JSON value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading key %q: %w: %v", key, ErrUnavailable, err)
	}
	return []byte(value), nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return fmt.Errorf("writing key %q: %w: %v", key, ErrUnavailable, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("removing key %q: %w: %v", key, ErrUnavailable, err)
	}
	return nil
}

// UpdateSetting sets one dotted path inside the settings blob, e.g.
// "features.export", creating intermediate objects as needed, and writes
// the whole blob back.
func (s *Store) UpdateSetting(path string, value any) error {
	root, err := s.settingsMap()
	if err != nil {
		return err
	}
	segs := strings.Split(path, ".")
	node := root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	node[segs[len(segs)-1]] = value

	data, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return s.Set(KeySettings, data)
}

// settingsMap loads the settings blob as a generic map, starting from the
// defaults when nothing usable is stored.
func (s *Store) settingsMap() (map[string]any, error) {
	raw, err := s.Get(KeySettings)
	if errors.Is(err, ErrNotFound) {
		raw, err = json.Marshal(model.DefaultSettings())
		if err != nil {
			return nil, fmt.Errorf("encoding default settings: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	root := map[string]any{}
	if err := json.Unmarshal(raw, &root); err != nil {
		// Unreadable blob: start over from the defaults.
		data, derr := json.Marshal(model.DefaultSettings())
		if derr != nil {
			return nil, fmt.Errorf("encoding default settings: %w", derr)
		}
		root = map[string]any{}
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decoding default settings: %w", err)
		}
	}
	return root, nil
}

// Snapshot loads the persisted timer snapshot. ErrNotFound means no timer
// state is stored (Idle).
func (s *Store) Snapshot() (model.TimerSnapshot, error) {
	raw, err := s.Get(KeyCurrentTimer)
	if err != nil {
		return model.TimerSnapshot{}, err
	}
	var snap model.TimerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.TimerSnapshot{}, fmt.Errorf("decoding timer snapshot: %w", err)
	}
	return snap, nil
}

// SaveSnapshot overwrites the persisted timer snapshot.
func (s *Store) SaveSnapshot(snap model.TimerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding timer snapshot: %w", err)
	}
	return s.Set(KeyCurrentTimer, data)
}

// RemoveSnapshot deletes the persisted timer snapshot.
func (s *Store) RemoveSnapshot() error {
	return s.Remove(KeyCurrentTimer)
}

// Settings loads the stored settings, falling back to the defaults when
// absent or unreadable. The returned work type list is never empty.
func (s *Store) Settings() (model.Settings, error) {
	raw, err := s.Get(KeySettings)
	if errors.Is(err, ErrNotFound) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	var st model.Settings
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.DefaultSettings(), nil
	}
	if st.Features == nil {
		st.Features = model.DefaultSettings().Features
	}
	if len(st.WorkTypes) == 0 {
		st.WorkTypes = model.DefaultSettings().WorkTypes
	}
	return st, nil
}

// SaveSettings overwrites the stored settings.
func (s *Store) SaveSettings(st model.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return s.Set(KeySettings, data)
}

// Records loads all stored work records. Absent means none yet.
func (s *Store) Records() ([]model.WorkRecord, error) {
	raw, err := s.Get(KeyRecords)
	if errors.Is(err, ErrNotFound) {
		return []model.WorkRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	var records []model.WorkRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

// SaveRecords overwrites the stored record list.
func (s *Store) SaveRecords(records []model.WorkRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return s.Set(KeyRecords, data)
}

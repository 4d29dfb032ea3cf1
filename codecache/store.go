package codecache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("garnet.codecache")

// ErrNotFound indicates the requested body is not cached.
var ErrNotFound = errors.New("body not found")

// Entry describes one cached body.
type Entry struct {
	Key     string // hex cache key
	Name    string
	Size    int
	Created time.Time
}

// Store is a SQLite table of encoded bodies.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS bodies (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// KeyString renders a cache key the way the store keys it.
func KeyString(key [32]byte) string {
	return hex.EncodeToString(key[:])
}

// Put stores encoded body data under key, replacing any earlier entry.
func (s *Store) Put(key [32]byte, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO bodies (key, name, data, created) VALUES (?, ?, ?, ?)",
		KeyString(key), name, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing body %s: %w", name, err)
	}
	log.Debugf("stored %s (%d bytes)", name, len(data))
	return nil
}

// Get returns the data stored under key.
func (s *Store) Get(key [32]byte) ([]byte, error) {
	return s.get("key = ?", KeyString(key))
}

// GetPrefix returns the single entry whose key starts with prefix.
func (s *Store) GetPrefix(prefix string) (string, []byte, error) {
	prefix = strings.ToLower(prefix)
	if prefix == "" || strings.Trim(prefix, "0123456789abcdef") != "" {
		return "", nil, fmt.Errorf("invalid key prefix %q", prefix)
	}
	rows, err := s.db.Query("SELECT key, data FROM bodies WHERE key LIKE ? LIMIT 2", prefix+"%")
	if err != nil {
		return "", nil, fmt.Errorf("querying bodies: %w", err)
	}
	defer rows.Close()
	var key string
	var data []byte
	n := 0
	for rows.Next() {
		if err := rows.Scan(&key, &data); err != nil {
			return "", nil, fmt.Errorf("scanning body: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("querying bodies: %w", err)
	}
	switch n {
	case 0:
		return "", nil, ErrNotFound
	case 1:
		return key, data, nil
	}
	return "", nil, fmt.Errorf("key prefix %q is ambiguous", prefix)
}

func (s *Store) get(where string, arg any) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM bodies WHERE "+where, arg).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading body: %w", err)
	}
	return data, nil
}

// List returns every entry, oldest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT key, name, length(data), created FROM bodies ORDER BY created, key")
	if err != nil {
		return nil, fmt.Errorf("listing bodies: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Key, &e.Name, &e.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning body: %w", err)
		}
		e.Created = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the entry for key.
func (s *Store) Delete(key [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec("DELETE FROM bodies WHERE key = ?", KeyString(key)); err != nil {
		return fmt.Errorf("deleting body: %w", err)
	}
	return nil
}

// Purge removes every entry and returns how many there were.
func (s *Store) Purge() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM bodies")
	if err != nil {
		return 0, fmt.Errorf("purging bodies: %w", err)
	}
	return res.RowsAffected()
}

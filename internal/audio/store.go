package audio

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists probed durations across restarts. Rows are keyed by path
// and only trusted while size and modification time still match.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore opens (or creates) the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS durations (
			path     TEXT PRIMARY KEY,
			size     INTEGER NOT NULL,
			mod_ns   INTEGER NOT NULL,
			dur_ns   INTEGER NOT NULL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

// Lookup returns the stored duration of path if it was probed at this size
// and modification time.
func (s *Store) Lookup(path string, size int64, mod time.Time) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dur int64
	err := s.db.QueryRow(`SELECT dur_ns FROM durations WHERE path = ? AND size = ? AND mod_ns = ?`,
		path, size, mod.UnixNano()).Scan(&dur)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return time.Duration(dur), true, nil
}

func (s *Store) Save(path string, size int64, mod time.Time, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO durations (path, size, mod_ns, dur_ns) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET size=excluded.size, mod_ns=excluded.mod_ns, dur_ns=excluded.dur_ns`,
		path, size, mod.UnixNano(), int64(d))
	return err
}

// Forget drops rows whose path is no longer in keep.
func (s *Store) Forget(keep func(path string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT path FROM durations`)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, err
		}
		if !keep(p) {
			stale = append(stale, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, p := range stale {
		if _, err := s.db.Exec(`DELETE FROM durations WHERE path = ?`, p); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Package store persists uploaded sessions, track definitions and segmented
// lap results in sqlite. Raw log bytes are the canonical session storage:
// parsing is pure, so a ParsedFile is reconstructed from them on demand
// instead of persisting samples row-wise.
package store

import (
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/apex-data/laptrace/internal/timeutil"
)

// ErrNotFound reports a lookup for an id that is not in the store.
var ErrNotFound = errors.New("not found")

type Store struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		format        TEXT NOT NULL,
		sample_count  BIGINT NOT NULL,
		duration_ms   BIGINT NOT NULL,
		start_date    BIGINT,
		min_lat       DOUBLE NOT NULL,
		min_lon       DOUBLE NOT NULL,
		max_lat       DOUBLE NOT NULL,
		max_lon       DOUBLE NOT NULL,
		raw           BLOB NOT NULL,
		created_at    BIGINT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tracks (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		sf_a_lat      DOUBLE NOT NULL,
		sf_a_lon      DOUBLE NOT NULL,
		sf_b_lat      DOUBLE NOT NULL,
		sf_b_lon      DOUBLE NOT NULL,
		s2_a_lat      DOUBLE,
		s2_a_lon      DOUBLE,
		s2_b_lat      DOUBLE,
		s2_b_lon      DOUBLE,
		s3_a_lat      DOUBLE,
		s3_a_lon      DOUBLE,
		s3_b_lat      DOUBLE,
		s3_b_lon      DOUBLE,
		created_at    BIGINT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS lap_cache (
		session_id    TEXT NOT NULL,
		track_id      TEXT NOT NULL,
		number        BIGINT NOT NULL,
		start_index   BIGINT NOT NULL,
		end_index     BIGINT NOT NULL,
		start_ms      DOUBLE NOT NULL,
		end_ms        DOUBLE NOT NULL,
		time_ms       DOUBLE NOT NULL,
		max_speed_mps DOUBLE NOT NULL,
		min_speed_mps DOUBLE NOT NULL,
		s1_ms         DOUBLE,
		s2_ms         DOUBLE,
		s3_ms         DOUBLE,
		PRIMARY KEY (session_id, track_id, number),
		FOREIGN KEY (session_id) REFERENCES sessions(id),
		FOREIGN KEY (track_id) REFERENCES tracks(id)
	);
`

// New opens (creating if needed) the store at path. The schema is applied
// in-line so a fresh database is immediately usable; migrations only matter
// for databases from older installations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{DB: db, path: path, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for created_at timestamps. Tests use a
// timeutil.MockClock for deterministic rows.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

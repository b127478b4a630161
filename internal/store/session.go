package store

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/apex-data/laptrace/internal/telemetry"
)

// Session is the stored summary of one uploaded log file.
type Session struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Format      string           `json:"format"`
	SampleCount int              `json:"sample_count"`
	DurationMs  int64            `json:"duration_ms"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	Bounds      telemetry.Bounds `json:"bounds"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CreateSession persists the raw log bytes (gzip-compressed) together with
// the summary columns derived from its parse.
func (s *Store) CreateSession(name string, raw []byte, f *telemetry.ParsedFile) (*Session, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress session: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress session: %w", err)
	}

	sess := &Session{
		ID:          uuid.NewString(),
		Name:        name,
		Format:      f.Format,
		SampleCount: len(f.Samples),
		DurationMs:  f.DurationMs,
		StartDate:   f.StartDate,
		Bounds:      f.Bounds,
		CreatedAt:   s.clock.Now().UTC().Truncate(time.Second),
	}

	var startUnix *int64
	if sess.StartDate != nil {
		u := sess.StartDate.Unix()
		startUnix = &u
	}

	_, err := s.Exec(`
		INSERT INTO sessions (
			id, name, format, sample_count, duration_ms, start_date,
			min_lat, min_lon, max_lat, max_lon, raw, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Format, sess.SampleCount, sess.DurationMs, startUnix,
		sess.Bounds.MinLat, sess.Bounds.MinLon, sess.Bounds.MaxLat, sess.Bounds.MaxLon,
		buf.Bytes(), sess.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sess, nil
}

const sessionColumns = `
	id, name, format, sample_count, duration_ms, start_date,
	min_lat, min_lon, max_lat, max_lon, created_at`

// GetSession retrieves one session summary by id.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.QueryRow(`SELECT`+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all session summaries, newest first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.Query(`SELECT` + sessionColumns + ` FROM sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

// GetSessionRaw returns the original uploaded bytes of a session.
func (s *Store) GetSessionRaw(id string) ([]byte, error) {
	var compressed []byte
	err := s.QueryRow(`SELECT raw FROM sessions WHERE id = ?`, id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session raw: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress session: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress session: %w", err)
	}

	return raw, nil
}

// DeleteSession removes a session and its cached laps.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lap_cache WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session laps: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess                           Session
		startUnix                      sql.NullInt64
		createdUnix                    int64
		minLat, minLon, maxLat, maxLon float64
	)
	err := row.Scan(
		&sess.ID,
		&sess.Name,
		&sess.Format,
		&sess.SampleCount,
		&sess.DurationMs,
		&startUnix,
		&minLat,
		&minLon,
		&maxLat,
		&maxLon,
		&createdUnix,
	)
	if err != nil {
		return nil, err
	}

	sess.Bounds.Extend(minLat, minLon)
	sess.Bounds.Extend(maxLat, maxLon)
	if startUnix.Valid {
		t := time.Unix(startUnix.Int64, 0).UTC()
		sess.StartDate = &t
	}
	sess.CreatedAt = time.Unix(createdUnix, 0).UTC()

	return &sess, nil
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/apex-data/laptrace/internal/laps"
)

// SaveLaps replaces the cached segmenter output for one (session, track)
// pair wholesale. Laps are a derived view, so a re-segmentation always
// overwrites rather than merges.
func (s *Store) SaveLaps(sessionID, trackID string, in []laps.Lap) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to save laps: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM lap_cache WHERE session_id = ? AND track_id = ?`,
		sessionID, trackID,
	); err != nil {
		return fmt.Errorf("failed to save laps: %w", err)
	}

	for _, lap := range in {
		var s1, s2, s3 *float64
		if lap.Sectors != nil {
			s1, s2, s3 = &lap.Sectors.S1Ms, &lap.Sectors.S2Ms, &lap.Sectors.S3Ms
		}
		if _, err := tx.Exec(`
			INSERT INTO lap_cache (
				session_id, track_id, number, start_index, end_index,
				start_ms, end_ms, time_ms, max_speed_mps, min_speed_mps,
				s1_ms, s2_ms, s3_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, trackID, lap.Number, lap.StartIndex, lap.EndIndex,
			lap.StartMs, lap.EndMs, lap.TimeMs, lap.MaxSpeedMps, lap.MinSpeedMps,
			s1, s2, s3,
		); err != nil {
			return fmt.Errorf("failed to save lap %d: %w", lap.Number, err)
		}
	}

	return tx.Commit()
}

// CachedLaps returns the stored segmenter output for a (session, track)
// pair, in lap order. An empty result means no cache entry; callers
// re-segment in that case.
func (s *Store) CachedLaps(sessionID, trackID string) ([]laps.Lap, error) {
	rows, err := s.Query(`
		SELECT number, start_index, end_index, start_ms, end_ms, time_ms,
		       max_speed_mps, min_speed_mps, s1_ms, s2_ms, s3_ms
		FROM lap_cache
		WHERE session_id = ? AND track_id = ?
		ORDER BY number`,
		sessionID, trackID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load laps: %w", err)
	}
	defer rows.Close()

	var out []laps.Lap
	for rows.Next() {
		var (
			lap        laps.Lap
			s1, s2, s3 sql.NullFloat64
		)
		if err := rows.Scan(
			&lap.Number, &lap.StartIndex, &lap.EndIndex,
			&lap.StartMs, &lap.EndMs, &lap.TimeMs,
			&lap.MaxSpeedMps, &lap.MinSpeedMps,
			&s1, &s2, &s3,
		); err != nil {
			return nil, fmt.Errorf("failed to load laps: %w", err)
		}
		if s1.Valid && s2.Valid && s3.Valid {
			lap.Sectors = &laps.Sectors{S1Ms: s1.Float64, S2Ms: s2.Float64, S3Ms: s3.Float64}
		}
		out = append(out, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load laps: %w", err)
	}

	return out, nil
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/geo"
)

// Track is a stored course definition.
type Track struct {
	ID        string            `json:"id"`
	Course    course.Definition `json:"course"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateTrack validates and persists a course definition.
func (s *Store) CreateTrack(def *course.Definition) (*Track, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid course: %w", err)
	}

	track := &Track{
		ID:        uuid.NewString(),
		Course:    *def,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Second),
	}

	var s2a, s2b, s3a, s3b *geo.Point
	if def.Sector2 != nil {
		s2a, s2b = &def.Sector2.A, &def.Sector2.B
	}
	if def.Sector3 != nil {
		s3a, s3b = &def.Sector3.A, &def.Sector3.B
	}

	_, err := s.Exec(`
		INSERT INTO tracks (
			id, name, sf_a_lat, sf_a_lon, sf_b_lat, sf_b_lon,
			s2_a_lat, s2_a_lon, s2_b_lat, s2_b_lon,
			s3_a_lat, s3_a_lon, s3_b_lat, s3_b_lon, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, def.Name,
		def.StartFinish.A.Lat, def.StartFinish.A.Lon,
		def.StartFinish.B.Lat, def.StartFinish.B.Lon,
		pointLat(s2a), pointLon(s2a), pointLat(s2b), pointLon(s2b),
		pointLat(s3a), pointLon(s3a), pointLat(s3b), pointLon(s3b),
		track.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create track: %w", err)
	}

	return track, nil
}

const trackColumns = `
	id, name, sf_a_lat, sf_a_lon, sf_b_lat, sf_b_lon,
	s2_a_lat, s2_a_lon, s2_b_lat, s2_b_lon,
	s3_a_lat, s3_a_lon, s3_b_lat, s3_b_lon, created_at`

// GetTrack retrieves one track by id.
func (s *Store) GetTrack(id string) (*Track, error) {
	row := s.QueryRow(`SELECT`+trackColumns+` FROM tracks WHERE id = ?`, id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return track, nil
}

// ListTracks returns all stored tracks by name order.
func (s *Store) ListTracks() ([]Track, error) {
	rows, err := s.Query(`SELECT` + trackColumns + ` FROM tracks ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list tracks: %w", err)
		}
		tracks = append(tracks, *track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	return tracks, nil
}

// DeleteTrack removes a track and its cached laps.
func (s *Store) DeleteTrack(id string) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM lap_cache WHERE track_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete track laps: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("track %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

func pointLat(p *geo.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lat
}

func pointLon(p *geo.Point) *float64 {
	if p == nil {
		return nil
	}
	return &p.Lon
}

func scanTrack(row rowScanner) (*Track, error) {
	var (
		track       Track
		createdUnix int64
		s2          [4]sql.NullFloat64
		s3          [4]sql.NullFloat64
	)
	err := row.Scan(
		&track.ID,
		&track.Course.Name,
		&track.Course.StartFinish.A.Lat,
		&track.Course.StartFinish.A.Lon,
		&track.Course.StartFinish.B.Lat,
		&track.Course.StartFinish.B.Lon,
		&s2[0], &s2[1], &s2[2], &s2[3],
		&s3[0], &s3[1], &s3[2], &s3[3],
		&createdUnix,
	)
	if err != nil {
		return nil, err
	}

	track.Course.Sector2 = lineFromCols(s2)
	track.Course.Sector3 = lineFromCols(s3)
	track.CreatedAt = time.Unix(createdUnix, 0).UTC()

	return &track, nil
}

func lineFromCols(cols [4]sql.NullFloat64) *course.Line {
	for _, c := range cols {
		if !c.Valid {
			return nil
		}
	}
	return &course.Line{
		A: geo.Point{Lat: cols[0].Float64, Lon: cols[1].Float64},
		B: geo.Point{Lat: cols[2].Float64, Lon: cols[3].Float64},
	}
}

// Package course defines track courses: the start/finish timing line plus the
// optional sector lines that the lap segmenter tests sample paths against.
package course

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex-data/laptrace/internal/geo"
)

// Line is a timing line on the track surface: the straight segment between
// its two endpoints. Crossing direction does not matter.
type Line struct {
	A geo.Point `json:"a"`
	B geo.Point `json:"b"`
}

// Definition is one course: where timing starts and ends, and optionally
// where the two sector splits are.
type Definition struct {
	Name        string `json:"name"`
	StartFinish Line   `json:"start_finish"`
	Sector2     *Line  `json:"sector2,omitempty"`
	Sector3     *Line  `json:"sector3,omitempty"`
}

// SectorLines returns the sector split lines when the course defines both.
// A course with exactly one sector line behaves as a course with none; a
// single split cannot produce the three-sector layout laps carry.
func (d *Definition) SectorLines() (s2, s3 *Line, ok bool) {
	if d.Sector2 == nil || d.Sector3 == nil {
		return nil, nil, false
	}
	return d.Sector2, d.Sector3, true
}

// Validate checks that every defined line has plausible, distinct endpoints.
func (d *Definition) Validate() error {
	if err := validLine(d.StartFinish); err != nil {
		return fmt.Errorf("start/finish line: %w", err)
	}
	if d.Sector2 != nil {
		if err := validLine(*d.Sector2); err != nil {
			return fmt.Errorf("sector 2 line: %w", err)
		}
	}
	if d.Sector3 != nil {
		if err := validLine(*d.Sector3); err != nil {
			return fmt.Errorf("sector 3 line: %w", err)
		}
	}
	return nil
}

func validLine(l Line) error {
	for _, p := range [2]geo.Point{l.A, l.B} {
		if p.Lat < -90 || p.Lat > 90 {
			return fmt.Errorf("latitude %v out of range", p.Lat)
		}
		if p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("longitude %v out of range", p.Lon)
		}
	}
	if l.A == l.B {
		return errors.New("endpoints coincide")
	}
	return nil
}

// Load reads and validates a course definition from a JSON file.
func Load(path string) (*Definition, error) {
	if filepath.Ext(path) != ".json" {
		return nil, fmt.Errorf("course file must have .json extension, got: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading course file: %w", err)
	}
	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing course file %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("course file %s: %w", path, err)
	}
	return &d, nil
}

package ingest

import (
	"math"
	"time"

	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// sampleBuilder accumulates canonical samples for a normalizer and enforces
// the invariants shared by every format: non-decreasing elapsed time, a
// plausible fix, and the teleportation filter. Filters always compare against
// the last accepted sample, not the previous raw row, so one bad fix cannot
// poison its successors.
type sampleBuilder struct {
	maxSpeedMps float64

	samples []telemetry.Sample
	bounds  telemetry.Bounds

	droppedInvalid  int
	droppedOrder    int
	droppedTeleport int
}

func newSampleBuilder(maxSpeedMps float64) *sampleBuilder {
	return &sampleBuilder{maxSpeedMps: maxSpeedMps}
}

// add applies the row filters and appends the sample when it passes,
// reporting whether it was accepted.
func (b *sampleBuilder) add(s telemetry.Sample) bool {
	// A usable row needs a real fix and a speed inside (0, ceiling).
	// Loggers emit 0/0 coordinates and zero speed as no-fix sentinels.
	if math.IsNaN(s.Lat) || math.IsNaN(s.Lon) || math.IsNaN(s.SpeedMps) ||
		(s.Lat == 0 && s.Lon == 0) ||
		s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 ||
		s.SpeedMps <= 0 || s.SpeedMps >= b.maxSpeedMps {
		b.droppedInvalid++
		return false
	}

	if len(b.samples) > 0 {
		last := &b.samples[len(b.samples)-1]
		dtMs := s.TimeMs - last.TimeMs
		if dtMs < 0 {
			b.droppedOrder++
			return false
		}
		dist := geo.DistanceM(geo.Point{Lat: last.Lat, Lon: last.Lon}, geo.Point{Lat: s.Lat, Lon: s.Lon})
		if dtMs == 0 {
			// Duplicate timestamps are tolerated only in place.
			if dist > 0.5 {
				b.droppedTeleport++
				return false
			}
		} else if implied := dist / (float64(dtMs) / 1000.0); implied > b.maxSpeedMps {
			b.droppedTeleport++
			return false
		}
	}

	s.Heading = telemetry.NormalizeHeading(s.Heading)
	b.bounds.Extend(s.Lat, s.Lon)
	b.samples = append(b.samples, s)
	return true
}

// build finalizes the ParsedFile, failing with ErrNoValidSamples when every
// row was rejected.
func (b *sampleBuilder) build(format Format, fields []telemetry.FieldMapping, start *time.Time) (*telemetry.ParsedFile, error) {
	if len(b.samples) == 0 {
		return nil, ErrNoValidSamples
	}
	if n := b.droppedInvalid + b.droppedOrder + b.droppedTeleport; n > 0 {
		monitoring.Logf("ingest: %s: dropped %d rows (%d no fix, %d out of order, %d teleporting), kept %d",
			format, n, b.droppedInvalid, b.droppedOrder, b.droppedTeleport, len(b.samples))
	}
	return &telemetry.ParsedFile{
		Samples:    b.samples,
		Fields:     fields,
		Bounds:     b.bounds,
		DurationMs: b.samples[len(b.samples)-1].TimeMs - b.samples[0].TimeMs,
		StartDate:  start,
		Format:     string(format),
	}, nil
}

// Package telemetry defines the canonical sample stream produced by every
// log-file normalizer. All downstream components (conditioning, lap
// segmentation, alignment) operate on this shape and never on a raw format.
package telemetry

import (
	"math"
	"time"
)

// Canonical names for channels that more than one component needs to agree on.
// Normalizers map native accelerometer channels onto these; the signal
// conditioner derives them from GPS when a logger has none.
const (
	ChannelGForceLat  = "G Force Lat"
	ChannelGForceLong = "G Force Long"
)

// Sample is one timestamped vehicle state.
type Sample struct {
	// TimeMs is elapsed time in milliseconds since the start of the file.
	// Non-decreasing within one ParsedFile.
	TimeMs int64

	// Lat and Lon are WGS 84 degrees.
	Lat float64
	Lon float64

	// SpeedMps is ground speed in meters per second. Storage is always m/s;
	// mph and km/h views are derived at the presentation edge.
	SpeedMps float64

	// Heading is degrees in [0,360), NaN when the logger did not record one.
	Heading float64

	// Channels holds any extra named channels (RPM, Throttle, water temp...).
	// An absent key means the channel was not logged at this sample.
	Channels map[string]float64
}

// HasHeading reports whether the sample carries a heading.
func (s *Sample) HasHeading() bool {
	return !math.IsNaN(s.Heading)
}

// Channel returns the named extra channel value.
func (s *Sample) Channel(name string) (float64, bool) {
	v, ok := s.Channels[name]
	return v, ok
}

// FieldMapping describes one channel of a parsed file: the canonical channel
// name and whether the UI should surface it by default.
type FieldMapping struct {
	Channel string `json:"channel"`
	Display bool   `json:"display"`
}

// Bounds is a GPS bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`

	set bool
}

// Extend grows the box to include the given fix.
func (b *Bounds) Extend(lat, lon float64) {
	if !b.set {
		b.MinLat, b.MaxLat = lat, lat
		b.MinLon, b.MaxLon = lon, lon
		b.set = true
		return
	}
	if lat < b.MinLat {
		b.MinLat = lat
	}
	if lat > b.MaxLat {
		b.MaxLat = lat
	}
	if lon < b.MinLon {
		b.MinLon = lon
	}
	if lon > b.MaxLon {
		b.MaxLon = lon
	}
}

// Valid reports whether at least one fix was added.
func (b *Bounds) Valid() bool { return b.set }

// ParsedFile is the immutable result of normalizing one log file.
// It owns its sample storage exclusively: laps and alignment results reference
// samples by index and never copy or mutate them. Loading a new file replaces
// the ParsedFile wholesale; there is no partial mutation.
type ParsedFile struct {
	Samples    []Sample
	Fields     []FieldMapping
	Bounds     Bounds
	DurationMs int64
	StartDate  *time.Time

	// Format is the name of the normalizer that produced this file.
	Format string
}

// HasChannel reports whether any sample carries the named extra channel.
func (f *ParsedFile) HasChannel(name string) bool {
	for i := range f.Samples {
		if _, ok := f.Samples[i].Channels[name]; ok {
			return true
		}
	}
	return false
}

// ChannelValues extracts one extra channel as a series aligned with Samples.
// Positions where the channel was not logged hold NaN, so gaps survive into
// smoothing and charting instead of being invented.
func (f *ParsedFile) ChannelValues(name string) []float64 {
	out := make([]float64, len(f.Samples))
	for i := range f.Samples {
		if v, ok := f.Samples[i].Channels[name]; ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// SpeedValues extracts the canonical speed series in m/s.
func (f *ParsedFile) SpeedValues() []float64 {
	out := make([]float64, len(f.Samples))
	for i := range f.Samples {
		out[i] = f.Samples[i].SpeedMps
	}
	return out
}

// NormalizeHeading wraps a heading into [0,360). NaN passes through.
func NormalizeHeading(deg float64) float64 {
	if math.IsNaN(deg) {
		return deg
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

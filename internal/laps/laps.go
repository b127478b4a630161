// Package laps splits a normalized session into laps and sector splits by
// intersecting the GPS trace with the course timing lines.
package laps

import (
	"math"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// Sectors holds the three split times of one lap. S1 runs from the start
// crossing to the sector 2 line, S2 to the sector 3 line, S3 to the finish
// crossing, so the three always sum to the lap time.
type Sectors struct {
	S1Ms float64 `json:"s1_ms"`
	S2Ms float64 `json:"s2_ms"`
	S3Ms float64 `json:"s3_ms"`
}

// Lap is one completed circuit between two start/finish crossings.
//
// StartIndex and EndIndex reference the ParsedFile sample slice; consecutive
// laps are contiguous and never overlap. StartMs and EndMs are the
// interpolated crossing times, so they fall between sample timestamps.
type Lap struct {
	Number      int      `json:"number"`
	StartIndex  int      `json:"start_index"`
	EndIndex    int      `json:"end_index"`
	StartMs     float64  `json:"start_ms"`
	EndMs       float64  `json:"end_ms"`
	TimeMs      float64  `json:"time_ms"`
	MaxSpeedMps float64  `json:"max_speed_mps"`
	MinSpeedMps float64  `json:"min_speed_mps"`
	Sectors     *Sectors `json:"sectors,omitempty"`
}

// Samples returns the sub-slice of f's samples this lap covers. The slice
// aliases the ParsedFile storage; callers must not mutate it.
func (l Lap) Samples(f *telemetry.ParsedFile) []telemetry.Sample {
	return f.Samples[l.StartIndex : l.EndIndex+1]
}

// Fastest returns the lap with the lowest time. Ties keep the earlier lap.
func Fastest(in []Lap) (Lap, bool) {
	if len(in) == 0 {
		return Lap{}, false
	}
	best := in[0]
	for _, lap := range in[1:] {
		if lap.TimeMs < best.TimeMs {
			best = lap
		}
	}
	return best, true
}

// ByNumber finds a lap by its display number.
func ByNumber(in []Lap, number int) (Lap, bool) {
	for _, lap := range in {
		if lap.Number == number {
			return lap, true
		}
	}
	return Lap{}, false
}

// lineCrosser detects strict crossings of one projected timing line. Repeat
// hits inside the debounce window are rejected, which keeps a trace that
// wobbles across the line from producing phantom laps.
type lineCrosser struct {
	a, b       geo.XY
	debounceMs float64
	lastMs     float64
}

func newLineCrosser(p *geo.Projector, line course.Line, debounceMs float64) *lineCrosser {
	return &lineCrosser{
		a:          p.Project(line.A),
		b:          p.Project(line.B),
		debounceMs: debounceMs,
		lastMs:     math.Inf(-1),
	}
}

// check tests the sample edge p1→p2 spanning [t0,t1] ms against the line.
// On an accepted crossing it returns the sub-sample crossing time.
func (lc *lineCrosser) check(p1, p2 geo.XY, t0, t1 float64) (float64, bool) {
	tp, ok := geo.SegmentsCross(p1, p2, lc.a, lc.b)
	if !ok {
		return 0, false
	}
	crossMs := t0 + tp*(t1-t0)
	if crossMs-lc.lastMs < lc.debounceMs {
		return 0, false
	}
	lc.lastMs = crossMs
	return crossMs, true
}

// Segment walks the trace once and cuts it into laps at start/finish
// crossings. Samples before the first crossing (the out lap) and after the
// last one (the tail of an unfinished lap) belong to no lap. Sector lines are
// tested only while a lap is open; the first accepted crossing of each line
// sets the split. A trace that never crosses the start/finish line yields
// zero laps, which is a valid result, not an error.
func Segment(f *telemetry.ParsedFile, def *course.Definition, tuning *config.TuningConfig) []Lap {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if f == nil || def == nil || len(f.Samples) < 2 {
		return nil
	}

	pts := make([]geo.Point, len(f.Samples))
	for i := range f.Samples {
		pts[i] = geo.Point{Lat: f.Samples[i].Lat, Lon: f.Samples[i].Lon}
	}
	proj := geo.NewProjector(geo.Centroid(pts))
	xy := make([]geo.XY, len(pts))
	for i, p := range pts {
		xy[i] = proj.Project(p)
	}

	debounceMs := float64(tuning.GetCrossingDebounce().Milliseconds())
	start := newLineCrosser(proj, def.StartFinish, debounceMs)
	var sector2, sector3 *lineCrosser
	if l2, l3, ok := def.SectorLines(); ok {
		sector2 = newLineCrosser(proj, *l2, debounceMs)
		sector3 = newLineCrosser(proj, *l3, debounceMs)
	}

	var (
		out     []Lap
		inLap   bool
		openIdx int
		openMs  float64
	)
	s2Ms, s3Ms := math.NaN(), math.NaN()

	for i := 1; i < len(f.Samples); i++ {
		t0 := float64(f.Samples[i-1].TimeMs)
		t1 := float64(f.Samples[i].TimeMs)
		p1, p2 := xy[i-1], xy[i]

		if inLap && sector2 != nil {
			if ms, ok := sector2.check(p1, p2, t0, t1); ok && math.IsNaN(s2Ms) {
				s2Ms = ms
			}
			if ms, ok := sector3.check(p1, p2, t0, t1); ok && math.IsNaN(s3Ms) {
				s3Ms = ms
			}
		}

		ms, ok := start.check(p1, p2, t0, t1)
		if !ok {
			continue
		}
		if inLap {
			out = append(out, makeLap(f, len(out)+1, openIdx, i-1, openMs, ms, s2Ms, s3Ms))
		}
		inLap = true
		openIdx = i
		openMs = ms
		s2Ms, s3Ms = math.NaN(), math.NaN()
	}

	return out
}

func makeLap(f *telemetry.ParsedFile, number, startIdx, endIdx int, startMs, endMs, s2Ms, s3Ms float64) Lap {
	lap := Lap{
		Number:      number,
		StartIndex:  startIdx,
		EndIndex:    endIdx,
		StartMs:     startMs,
		EndMs:       endMs,
		TimeMs:      endMs - startMs,
		MaxSpeedMps: math.Inf(-1),
		MinSpeedMps: math.Inf(1),
	}
	for i := startIdx; i <= endIdx; i++ {
		v := f.Samples[i].SpeedMps
		lap.MaxSpeedMps = max(lap.MaxSpeedMps, v)
		lap.MinSpeedMps = min(lap.MinSpeedMps, v)
	}
	lap.Sectors = buildSectors(startMs, endMs, s2Ms, s3Ms)
	return lap
}

// buildSectors converts the split crossings of one lap into sector times.
// A lap gets sectors only when both lines were crossed and in course order;
// anything else leaves Sectors nil rather than reporting a bogus split.
func buildSectors(startMs, endMs, s2Ms, s3Ms float64) *Sectors {
	if math.IsNaN(s2Ms) || math.IsNaN(s3Ms) {
		return nil
	}
	s1 := s2Ms - startMs
	s2 := s3Ms - s2Ms
	s3 := endMs - s3Ms
	if s1 <= 0 || s2 <= 0 || s3 <= 0 {
		return nil
	}
	return &Sectors{S1Ms: s1, S2Ms: s2, S3Ms: s3}
}

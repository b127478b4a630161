package laps

import (
	"math"
	"testing"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/synth"
)

// lapCircuit drives 3.5 laps of a 100 m radius circle in 20 s laps at 10 Hz.
// With the start/finish line at 90 degrees and the first sample at 0.9, the
// crossings land at 4950, 24950, 44950 and 64950 ms.
func lapCircuit() synth.Circuit {
	return synth.Circuit{
		Center:   geo.Point{Lat: 44.5, Lon: 11.0},
		RadiusM:  100,
		LapS:     20,
		RateHz:   10,
		Laps:     3.5,
		PhaseDeg: 0.9,
	}
}

// fullCourse places sector lines a third of a lap apart, so every sector of
// every lap takes 20000/3 ms.
func fullCourse(c synth.Circuit) *course.Definition {
	s2 := c.RadialLine(210, 30)
	s3 := c.RadialLine(330, 30)
	return &course.Definition{
		Name:        "circle",
		StartFinish: c.RadialLine(90, 30),
		Sector2:     &s2,
		Sector3:     &s3,
	}
}

func TestSegment(t *testing.T) {
	c := lapCircuit()
	got := Segment(c.File(), fullCourse(c), nil)

	if len(got) != 3 {
		t.Fatalf("laps = %d, want 3", len(got))
	}

	wantSpeed := c.Speed()
	third := 20000.0 / 3
	for k, lap := range got {
		if lap.Number != k+1 {
			t.Errorf("lap %d: number = %d", k, lap.Number)
		}
		wantStart := 4950 + 20000*float64(k)
		if math.Abs(lap.StartMs-wantStart) > 0.5 {
			t.Errorf("lap %d: start = %0.2f ms, want %0.2f", k, lap.StartMs, wantStart)
		}
		if math.Abs(lap.TimeMs-20000) > 0.5 {
			t.Errorf("lap %d: time = %0.2f ms, want 20000", k, lap.TimeMs)
		}
		if math.Abs(lap.EndMs-lap.StartMs-lap.TimeMs) > 1e-9 {
			t.Errorf("lap %d: start/end/time inconsistent: %+v", k, lap)
		}
		if math.Abs(lap.MaxSpeedMps-wantSpeed) > 1e-9 || math.Abs(lap.MinSpeedMps-wantSpeed) > 1e-9 {
			t.Errorf("lap %d: speed range [%v, %v], want constant %v",
				k, lap.MinSpeedMps, lap.MaxSpeedMps, wantSpeed)
		}

		if lap.Sectors == nil {
			t.Fatalf("lap %d: no sectors", k)
		}
		for n, s := range [3]float64{lap.Sectors.S1Ms, lap.Sectors.S2Ms, lap.Sectors.S3Ms} {
			if math.Abs(s-third) > 0.5 {
				t.Errorf("lap %d: S%d = %0.2f ms, want %0.2f", k, n+1, s, third)
			}
		}
		sum := lap.Sectors.S1Ms + lap.Sectors.S2Ms + lap.Sectors.S3Ms
		if math.Abs(sum-lap.TimeMs) > 1e-6 {
			t.Errorf("lap %d: sectors sum to %0.4f, lap time %0.4f", k, sum, lap.TimeMs)
		}
	}

	// The first crossing is between samples 49 and 50, one lap spans 200
	// samples, and consecutive laps share no sample.
	if got[0].StartIndex != 50 || got[0].EndIndex != 249 {
		t.Errorf("lap 1 spans [%d, %d], want [50, 249]", got[0].StartIndex, got[0].EndIndex)
	}
	for k := 1; k < len(got); k++ {
		if got[k].StartIndex != got[k-1].EndIndex+1 {
			t.Errorf("lap %d starts at %d, previous ends at %d",
				k+1, got[k].StartIndex, got[k-1].EndIndex)
		}
	}
}

func TestSegmentNoSectorLines(t *testing.T) {
	c := lapCircuit()
	def := &course.Definition{Name: "circle", StartFinish: c.RadialLine(90, 30)}

	got := Segment(c.File(), def, nil)
	if len(got) != 3 {
		t.Fatalf("laps = %d, want 3", len(got))
	}
	for k, lap := range got {
		if lap.Sectors != nil {
			t.Errorf("lap %d: sectors = %+v, want none", k, lap.Sectors)
		}
	}
}

func TestSegmentSingleSectorLine(t *testing.T) {
	c := lapCircuit()
	s2 := c.RadialLine(210, 30)
	def := &course.Definition{Name: "circle", StartFinish: c.RadialLine(90, 30), Sector2: &s2}

	got := Segment(c.File(), def, nil)
	if len(got) != 3 {
		t.Fatalf("laps = %d, want 3", len(got))
	}
	for k, lap := range got {
		if lap.Sectors != nil {
			t.Errorf("lap %d: sectors from a single split line: %+v", k, lap.Sectors)
		}
	}
}

func TestSegmentDebounce(t *testing.T) {
	c := lapCircuit()
	debounce := "30s"
	tuning := &config.TuningConfig{CrossingDebounce: &debounce}

	// 30 s of debounce swallows every other crossing: 24950 and 64950 are
	// rejected, leaving one long lap from 4950 to 44950.
	got := Segment(c.File(), fullCourse(c), tuning)
	if len(got) != 1 {
		t.Fatalf("laps = %d, want 1", len(got))
	}
	if math.Abs(got[0].TimeMs-40000) > 0.5 {
		t.Errorf("lap time = %0.2f ms, want 40000", got[0].TimeMs)
	}
	if got[0].StartIndex != 50 || got[0].EndIndex != 449 {
		t.Errorf("lap spans [%d, %d], want [50, 449]", got[0].StartIndex, got[0].EndIndex)
	}
}

func TestSegmentNoCrossings(t *testing.T) {
	c := lapCircuit()
	// A line wholly outside the driving radius is never crossed.
	def := &course.Definition{
		Name:        "circle",
		StartFinish: course.Line{A: c.PointAt(90, 150), B: c.PointAt(90, 220)},
	}

	if got := Segment(c.File(), def, nil); len(got) != 0 {
		t.Fatalf("laps = %d, want 0", len(got))
	}
}

func TestSegmentSectorLinesOutOfOrder(t *testing.T) {
	c := lapCircuit()
	// Sector 2 line placed after sector 3 on the driving line. The splits
	// come out reversed, a negative leg, so the laps carry no sectors.
	s2 := c.RadialLine(330, 30)
	s3 := c.RadialLine(210, 30)
	def := &course.Definition{
		Name:        "circle",
		StartFinish: c.RadialLine(90, 30),
		Sector2:     &s2,
		Sector3:     &s3,
	}

	got := Segment(c.File(), def, nil)
	if len(got) != 3 {
		t.Fatalf("laps = %d, want 3", len(got))
	}
	for k, lap := range got {
		if lap.Sectors != nil {
			t.Errorf("lap %d: sectors from out-of-order lines: %+v", k, lap.Sectors)
		}
	}
}

func TestSegmentSectorLineOffTrack(t *testing.T) {
	c := lapCircuit()
	s2 := c.RadialLine(210, 30)
	// Sector 3 line is off in the infield and never crossed.
	s3 := course.Line{A: c.PointAt(330, 10), B: c.PointAt(330, 40)}
	def := &course.Definition{
		Name:        "circle",
		StartFinish: c.RadialLine(90, 30),
		Sector2:     &s2,
		Sector3:     &s3,
	}

	got := Segment(c.File(), def, nil)
	if len(got) != 3 {
		t.Fatalf("laps = %d, want 3", len(got))
	}
	for k, lap := range got {
		if lap.Sectors != nil {
			t.Errorf("lap %d: sectors despite an uncrossed split line: %+v", k, lap.Sectors)
		}
	}
}

func TestSegmentDegenerateInput(t *testing.T) {
	c := lapCircuit()
	def := fullCourse(c)

	if got := Segment(nil, def, nil); got != nil {
		t.Errorf("nil file: got %v", got)
	}
	f := c.File()
	f.Samples = f.Samples[:1]
	if got := Segment(f, def, nil); got != nil {
		t.Errorf("single sample: got %v", got)
	}
	if got := Segment(c.File(), nil, nil); got != nil {
		t.Errorf("nil course: got %v", got)
	}
}

func TestFastest(t *testing.T) {
	in := []Lap{
		{Number: 1, TimeMs: 21400},
		{Number: 2, TimeMs: 20050},
		{Number: 3, TimeMs: 20900},
	}
	best, ok := Fastest(in)
	if !ok || best.Number != 2 {
		t.Errorf("fastest = %d ok = %v, want lap 2", best.Number, ok)
	}

	// Ties resolve to the earlier lap.
	in[2].TimeMs = 20050
	best, ok = Fastest(in)
	if !ok || best.Number != 2 {
		t.Errorf("tied fastest = %d ok = %v, want lap 2", best.Number, ok)
	}

	if _, ok := Fastest(nil); ok {
		t.Error("Fastest reported a lap for empty input")
	}
}

func TestByNumber(t *testing.T) {
	in := []Lap{{Number: 1}, {Number: 2}, {Number: 3}}
	lap, ok := ByNumber(in, 2)
	if !ok || lap.Number != 2 {
		t.Errorf("ByNumber(2) = %d ok = %v", lap.Number, ok)
	}
	if _, ok := ByNumber(in, 9); ok {
		t.Error("ByNumber found a lap that does not exist")
	}
}

// Package synth generates synthetic GPS telemetry with closed-form lap
// geometry, for fixture generation and for tests that need exact crossing
// times.
package synth

import (
	"math"

	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// Circuit generates synthetic telemetry around a circular track driven
// clockwise at constant speed. Angles are compass degrees from the center:
// 0 is the northernmost point of the circle, 90 the easternmost. Because the
// motion is uniform, the time at which the car passes any angle is known in
// closed form, which lets lap and alignment tests assert exact crossing times.
type Circuit struct {
	Center   geo.Point
	RadiusM  float64
	LapS     float64 // seconds per lap
	RateHz   float64 // sample rate
	Laps     float64 // amount of data to generate, in laps
	PhaseDeg float64 // angle of the first sample
}

// Speed returns the constant ground speed implied by radius and lap time.
func (c Circuit) Speed() float64 {
	return 2 * math.Pi * c.RadiusM / c.LapS
}

// AngleAt returns the compass angle of the car at the given elapsed time.
func (c Circuit) AngleAt(tSec float64) float64 {
	return c.PhaseDeg + 360*tSec/c.LapS
}

// PointAt returns the position at the given compass angle and radius from
// the center. The inverse mapping matches the equirectangular projection, so
// projecting the result recovers the local plane coordinates.
func (c Circuit) PointAt(angleDeg, radiusM float64) geo.Point {
	rad := angleDeg * math.Pi / 180
	x := radiusM * math.Sin(rad)
	y := radiusM * math.Cos(rad)
	return geo.Point{
		Lat: c.Center.Lat + y/geo.EarthRadiusM*180/math.Pi,
		Lon: c.Center.Lon + x/(geo.EarthRadiusM*math.Cos(c.Center.Lat*math.Pi/180))*180/math.Pi,
	}
}

// RadialLine returns a timing line cutting the driving line at the given
// compass angle, reaching spanM inside and outside the driving radius.
func (c Circuit) RadialLine(angleDeg, spanM float64) course.Line {
	return course.Line{
		A: c.PointAt(angleDeg, c.RadiusM-spanM),
		B: c.PointAt(angleDeg, c.RadiusM+spanM),
	}
}

// Samples generates the fix sequence. Sample i is taken at i/RateHz seconds;
// the count covers Laps full laps plus the closing fix.
func (c Circuit) Samples() []telemetry.Sample {
	n := int(math.Round(c.Laps*c.LapS*c.RateHz)) + 1
	v := c.Speed()
	out := make([]telemetry.Sample, 0, n)
	for i := 0; i < n; i++ {
		tSec := float64(i) / c.RateHz
		ang := c.AngleAt(tSec)
		p := c.PointAt(ang, c.RadiusM)
		out = append(out, telemetry.Sample{
			TimeMs:   int64(math.Round(tSec * 1000)),
			Lat:      p.Lat,
			Lon:      p.Lon,
			SpeedMps: v,
			// Clockwise travel: heading leads the center angle by a quarter turn.
			Heading: telemetry.NormalizeHeading(ang + 90),
		})
	}
	return out
}

// File wraps Samples in a ParsedFile the way the normalizers would.
func (c Circuit) File() *telemetry.ParsedFile {
	return FileFromSamples(c.Samples())
}

// FileFromSamples builds a ParsedFile around prebuilt samples, deriving
// bounds and duration from them.
func FileFromSamples(samples []telemetry.Sample) *telemetry.ParsedFile {
	f := &telemetry.ParsedFile{
		Samples: samples,
		Fields:  []telemetry.FieldMapping{{Channel: "Speed", Display: true}},
		Format:  "synthetic",
	}
	for _, s := range samples {
		f.Bounds.Extend(s.Lat, s.Lon)
	}
	if len(samples) > 0 {
		f.DurationMs = samples[len(samples)-1].TimeMs - samples[0].TimeMs
	}
	return f
}

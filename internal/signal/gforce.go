package signal

import (
	"math"
	"strings"

	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// StandardGravity converts between m/s^2 and g.
const StandardGravity = 9.80665

// gForceClamp bounds every g-force value this package emits. Consumer karts
// and club cars do not sustain more; anything past it is fix noise.
const gForceClamp = 5.0

// Native accelerometer channel names, matched on the lowercased,
// separator-stripped form.
var (
	lateralAccelNames = map[string]bool{
		"gforcelat": true, "glat": true, "latacc": true, "acclat": true,
		"lateralacc": true, "lateralg": true, "accellateral": true,
	}
	longitudinalAccelNames = map[string]bool{
		"gforcelong": true, "glong": true, "longacc": true, "acclong": true,
		"longitudinalacc": true, "longitudinalg": true, "accellongitudinal": true,
	}
)

// DeriveGForce produces the lateral and longitudinal g-force series for a
// file, one entry per sample, NaN where underivable. Native accelerometer
// channels are preferred when the file carries them; otherwise lateral g
// comes from heading change rate times speed and longitudinal g from speed
// change rate, both over a centered finite-difference window of the given
// width to suppress fix noise.
func DeriveGForce(f *telemetry.ParsedFile, window int) (lat, long []float64) {
	if name := nativeChannel(f, lateralAccelNames); name != "" {
		lat = normalizeNativeG(f.ChannelValues(name))
	} else {
		lat = deriveLateral(f.Samples, window)
	}
	if name := nativeChannel(f, longitudinalAccelNames); name != "" {
		long = normalizeNativeG(f.ChannelValues(name))
	} else {
		long = deriveLongitudinal(f.Samples, window)
	}
	return lat, long
}

// nativeChannel returns the first field whose name identifies it as one of the
// wanted accelerometer channels.
func nativeChannel(f *telemetry.ParsedFile, names map[string]bool) string {
	for _, fm := range f.Fields {
		if names[accelKey(fm.Channel)] {
			return fm.Channel
		}
	}
	return ""
}

func accelKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '\t', '_', '-', '.', '/':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeNativeG brings a native accelerometer series into clamped g units.
// A series containing any magnitude past the clamp bound was logged in m/s^2
// and is rescaled as a whole.
func normalizeNativeG(vals []float64) []float64 {
	inMps2 := false
	for _, v := range vals {
		if !math.IsNaN(v) && math.Abs(v) > gForceClamp {
			inMps2 = true
			break
		}
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		if inMps2 {
			v /= StandardGravity
		}
		out[i] = clampG(v)
	}
	return out
}

// clampG bounds a value to [-gForceClamp, gForceClamp]; NaN passes through.
func clampG(v float64) float64 {
	if v > gForceClamp {
		return gForceClamp
	}
	if v < -gForceClamp {
		return -gForceClamp
	}
	return v
}

func deriveLongitudinal(samples []telemetry.Sample, window int) []float64 {
	n := len(samples)
	out := make([]float64, n)
	h := max(1, window/2)
	for i := range out {
		j0 := max(0, i-h)
		j1 := min(n-1, i+h)
		dt := float64(samples[j1].TimeMs-samples[j0].TimeMs) / 1000
		if dt <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = clampG((samples[j1].SpeedMps - samples[j0].SpeedMps) / dt / StandardGravity)
	}
	return out
}

func deriveLateral(samples []telemetry.Sample, window int) []float64 {
	n := len(samples)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	headings := headingSeries(samples)
	h := max(1, window/2)
	for i := range out {
		j0 := max(0, i-h)
		j1 := min(n-1, i+h)
		dt := float64(samples[j1].TimeMs-samples[j0].TimeMs) / 1000
		if dt <= 0 || math.IsNaN(headings[j0]) || math.IsNaN(headings[j1]) {
			out[i] = math.NaN()
			continue
		}
		// Turn rate in rad/s times speed gives centripetal acceleration.
		omega := headingDelta(headings[j1], headings[j0]) * math.Pi / 180 / dt
		out[i] = clampG(samples[i].SpeedMps * omega / StandardGravity)
	}
	return out
}

// headingSeries returns each sample's heading in degrees: the logged channel
// when present, else the bearing between the neighboring fixes.
func headingSeries(samples []telemetry.Sample) []float64 {
	n := len(samples)
	out := make([]float64, n)
	for i := range samples {
		if samples[i].HasHeading() {
			out[i] = samples[i].Heading
			continue
		}
		a := max(0, i-1)
		b := min(n-1, i+1)
		if a == b {
			out[i] = math.NaN()
			continue
		}
		out[i] = geo.BearingDeg(
			geo.Point{Lat: samples[a].Lat, Lon: samples[a].Lon},
			geo.Point{Lat: samples[b].Lat, Lon: samples[b].Lon},
		)
	}
	return out
}

// headingDelta returns the signed smallest rotation from b to a in degrees,
// in [-180,180), so a north crossing (359 to 1) reads as +2, not -358.
func headingDelta(a, b float64) float64 {
	return math.Mod(a-b+540, 360) - 180
}

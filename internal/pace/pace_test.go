package pace

import (
	"math"
	"testing"

	"github.com/apex-data/laptrace/internal/course"
	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/laps"
	"github.com/apex-data/laptrace/internal/synth"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// eastLine builds fixes one meter apart heading due east at a constant
// reported speed, sampled every dtMs.
func eastLine(n int, dtMs int64, speed float64) []telemetry.Sample {
	const lat = 44.5
	stepLon := 1.0 / (geo.EarthRadiusM * math.Cos(lat*math.Pi/180)) * 180 / math.Pi
	out := make([]telemetry.Sample, n)
	for i := range out {
		out[i] = telemetry.Sample{
			TimeMs:   int64(i) * dtMs,
			Lat:      lat,
			Lon:      11.0 + float64(i)*stepLon,
			SpeedMps: speed,
			Heading:  90,
		}
	}
	return out
}

// retimed returns a copy of samples with timestamps respaced to dtMs while
// keeping positions bit-identical, so distance lookups stay exact.
func retimed(samples []telemetry.Sample, dtMs int64) []telemetry.Sample {
	out := make([]telemetry.Sample, len(samples))
	copy(out, samples)
	for i := range out {
		out[i].TimeMs = int64(i) * dtMs
	}
	return out
}

func TestAlignIdentical(t *testing.T) {
	ref := eastLine(101, 100, 10)

	res := Align(ref, ref, "")
	if res == nil {
		t.Fatal("nil result")
	}
	if len(res.PaceS) != 101 || len(res.RefSpeedMps) != 101 || len(res.DistanceM) != 101 {
		t.Fatalf("result lengths %d/%d/%d, want 101",
			len(res.PaceS), len(res.RefSpeedMps), len(res.DistanceM))
	}
	if res.RefChannel != nil {
		t.Errorf("RefChannel = %v without a requested channel", res.RefChannel)
	}
	if res.DistanceM[0] != 0 {
		t.Errorf("distance[0] = %v, want 0", res.DistanceM[0])
	}
	for i := 1; i < len(res.DistanceM); i++ {
		if res.DistanceM[i] < res.DistanceM[i-1] {
			t.Fatalf("distance decreases at %d", i)
		}
	}
	for i, p := range res.PaceS {
		if p == nil {
			t.Fatalf("pace[%d] = nil for identical laps", i)
		}
		if math.Abs(*p) > 1e-9 {
			t.Errorf("pace[%d] = %v, want 0", i, *p)
		}
	}
	for i, s := range res.RefSpeedMps {
		if s == nil || math.Abs(*s-10) > 1e-9 {
			t.Errorf("ref speed[%d] = %v, want 10", i, s)
		}
	}
}

func TestAlignSlowerCurrent(t *testing.T) {
	ref := eastLine(101, 100, 10)
	cur := retimed(ref, 110)

	res := Align(cur, ref, "")
	if res == nil {
		t.Fatal("nil result")
	}
	// 10 ms lost per meter: half a second down 50 m in.
	if p := res.PaceS[50]; p == nil || math.Abs(*p-0.5) > 1e-9 {
		t.Errorf("pace[50] = %v, want +0.5", p)
	}
	if p := res.PaceS[100]; p == nil || math.Abs(*p-1.0) > 1e-9 {
		t.Errorf("pace[100] = %v, want +1.0", p)
	}
	for i := 1; i < len(res.PaceS); i++ {
		if *res.PaceS[i] <= *res.PaceS[i-1] {
			t.Fatalf("pace not growing at %d while losing time", i)
		}
	}
}

func TestAlignFasterCurrent(t *testing.T) {
	ref := eastLine(101, 100, 10)
	cur := retimed(ref, 90)

	res := Align(cur, ref, "")
	if res == nil {
		t.Fatal("nil result")
	}
	if p := res.PaceS[50]; p == nil || math.Abs(*p+0.5) > 1e-9 {
		t.Errorf("pace[50] = %v, want -0.5", p)
	}
}

func TestAlignCurrentOvershootsReference(t *testing.T) {
	ref := eastLine(101, 100, 10)
	cur := eastLine(121, 100, 10)

	res := Align(cur, ref, "")
	if res == nil {
		t.Fatal("nil result")
	}
	// The reference runs out at 100 m. Index 100 sits on the boundary within
	// float noise, so only its neighbors are pinned down.
	for i := 0; i <= 99; i++ {
		if res.PaceS[i] == nil || res.RefSpeedMps[i] == nil {
			t.Fatalf("index %d nil inside the reference range", i)
		}
	}
	for i := 101; i < len(res.PaceS); i++ {
		if res.PaceS[i] != nil || res.RefSpeedMps[i] != nil {
			t.Fatalf("index %d not nil beyond the reference total", i)
		}
	}
}

func TestAlignChannel(t *testing.T) {
	ref := eastLine(101, 100, 10)
	for i := range ref {
		if i == 5 {
			continue // leave one gap
		}
		ref[i].Channels = map[string]float64{"RPM": 4000 + float64(i)}
	}

	res := Align(ref, ref, "RPM")
	if res == nil {
		t.Fatal("nil result")
	}
	if res.RefChannel == nil {
		t.Fatal("RefChannel missing")
	}
	for i, v := range res.RefChannel {
		if i == 5 {
			if v != nil {
				t.Errorf("RefChannel[5] = %v across a gap, want nil", *v)
			}
			continue
		}
		want := 4000 + float64(i)
		if v == nil || math.Abs(*v-want) > 1e-9 {
			t.Errorf("RefChannel[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestAlignDegenerate(t *testing.T) {
	ref := eastLine(10, 100, 10)

	if res := Align(nil, ref, ""); res != nil {
		t.Errorf("empty current: got %+v", res)
	}
	if res := Align(ref, ref[:1], ""); res != nil {
		t.Errorf("single-sample reference: got %+v", res)
	}
}

func TestAlignCircuitLaps(t *testing.T) {
	c := synth.Circuit{
		Center:   geo.Point{Lat: 44.5, Lon: 11.0},
		RadiusM:  100,
		LapS:     20,
		RateHz:   10,
		Laps:     3.5,
		PhaseDeg: 0.9,
	}
	f := c.File()
	def := &course.Definition{Name: "circle", StartFinish: c.RadialLine(90, 30)}

	got := laps.Segment(f, def, nil)
	if len(got) != 3 {
		t.Fatalf("laps = %d, want 3", len(got))
	}

	res := Align(got[1].Samples(f), got[0].Samples(f), "")
	if res == nil {
		t.Fatal("nil result")
	}
	// Identical geometry driven at identical speed: the delta stays at zero
	// for the whole lap. The final samples may fall just past the reference
	// total on float noise, so they are left unchecked.
	for i := 0; i < len(res.PaceS)-2; i++ {
		if res.PaceS[i] == nil {
			t.Fatalf("pace[%d] = nil inside the reference range", i)
		}
		if math.Abs(*res.PaceS[i]) > 1e-6 {
			t.Errorf("pace[%d] = %v, want 0", i, *res.PaceS[i])
		}
	}
	for i := 0; i < len(res.RefSpeedMps)-2; i++ {
		if s := res.RefSpeedMps[i]; s == nil || math.Abs(*s-c.Speed()) > 1e-9 {
			t.Errorf("ref speed[%d] = %v, want %v", i, s, c.Speed())
		}
	}
}

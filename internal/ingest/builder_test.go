package ingest

import (
	"errors"
	"math"
	"testing"

	"github.com/apex-data/laptrace/internal/telemetry"
)

func validSample(timeMs int64, lat, lon, mps float64) telemetry.Sample {
	return telemetry.Sample{TimeMs: timeMs, Lat: lat, Lon: lon, SpeedMps: mps, Heading: math.NaN()}
}

func TestBuilderTeleportFilter(t *testing.T) {
	b := newSampleBuilder(100.0)

	if !b.add(validSample(0, 44.0, 11.0, 20)) {
		t.Fatal("first valid sample rejected")
	}
	// ~0.00001 deg of latitude is about 1.1 m; fine at 100 ms spacing.
	if !b.add(validSample(100, 44.00001, 11.0, 20)) {
		t.Fatal("plausible second sample rejected")
	}
	// A fix 0.1 deg away (11 km) 100 ms later implies > 100 km/s.
	if b.add(validSample(200, 44.1, 11.0, 20)) {
		t.Fatal("teleporting sample accepted")
	}
	// The next plausible fix is judged against the last ACCEPTED sample,
	// so it must still be accepted.
	if !b.add(validSample(300, 44.00003, 11.0, 20)) {
		t.Fatal("valid sample after teleport rejected; filter must compare against last accepted row")
	}

	if len(b.samples) != 3 {
		t.Errorf("kept %d samples, want 3", len(b.samples))
	}
	if b.droppedTeleport != 1 {
		t.Errorf("droppedTeleport = %d, want 1", b.droppedTeleport)
	}

	// No accepted pair implies a speed above the ceiling.
	for i := 1; i < len(b.samples); i++ {
		prev, cur := b.samples[i-1], b.samples[i]
		dt := float64(cur.TimeMs-prev.TimeMs) / 1000
		dist := 111194.9 * math.Abs(cur.Lat-prev.Lat)
		if dt > 0 && dist/dt > 100.0 {
			t.Errorf("accepted pair %d-%d implies %f m/s", i-1, i, dist/dt)
		}
	}
}

func TestBuilderRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		s    telemetry.Sample
	}{
		{"null island", validSample(0, 0, 0, 20)},
		{"zero speed", validSample(0, 44, 11, 0)},
		{"negative speed", validSample(0, 44, 11, -5)},
		{"speed at ceiling", validSample(0, 44, 11, 100)},
		{"NaN latitude", validSample(0, math.NaN(), 11, 20)},
		{"NaN speed", validSample(0, 44, 11, math.NaN())},
		{"latitude out of range", validSample(0, 91, 11, 20)},
		{"longitude out of range", validSample(0, 44, -181, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newSampleBuilder(100.0)
			if b.add(tt.s) {
				t.Errorf("sample %+v accepted, want rejected", tt.s)
			}
			if b.droppedInvalid != 1 {
				t.Errorf("droppedInvalid = %d, want 1", b.droppedInvalid)
			}
		})
	}
}

func TestBuilderOrdering(t *testing.T) {
	b := newSampleBuilder(100.0)
	b.add(validSample(1000, 44.0, 11.0, 20))
	if b.add(validSample(900, 44.00001, 11.0, 20)) {
		t.Error("sample going back in time accepted")
	}
	// Equal timestamps in place are tolerated (duplicate row).
	if !b.add(validSample(1000, 44.0, 11.0, 20)) {
		t.Error("in-place duplicate timestamp rejected")
	}
	if b.droppedOrder != 1 {
		t.Errorf("droppedOrder = %d, want 1", b.droppedOrder)
	}
}

func TestBuilderNoValidSamples(t *testing.T) {
	b := newSampleBuilder(100.0)
	b.add(validSample(0, 0, 0, 20))
	b.add(validSample(100, 44, 11, 0))

	_, err := b.build(FormatEnhancedCsv, nil, nil)
	if !errors.Is(err, ErrNoValidSamples) {
		t.Fatalf("build error = %v, want ErrNoValidSamples", err)
	}
}

func TestBuilderResult(t *testing.T) {
	b := newSampleBuilder(100.0)
	b.add(validSample(0, 44.0, 11.0, 20))
	b.add(validSample(100, 44.00001, 11.001, 21))
	b.add(validSample(200, 43.99999, 10.999, 22))

	pf, err := b.build(FormatVbo, []telemetry.FieldMapping{{Channel: "Speed", Display: true}}, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if pf.Format != string(FormatVbo) {
		t.Errorf("Format = %q, want %q", pf.Format, FormatVbo)
	}
	if pf.DurationMs != 200 {
		t.Errorf("DurationMs = %d, want 200", pf.DurationMs)
	}
	if !pf.Bounds.Valid() {
		t.Fatal("bounds not set")
	}
	if pf.Bounds.MinLat != 43.99999 || pf.Bounds.MaxLat != 44.00001 {
		t.Errorf("lat bounds [%v,%v], want [43.99999,44.00001]", pf.Bounds.MinLat, pf.Bounds.MaxLat)
	}
	if pf.Bounds.MinLon != 10.999 || pf.Bounds.MaxLon != 11.001 {
		t.Errorf("lon bounds [%v,%v], want [10.999,11.001]", pf.Bounds.MinLon, pf.Bounds.MaxLon)
	}
}

// Package signal conditions a parsed telemetry stream before analysis:
// g-force derivation for loggers without accelerometers, GPS speed glitch
// repair, and NaN-aware channel smoothing. Every operation returns new
// storage and leaves its input untouched.
package signal

import (
	"maps"
	"math"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/monitoring"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// Condition applies the load-time conditioning chain to a parsed file and
// returns a new one: speed glitches repaired, then the canonical g-force
// channels attached (normalized native values, or derived from GPS).
func Condition(f *telemetry.ParsedFile, tuning *config.TuningConfig) *telemetry.ParsedFile {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	out := *f
	out.Samples = make([]telemetry.Sample, len(f.Samples))
	copy(out.Samples, f.Samples)

	speeds, repaired := RepairSpeedGlitches(f.SpeedValues(),
		tuning.GetGlitchSpeedFloorMPS(), tuning.GetGlitchMaxRun())
	if repaired > 0 {
		monitoring.Logf("signal: %s: repaired %d glitched speed samples", f.Format, repaired)
	}
	for i := range out.Samples {
		out.Samples[i].SpeedMps = speeds[i]
	}

	// Derive from the repaired stream so a dropout burst cannot masquerade
	// as a braking spike.
	lat, long := DeriveGForce(&out, tuning.GetGForceWindow())
	for i := range out.Samples {
		s := &out.Samples[i]
		s.Channels = maps.Clone(s.Channels)
		if s.Channels == nil {
			s.Channels = make(map[string]float64, 2)
		}
		setChannel(s, telemetry.ChannelGForceLat, lat[i])
		setChannel(s, telemetry.ChannelGForceLong, long[i])
	}
	out.Fields = appendFieldOnce(append([]telemetry.FieldMapping(nil), f.Fields...), telemetry.ChannelGForceLat)
	out.Fields = appendFieldOnce(out.Fields, telemetry.ChannelGForceLong)
	return &out
}

// setChannel stores the value under the absent-key-means-missing convention.
func setChannel(s *telemetry.Sample, name string, v float64) {
	if math.IsNaN(v) {
		delete(s.Channels, name)
		return
	}
	s.Channels[name] = v
}

func appendFieldOnce(fields []telemetry.FieldMapping, name string) []telemetry.FieldMapping {
	for _, fm := range fields {
		if fm.Channel == name {
			return fields
		}
	}
	return append(fields, telemetry.FieldMapping{Channel: name, Display: true})
}

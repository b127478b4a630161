package ingest

import (
	"bytes"
	"math"
	"sort"
	"time"

	"github.com/tormoder/fit"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// fitNormalizer decodes Garmin FIT activity files via github.com/tormoder/fit.
// Record messages map one-to-one onto canonical samples; FIT stores positions
// as 32-bit semicircles (the library converts to degrees, NaN when invalid)
// and marks missing scalars with type-specific sentinels.
type fitNormalizer struct{}

func (fitNormalizer) Format() Format { return FormatFit }

func (fitNormalizer) Detect(data []byte) bool {
	// FIT header: size, protocol, profile, data length, then ".FIT" at byte 8.
	return len(data) >= 12 && string(data[8:12]) == ".FIT"
}

func (n fitNormalizer) Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, malformedf(n.Format(), "decode failed: %v", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, malformedf(n.Format(), "not an activity file: %v", err)
	}

	// Devices occasionally emit records out of order; sort by timestamp
	// before building the stream.
	records := make([]*fit.RecordMsg, 0, len(activity.Records))
	for _, rec := range activity.Records {
		if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	b := newSampleBuilder(tuning.GetMaxPlausibleSpeedMPS())
	var start time.Time
	var hasHR, hasCadence, hasAltitude, hasTemp bool
	for _, rec := range records {
		lat := rec.PositionLat.Degrees()
		lon := rec.PositionLong.Degrees()
		if math.IsNaN(lat) || math.IsNaN(lon) {
			continue // no fix for this record
		}

		speed := rec.GetEnhancedSpeedScaled()
		if math.IsNaN(speed) {
			speed = rec.GetSpeedScaled()
		}
		if math.IsNaN(speed) {
			continue
		}

		if start.IsZero() {
			start = rec.Timestamp
		}

		s := telemetry.Sample{
			TimeMs:   rec.Timestamp.Sub(start).Milliseconds(),
			Lat:      lat,
			Lon:      lon,
			SpeedMps: speed, // scaled getter already yields m/s
			Heading:  math.NaN(),
		}

		ch := make(map[string]float64, 4)
		if rec.HeartRate != math.MaxUint8 {
			ch["Heart Rate"] = float64(rec.HeartRate)
			hasHR = true
		}
		if rec.Cadence != math.MaxUint8 {
			ch["Cadence"] = float64(rec.Cadence)
			hasCadence = true
		}
		if alt := rec.GetEnhancedAltitudeScaled(); !math.IsNaN(alt) {
			ch["Altitude"] = alt
			hasAltitude = true
		} else if alt := rec.GetAltitudeScaled(); !math.IsNaN(alt) {
			ch["Altitude"] = alt
			hasAltitude = true
		}
		if rec.Temperature != math.MaxInt8 {
			ch["Temperature"] = float64(rec.Temperature)
			hasTemp = true
		}
		if len(ch) > 0 {
			s.Channels = ch
		}
		b.add(s)
	}

	fields := []telemetry.FieldMapping{{Channel: "Speed", Display: true}}
	if hasHR {
		fields = append(fields, telemetry.FieldMapping{Channel: "Heart Rate", Display: false})
	}
	if hasCadence {
		fields = append(fields, telemetry.FieldMapping{Channel: "Cadence", Display: false})
	}
	if hasAltitude {
		fields = append(fields, telemetry.FieldMapping{Channel: "Altitude", Display: false})
	}
	if hasTemp {
		fields = append(fields, telemetry.FieldMapping{Channel: "Temperature", Display: false})
	}

	var startPtr *time.Time
	if !start.IsZero() {
		utc := start.UTC()
		startPtr = &utc
	}
	return b.build(n.Format(), fields, startPtr)
}

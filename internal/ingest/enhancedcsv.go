package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// enhancedCsvNormalizer handles the enhanced-NMEA-derived comma CSV exported
// by phone lap-timer apps: a preamble of "Key:,value" metadata lines, then a
// channel header row, then one row per fix. It runs last in dispatch order
// because its shape is the most permissive.
type enhancedCsvNormalizer struct{}

func (enhancedCsvNormalizer) Format() Format { return FormatEnhancedCsv }

// enhancedMetaKeys are the preamble keys that identify the format.
var enhancedMetaKeys = map[string]bool{
	"driver":      true,
	"track":       true,
	"session":     true,
	"vehicle":     true,
	"date":        true,
	"time of day": true,
	"sample rate": true,
}

// splitMetaLine parses preamble lines of the form "Key:,value".
func splitMetaLine(line string) (key, value string, ok bool) {
	cells := strings.SplitN(line, ",", 2)
	k := strings.TrimSpace(cells[0])
	if !strings.HasSuffix(k, ":") {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSuffix(k, ":"))
	if key == "" {
		return "", "", false
	}
	if len(cells) == 2 {
		value = strings.TrimSpace(cells[1])
	}
	return key, value, true
}

func (enhancedCsvNormalizer) Detect(data []byte) bool {
	hits := 0
	for _, line := range headLines(data, 30) {
		if key, _, ok := splitMetaLine(line); ok && enhancedMetaKeys[key] {
			hits++
			if hits >= 2 {
				return true
			}
		}
	}
	return false
}

func (n enhancedCsvNormalizer) Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	lines := splitLines(data)

	// Walk the preamble: collect metadata until the channel header row shows
	// up, recognized by carrying at least three known column roles.
	meta := map[string]string{}
	headerIdx := -1
	var cols columnMap
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if key, value, ok := splitMetaLine(line); ok {
			meta[key] = value
			continue
		}
		cells := strings.Split(line, ",")
		if countRecognized(cells) >= 3 {
			headerIdx = i
			cols = resolveColumns(cells)
			break
		}
	}
	if headerIdx < 0 {
		return nil, malformedf(n.Format(), "no channel header row found")
	}
	if cols.lat < 0 || cols.lon < 0 {
		return nil, malformedf(n.Format(), "missing GPS latitude/longitude columns")
	}
	if cols.time < 0 {
		return nil, malformedf(n.Format(), "missing time column")
	}
	if cols.speed < 0 {
		return nil, malformedf(n.Format(), "missing speed column")
	}

	speedUnit := units.SniffSpeedUnit(cols.speedHeader)
	if speedUnit == "" {
		speedUnit = units.KPH
	}

	need := cols.time
	for _, idx := range []int{cols.lat, cols.lon, cols.speed} {
		if idx > need {
			need = idx
		}
	}

	b := newSampleBuilder(tuning.GetMaxPlausibleSpeedMPS())
	var t0 float64
	haveT0 := false
	for _, line := range lines[headerIdx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		if len(cells) <= need {
			continue // stray metadata or truncated row
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(cells[cols.time]), 64)
		if err != nil {
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(cells[cols.lat]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(cells[cols.lon]), 64)
		spd, err3 := strconv.ParseFloat(strings.TrimSpace(cells[cols.speed]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if !haveT0 {
			t0, haveT0 = t, true
		}

		s := telemetry.Sample{
			TimeMs:   int64(math.Round((t - t0) * 1000)),
			Lat:      lat,
			Lon:      lon,
			SpeedMps: units.ToMPS(spd, speedUnit),
			Heading:  math.NaN(),
		}
		if cols.heading >= 0 && cols.heading < len(cells) {
			if h, err := strconv.ParseFloat(strings.TrimSpace(cells[cols.heading]), 64); err == nil {
				s.Heading = h
			}
		}
		for k, ci := range cols.channelCols {
			if ci >= len(cells) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(cells[ci]), 64); err == nil {
				if s.Channels == nil {
					s.Channels = make(map[string]float64, len(cols.channelCols))
				}
				s.Channels[cols.channelNames[k]] = v
			}
		}
		b.add(s)
	}

	start := parseStartDate(meta["date"], meta["time of day"])
	return b.build(n.Format(), cols.fields(cols.heading >= 0), start)
}

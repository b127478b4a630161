package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// alfanoCsvNormalizer handles the semicolon-delimited session export of
// Alfano kart lap timers. Numbers use a comma decimal separator and the
// header row is found by sniffing recognized column names.
type alfanoCsvNormalizer struct{}

func (alfanoCsvNormalizer) Format() Format { return FormatAlfanoCsv }

// parseDecimal parses a number that may use a comma decimal separator.
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}

func (alfanoCsvNormalizer) Detect(data []byte) bool {
	for _, line := range headLines(data, 30) {
		if strings.Contains(strings.ToLower(line), "alfano") {
			return true
		}
		if strings.Count(line, ";") >= 2 && countRecognized(strings.Split(line, ";")) >= 3 {
			return true
		}
	}
	return false
}

func (n alfanoCsvNormalizer) Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	lines := splitLines(data)

	meta := map[string]string{}
	headerIdx := -1
	var cols columnMap
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ";")
		if countRecognized(cells) >= 3 {
			headerIdx = i
			cols = resolveColumns(cells)
			break
		}
		// Preamble rows are "key;value" pairs.
		if len(cells) >= 2 {
			key := strings.ToLower(strings.TrimSpace(cells[0]))
			if key != "" {
				meta[key] = strings.TrimSpace(cells[1])
			}
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
		cells := strings.Split(line, ";")
		if len(cells) <= need {
			continue
		}
		t, err := parseDecimal(cells[cols.time])
		if err != nil {
			continue
		}
		lat, err1 := parseDecimal(cells[cols.lat])
		lon, err2 := parseDecimal(cells[cols.lon])
		spd, err3 := parseDecimal(cells[cols.speed])
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
			if h, err := parseDecimal(cells[cols.heading]); err == nil {
				s.Heading = h
			}
		}
		for k, ci := range cols.channelCols {
			if ci >= len(cells) {
				continue
			}
			if v, err := parseDecimal(cells[ci]); err == nil {
				if s.Channels == nil {
					s.Channels = make(map[string]float64, len(cols.channelCols))
				}
				s.Channels[cols.channelNames[k]] = v
			}
		}
		b.add(s)
	}

	start := parseStartDate(meta["date"], meta["time"])
	return b.build(n.Format(), cols.fields(cols.heading >= 0), start)
}

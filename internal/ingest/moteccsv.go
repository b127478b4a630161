package ingest

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// motecCsvNormalizer handles MoTeC i2 CSV exports: fully quoted cells, a
// preamble of "Key","Value" pairs, then a channel header row followed by a
// units row. Channel units come from the units row, not the header.
type motecCsvNormalizer struct{}

func (motecCsvNormalizer) Format() Format { return FormatMotecCsv }

func (motecCsvNormalizer) Detect(data []byte) bool {
	for _, line := range headLines(data, 3) {
		if strings.Contains(line, `"Format"`) && strings.Contains(line, "MoTeC") {
			return true
		}
	}
	return false
}

func (n motecCsvNormalizer) Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, malformedf(n.Format(), "broken csv structure: %v", err)
	}

	meta := map[string]string{}
	headerIdx := -1
	var cols columnMap
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if countRecognized(row) >= 3 {
			headerIdx = i
			cols = resolveColumns(row)
			break
		}
		if len(row) >= 2 {
			key := strings.ToLower(strings.TrimSpace(row[0]))
			if key != "" {
				meta[key] = strings.TrimSpace(row[1])
			}
		}
	}
	if headerIdx < 0 {
		return nil, malformedf(n.Format(), "no channel header row found")
	}
	if cols.lat < 0 || cols.lon < 0 {
		return nil, malformedf(n.Format(), "missing GPS latitude/longitude columns")
	}
	if cols.speed < 0 {
		return nil, malformedf(n.Format(), "missing speed column")
	}

	// The row after the header lists per-channel units; it is absent in some
	// exports, in which case the first data row starts immediately.
	dataIdx := headerIdx + 1
	var unitRow []string
	if dataIdx < len(rows) && !looksNumeric(rows[dataIdx], cols.lat) {
		unitRow = rows[dataIdx]
		dataIdx++
	}

	speedUnit := ""
	if cols.speed < len(unitRow) {
		speedUnit = units.SniffSpeedUnit(unitRow[cols.speed])
	}
	if speedUnit == "" {
		speedUnit = units.SniffSpeedUnit(cols.speedHeader)
	}
	if speedUnit == "" {
		speedUnit = units.KPH
	}

	// Without a time column, timestamps are synthesized from the declared
	// sample rate.
	sampleRate := 0.0
	if cols.time < 0 {
		sampleRate, _ = strconv.ParseFloat(meta["sample rate"], 64)
		if sampleRate <= 0 {
			return nil, malformedf(n.Format(), "missing time column and sample rate")
		}
	}

	need := cols.lat
	for _, idx := range []int{cols.time, cols.lon, cols.speed} {
		if idx > need {
			need = idx
		}
	}

	b := newSampleBuilder(tuning.GetMaxPlausibleSpeedMPS())
	var t0 float64
	haveT0 := false
	rowN := 0
	for _, row := range rows[dataIdx:] {
		if len(row) <= need {
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(row[cols.lat]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(row[cols.lon]), 64)
		spd, err3 := strconv.ParseFloat(strings.TrimSpace(row[cols.speed]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}

		var timeMs int64
		if cols.time >= 0 {
			t, err := strconv.ParseFloat(strings.TrimSpace(row[cols.time]), 64)
			if err != nil {
				continue
			}
			if !haveT0 {
				t0, haveT0 = t, true
			}
			timeMs = int64(math.Round((t - t0) * 1000))
		} else {
			timeMs = int64(math.Round(float64(rowN) / sampleRate * 1000))
		}
		rowN++

		s := telemetry.Sample{
			TimeMs:   timeMs,
			Lat:      lat,
			Lon:      lon,
			SpeedMps: units.ToMPS(spd, speedUnit),
			Heading:  math.NaN(),
		}
		if cols.heading >= 0 && cols.heading < len(row) {
			if h, err := strconv.ParseFloat(strings.TrimSpace(row[cols.heading]), 64); err == nil {
				s.Heading = h
			}
		}
		for k, ci := range cols.channelCols {
			if ci >= len(row) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[ci]), 64); err == nil {
				if s.Channels == nil {
					s.Channels = make(map[string]float64, len(cols.channelCols))
				}
				s.Channels[cols.channelNames[k]] = v
			}
		}
		b.add(s)
	}

	start := parseStartDate(meta["log date"], meta["log time"])
	return b.build(n.Format(), cols.fields(cols.heading >= 0), start)
}

// looksNumeric reports whether the given cell of a row parses as a number,
// used to tell a units row from the first data row.
func looksNumeric(row []string, idx int) bool {
	if idx < 0 || idx >= len(row) {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	return err == nil
}

package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apex-data/laptrace/internal/config"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// vboNormalizer handles Racelogic-style .vbo text files: a creation stamp,
// bracketed sections ([header] listing channels, [column names], [data] with
// space-delimited rows). Latitude and longitude are logged in minutes of arc
// with west-positive longitude; time is a UTC HHMMSS.ss wall clock.
type vboNormalizer struct{}

func (vboNormalizer) Format() Format { return FormatVbo }

func (vboNormalizer) Detect(data []byte) bool {
	for _, line := range headLines(data, 40) {
		if strings.EqualFold(strings.TrimSpace(line), "[header]") {
			return true
		}
	}
	return false
}

func (n vboNormalizer) Parse(data []byte, tuning *config.TuningConfig) (*telemetry.ParsedFile, error) {
	lines := splitLines(data)

	var (
		section      string
		headerLines  []string
		columnTokens []string
		dataStart    = -1
	)
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			if section == "data" {
				dataStart = i + 1
				break
			}
			continue
		}
		switch section {
		case "header":
			headerLines = append(headerLines, strings.ToLower(line))
		case "column names":
			if columnTokens == nil {
				columnTokens = strings.Fields(line)
			}
		}
	}
	if columnTokens == nil {
		return nil, malformedf(n.Format(), "missing [column names] section")
	}
	if dataStart < 0 {
		return nil, malformedf(n.Format(), "missing [data] section")
	}

	cols := resolveColumns(columnTokens)
	if cols.lat < 0 || cols.lon < 0 {
		return nil, malformedf(n.Format(), "missing lat/long columns")
	}
	if cols.time < 0 {
		return nil, malformedf(n.Format(), "missing time column")
	}
	if cols.speed < 0 {
		return nil, malformedf(n.Format(), "missing velocity column")
	}

	// The [header] section names channels verbosely ("velocity kmh"); sniff
	// the speed unit there rather than from the terse column token.
	speedUnit := ""
	for _, hl := range headerLines {
		if strings.Contains(hl, "velocity") || strings.Contains(hl, "speed") {
			if u := units.SniffSpeedUnit(hl); u != "" {
				speedUnit = u
				break
			}
		}
	}
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
	var sod0 float64
	haveSod0 := false
	for _, raw := range lines[dataStart:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		cells := strings.Fields(line)
		if len(cells) <= need {
			continue
		}
		sod, err := parseVboClock(cells[cols.time])
		if err != nil {
			continue
		}
		latMin, err1 := strconv.ParseFloat(cells[cols.lat], 64)
		lonMin, err2 := strconv.ParseFloat(cells[cols.lon], 64)
		spd, err3 := strconv.ParseFloat(cells[cols.speed], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if !haveSod0 {
			sod0, haveSod0 = sod, true
		}
		elapsed := sod - sod0
		if elapsed < 0 {
			elapsed += 24 * 3600 // midnight wrap
		}

		s := telemetry.Sample{
			TimeMs: int64(math.Round(elapsed * 1000)),
			// Coordinates are minutes of arc; longitude is logged
			// west-positive and flipped to the conventional sign.
			Lat:      latMin / 60,
			Lon:      -lonMin / 60,
			SpeedMps: units.ToMPS(spd, speedUnit),
			Heading:  math.NaN(),
		}
		if cols.heading >= 0 && cols.heading < len(cells) {
			if h, err := strconv.ParseFloat(cells[cols.heading], 64); err == nil {
				s.Heading = h
			}
		}
		for k, ci := range cols.channelCols {
			if ci >= len(cells) {
				continue
			}
			if v, err := strconv.ParseFloat(cells[ci], 64); err == nil {
				if s.Channels == nil {
					s.Channels = make(map[string]float64, len(cols.channelCols))
				}
				s.Channels[cols.channelNames[k]] = v
			}
		}
		b.add(s)
	}

	return b.build(n.Format(), cols.fields(cols.heading >= 0), parseVboCreated(lines))
}

// parseVboClock converts a HHMMSS.ss UTC wall clock into seconds of day.
func parseVboClock(cell string) (float64, error) {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	hh := math.Floor(v / 10000)
	mm := math.Floor(math.Mod(v, 10000) / 100)
	ss := math.Mod(v, 100)
	return hh*3600 + mm*60 + ss, nil
}

// parseVboCreated extracts the session start from the leading
// "File created on 18/04/2026 at 14:32:10" stamp, when present.
func parseVboCreated(lines []string) *time.Time {
	for _, raw := range lines[:min(len(lines), 5)] {
		line := strings.TrimSpace(raw)
		rest, ok := strings.CutPrefix(line, "File created on ")
		if !ok {
			continue
		}
		rest = strings.NewReplacer(" at ", " ", " @ ", " ").Replace(rest)
		return parseStartDate(rest, "")
	}
	return nil
}

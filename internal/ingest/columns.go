package ingest

import (
	"strings"

	"github.com/apex-data/laptrace/internal/telemetry"
)

// colRole classifies one CSV header cell.
type colRole int

const (
	colChannel colRole = iota // unrecognized: carried as a named extra channel
	colTime
	colLat
	colLon
	colSpeed
	colHeading
)

// canonicalKey lowercases a header cell and strips unit suffixes and
// separators, so "GPS Speed (km/h)", "gps_speed" and "GPS Speed" all compare
// equal. Used for both role classification and display defaults.
func canonicalKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	for _, cut := range []string{"(", "[", "*"} {
		if i := strings.Index(s, cut); i >= 0 {
			s = s[:i]
		}
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-', '.', '/':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// classifyColumn maps a header cell to its role. The assembly code treats
// only the first column of each GPS role as canonical; duplicates (wheel
// speeds, a second time base) fall back to plain channels.
func classifyColumn(name string) colRole {
	key := canonicalKey(name)
	switch {
	case key == "time" || key == "elapsedtime" || key == "utctime":
		return colTime
	case key == "lat" || strings.Contains(key, "latitude"):
		return colLat
	case key == "lon" || key == "long" || key == "lng" || strings.Contains(key, "longitude"):
		return colLon
	case strings.Contains(key, "speed") || strings.HasPrefix(key, "velocity"):
		return colSpeed
	case key == "course" || strings.Contains(key, "heading") || strings.Contains(key, "bearing"):
		return colHeading
	}
	return colChannel
}

// cleanChannelName trims a header cell to a presentable channel name:
// whitespace and any unit suffix removed, original capitalization kept.
func cleanChannelName(name string) string {
	s := strings.TrimSpace(name)
	for _, cut := range []string{"(", "[", "*"} {
		if i := strings.Index(s, cut); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
	}
	return s
}

// countRecognized returns how many cells of a candidate header row carry a
// recognized GPS role. Header sniffing accepts a row once this count reaches
// the per-format minimum.
func countRecognized(cells []string) int {
	n := 0
	seen := map[colRole]bool{}
	for _, c := range cells {
		role := classifyColumn(c)
		if role != colChannel && !seen[role] {
			seen[role] = true
			n++
		}
	}
	return n
}

// columnMap resolves a header row into canonical column indices plus the
// ordered extra channels. The first column winning each GPS role is
// canonical; repeats demote to channels.
type columnMap struct {
	time    int
	lat     int
	lon     int
	speed   int
	heading int

	// channels maps column index to cleaned channel name, in column order.
	channelCols  []int
	channelNames []string

	speedHeader string // raw header cell of the speed column, for unit sniffing
}

func resolveColumns(cells []string) columnMap {
	m := columnMap{time: -1, lat: -1, lon: -1, speed: -1, heading: -1}
	for i, cell := range cells {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		role := classifyColumn(cell)
		claimed := false
		switch role {
		case colTime:
			if m.time < 0 {
				m.time = i
				claimed = true
			}
		case colLat:
			if m.lat < 0 {
				m.lat = i
				claimed = true
			}
		case colLon:
			if m.lon < 0 {
				m.lon = i
				claimed = true
			}
		case colSpeed:
			if m.speed < 0 {
				m.speed = i
				m.speedHeader = cell
				claimed = true
			}
		case colHeading:
			if m.heading < 0 {
				m.heading = i
				claimed = true
			}
		}
		if !claimed {
			m.channelCols = append(m.channelCols, i)
			m.channelNames = append(m.channelNames, cleanChannelName(cell))
		}
	}
	return m
}

// fields assembles the FieldMapping list for the parsed file: Speed first,
// Heading when present, then the extra channels in column order.
func (m *columnMap) fields(hasHeading bool) []telemetry.FieldMapping {
	out := []telemetry.FieldMapping{{Channel: "Speed", Display: true}}
	if hasHeading {
		out = append(out, telemetry.FieldMapping{Channel: "Heading", Display: true})
	}
	for _, name := range m.channelNames {
		out = append(out, telemetry.FieldMapping{Channel: name, Display: displayByDefault(name)})
	}
	return out
}

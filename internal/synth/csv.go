package synth

import (
	"bytes"
	"math"
	"sort"
	"strconv"

	"github.com/apex-data/laptrace/internal/telemetry"
)

// EnhancedCSV renders samples in the phone lap-timer export shape: a
// metadata preamble, a channel header row, then one row per fix. The speed
// column is written in m/s and floats use their shortest round-trip form, so
// parsing the output reproduces the input samples bit for bit.
//
// Meta keys are written as given; nil meta gets a minimal preamble that
// still satisfies format detection.
func EnhancedCSV(samples []telemetry.Sample, meta map[string]string) []byte {
	if meta == nil {
		meta = map[string]string{"Driver": "synthetic", "Session": "generated"}
	}
	var buf bytes.Buffer
	for _, key := range sortedKeys(meta) {
		buf.WriteString(key)
		buf.WriteString(":,")
		buf.WriteString(meta[key])
		buf.WriteByte('\n')
	}

	hasHeading := false
	for i := range samples {
		if !math.IsNaN(samples[i].Heading) {
			hasHeading = true
			break
		}
	}
	channels := channelNames(samples)

	buf.WriteString("Time (s),Latitude (deg),Longitude (deg),Speed (m/s)")
	if hasHeading {
		buf.WriteString(",Heading (deg)")
	}
	for _, name := range channels {
		buf.WriteByte(',')
		buf.WriteString(name)
	}
	buf.WriteByte('\n')

	for i := range samples {
		s := &samples[i]
		buf.WriteString(strconv.FormatFloat(float64(s.TimeMs)/1000, 'f', 3, 64))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(s.Lat, 'f', -1, 64))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(s.Lon, 'f', -1, 64))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(s.SpeedMps, 'f', -1, 64))
		if hasHeading {
			buf.WriteByte(',')
			if !math.IsNaN(s.Heading) {
				buf.WriteString(strconv.FormatFloat(s.Heading, 'f', -1, 64))
			}
		}
		for _, name := range channels {
			buf.WriteByte(',')
			if v, ok := s.Channel(name); ok {
				buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// channelNames collects the union of extra channel names across samples, in
// a stable order.
func channelNames(samples []telemetry.Sample) []string {
	seen := map[string]bool{}
	var out []string
	for i := range samples {
		for name := range samples[i].Channels {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

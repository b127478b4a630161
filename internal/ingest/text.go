package ingest

import (
	"strings"
	"time"
)

// splitLines splits file content into lines, tolerating CRLF endings.
func splitLines(data []byte) []string {
	lines := strings.Split(string(data), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// headLines returns at most n leading lines, for cheap format detection.
func headLines(data []byte, n int) []string {
	// Detection only needs the head of the file; avoid converting many MB.
	const maxProbe = 64 * 1024
	if len(data) > maxProbe {
		data = data[:maxProbe]
	}
	lines := splitLines(data)
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// startDateLayouts are the session date shapes the CSV preambles use.
var startDateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
	"2006-01-02",
}

// parseStartDate combines a preamble date and optional wall-clock string into
// a session start time, or nil when nothing parses. Times are taken as UTC;
// track-local rendering happens at the display edge.
func parseStartDate(date, clock string) *time.Time {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return nil
	}
	candidate := date
	if clock != "" {
		candidate = date + " " + clock
	}
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return &t
		}
	}
	// Retry without the clock in case it was malformed.
	if clock != "" {
		for _, layout := range startDateLayouts {
			if t, err := time.Parse(layout, date); err == nil {
				return &t
			}
		}
	}
	return nil
}

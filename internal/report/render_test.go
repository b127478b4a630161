package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apex-data/laptrace/internal/units"
)

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0:00.000"},
		{4950, "0:04.950"},
		{83456, "1:23.456"},
		{600000, "10:00.000"},
		{-500, "-0:00.500"},
	}
	for _, tt := range tests {
		if got := FormatLapTime(tt.ms); got != tt.want {
			t.Errorf("FormatLapTime(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	if got := FormatDelta(1234); got != "+1.234" {
		t.Errorf("FormatDelta(1234) = %q, want +1.234", got)
	}
	if got := FormatDelta(-432); got != "-0.432" {
		t.Errorf("FormatDelta(-432) = %q, want -0.432", got)
	}
}

func TestRender(t *testing.T) {
	f, segmented, _ := reportFixture(t)
	d, err := Build(Params{
		SessionName: "morning stint",
		TrackName:   "circle",
		Units:       units.KPH,
		File:        f,
		Laps:        segmented,
		LapNumber:   2,
		RefNumber:   1,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<h1>morning stint at circle</h1>",
		"Speed vs Distance (kph)",
		"Pace Delta",
		"lap 2",
		"lap 1 (reference)",
		"<td>optimal</td>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}

	// The header must land inside the document body.
	bodyAt := strings.Index(html, "<body>")
	headerAt := strings.Index(html, "<h1>")
	if bodyAt < 0 || headerAt < bodyAt {
		t.Errorf("header injected outside the page body (body at %d, header at %d)", bodyAt, headerAt)
	}
}

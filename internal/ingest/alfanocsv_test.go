package ingest

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

const alfanoFixture = `ALFANO6;1.4.2
Date;18/04/2026
Time;10:15
Session;2

Time;Latitude;Longitude;Speed;RPM;T1
0,0;44,500000;11,000000;72,0;9500;52,3
0,1;44,500010;11,000000;72,4;9600;52,4
0,2;44,500020;11,000000;73,0;9700;52,5
`

func TestAlfanoCsvDetect(t *testing.T) {
	if !(alfanoCsvNormalizer{}).Detect([]byte(alfanoFixture)) {
		t.Error("fixture not detected")
	}
	// Structural detection works without the vendor token too.
	structural := "Time;Latitude;Longitude;Speed\n0,0;44,5;11,0;72,0\n"
	if !(alfanoCsvNormalizer{}).Detect([]byte(structural)) {
		t.Error("semicolon header not detected")
	}
	if (alfanoCsvNormalizer{}).Detect([]byte("Time,Latitude,Longitude,Speed\n")) {
		t.Error("comma CSV detected")
	}
}

func TestAlfanoCsvParse(t *testing.T) {
	pf, err := Parse([]byte(alfanoFixture), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pf.Format != string(FormatAlfanoCsv) {
		t.Errorf("Format = %q, want %q", pf.Format, FormatAlfanoCsv)
	}
	if len(pf.Samples) != 3 {
		t.Fatalf("parsed %d samples, want 3", len(pf.Samples))
	}

	// Comma decimal separators throughout.
	for i, want := range []int64{0, 100, 200} {
		if got := pf.Samples[i].TimeMs; got != want {
			t.Errorf("sample %d TimeMs = %d, want %d", i, got, want)
		}
	}
	if got := pf.Samples[2].Lat; got != 44.500020 {
		t.Errorf("Lat = %v, want 44.500020", got)
	}

	// No unit declared on the speed column: km/h assumed.
	if got := pf.Samples[0].SpeedMps; math.Abs(got-20.0) > 1e-9 {
		t.Errorf("SpeedMps = %v, want 20", got)
	}

	if v, ok := pf.Samples[0].Channel("T1"); !ok || v != 52.3 {
		t.Errorf("T1 = %v,%v, want 52.3", v, ok)
	}

	if pf.StartDate == nil {
		t.Fatal("StartDate = nil")
	}
	want := time.Date(2026, 4, 18, 10, 15, 0, 0, time.UTC)
	if !pf.StartDate.Equal(want) {
		t.Errorf("StartDate = %v, want %v", pf.StartDate, want)
	}
}

func TestAlfanoCsvMissingColumns(t *testing.T) {
	data := "ALFANO6;1.4.2\nTime;Latitude;Speed;RPM\n0,0;44,5;72,0;9500\n"
	_, err := Parse([]byte(data), nil)
	var mde *MalformedDataError
	if !errors.As(err, &mde) {
		t.Fatalf("error = %v, want MalformedDataError", err)
	}
	if !strings.Contains(mde.Reason, "latitude/longitude") {
		t.Errorf("reason = %q", mde.Reason)
	}
}

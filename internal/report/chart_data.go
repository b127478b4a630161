// Package report builds the session analysis page: lap comparison series
// prepared for charting, summary statistics, and the go-echarts HTML
// rendering. Data preparation is separate from rendering so the numbers can
// be tested without parsing HTML.
package report

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/apex-data/laptrace/internal/laps"
	"github.com/apex-data/laptrace/internal/pace"
	"github.com/apex-data/laptrace/internal/telemetry"
	"github.com/apex-data/laptrace/internal/units"
)

// Params selects what one report covers. Lap and reference numbers of zero
// pick the fastest lap.
type Params struct {
	SessionName string
	TrackName   string
	Units       string

	File      *telemetry.ParsedFile
	Laps      []laps.Lap
	LapNumber int
	RefNumber int
}

// SpeedStats summarizes the speed trace of one lap, in display units.
type SpeedStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// LapRow is one line of the report's lap table, speeds in display units.
type LapRow struct {
	Number   int           `json:"number"`
	TimeMs   float64       `json:"time_ms"`
	DeltaMs  float64       `json:"delta_ms"`
	MaxSpeed float64       `json:"max_speed"`
	Sectors  *laps.Sectors `json:"sectors,omitempty"`
	Fastest  bool          `json:"fastest"`
}

// Data is everything the rendered page shows. The comparison series all
// share DistanceM as their x axis; nil entries are chart gaps.
type Data struct {
	SessionName string
	TrackName   string
	Units       string

	Current   laps.Lap
	Reference laps.Lap

	Rows    []LapRow
	Optimal *laps.OptimalLap

	DistanceM    []float64
	CurrentSpeed []float64
	RefSpeed     []*float64
	PaceS        []*float64

	CurrentStats   SpeedStats
	ReferenceStats SpeedStats
}

// Build prepares the report data for one session on one course.
func Build(p Params) (*Data, error) {
	if p.File == nil || len(p.Laps) == 0 {
		return nil, errors.New("no laps to report")
	}

	fastest, _ := laps.Fastest(p.Laps)
	current := fastest
	if p.LapNumber > 0 {
		var ok bool
		if current, ok = laps.ByNumber(p.Laps, p.LapNumber); !ok {
			return nil, fmt.Errorf("lap %d not found", p.LapNumber)
		}
	}
	reference := fastest
	if p.RefNumber > 0 {
		var ok bool
		if reference, ok = laps.ByNumber(p.Laps, p.RefNumber); !ok {
			return nil, fmt.Errorf("reference lap %d not found", p.RefNumber)
		}
	}

	curSamples := current.Samples(p.File)
	refSamples := reference.Samples(p.File)
	align := pace.Align(curSamples, refSamples, "")
	if align == nil {
		return nil, errors.New("not enough samples to align laps")
	}

	d := &Data{
		SessionName: p.SessionName,
		TrackName:   p.TrackName,
		Units:       p.Units,
		Current:     current,
		Reference:   reference,
		DistanceM:   align.DistanceM,
		PaceS:       align.PaceS,
	}

	d.CurrentSpeed = make([]float64, len(curSamples))
	for i := range curSamples {
		d.CurrentSpeed[i] = units.ConvertSpeed(curSamples[i].SpeedMps, p.Units)
	}
	d.RefSpeed = make([]*float64, len(align.RefSpeedMps))
	for i, v := range align.RefSpeedMps {
		if v == nil {
			continue
		}
		converted := units.ConvertSpeed(*v, p.Units)
		d.RefSpeed[i] = &converted
	}

	for _, lap := range p.Laps {
		d.Rows = append(d.Rows, LapRow{
			Number:   lap.Number,
			TimeMs:   lap.TimeMs,
			DeltaMs:  lap.TimeMs - fastest.TimeMs,
			MaxSpeed: units.ConvertSpeed(lap.MaxSpeedMps, p.Units),
			Sectors:  lap.Sectors,
			Fastest:  lap.Number == fastest.Number,
		})
	}
	d.Optimal, _ = laps.Optimal(p.Laps)

	d.CurrentStats = speedStats(curSamples, p.Units)
	d.ReferenceStats = speedStats(refSamples, p.Units)
	return d, nil
}

// speedStats computes the lap speed summary in display units.
func speedStats(samples []telemetry.Sample, displayUnits string) SpeedStats {
	speeds := make([]float64, len(samples))
	for i := range samples {
		speeds[i] = units.ConvertSpeed(samples[i].SpeedMps, displayUnits)
	}
	sort.Float64s(speeds)
	return SpeedStats{
		Mean:   stat.Mean(speeds, nil),
		Median: stat.Quantile(0.5, stat.Empirical, speeds, nil),
		Max:    speeds[len(speeds)-1],
	}
}

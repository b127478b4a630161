// Package pace aligns two laps by track distance and computes the running
// time delta between them, the number a driver actually wants: how far ahead
// or behind the reference they are at each point of the track.
package pace

import (
	"math"
	"sort"

	"github.com/apex-data/laptrace/internal/geo"
	"github.com/apex-data/laptrace/internal/telemetry"
)

// AlignmentResult is a distance-indexed comparison of a current lap against
// a reference lap. All slices run parallel to the current lap's samples.
// Pointer entries are nil past the point where the current lap's cumulative
// distance exceeds the reference lap's total: the comparison is undefined
// there and is never extrapolated.
type AlignmentResult struct {
	// DistanceM is the current lap's cumulative track distance.
	DistanceM []float64 `json:"distance_m"`

	// PaceS is current elapsed minus reference elapsed at the same distance,
	// in seconds. Positive means the current lap is behind.
	PaceS []*float64 `json:"pace_s"`

	// RefSpeedMps is the reference lap's speed at the same distance.
	RefSpeedMps []*float64 `json:"ref_speed_mps"`

	// RefChannel is the reference lap's value of the requested channel at
	// the same distance, nil where the reference has a gap there.
	RefChannel []*float64 `json:"ref_channel,omitempty"`
}

// Align compares current against reference at matching track distance.
// channel optionally names an extra channel to align; pass "" for none.
// Each lap is projected about its own centroid, which is fine because only
// intra-lap distances enter the comparison. Elapsed time is measured from
// each lap's first sample, so laps cut at the same start line compare from
// the same track position. Returns nil when either lap is too short to
// carry a distance axis.
func Align(current, reference []telemetry.Sample, channel string) *AlignmentResult {
	if len(current) == 0 || len(reference) < 2 {
		return nil
	}

	curDist := geo.CumulativeDistance(project(current))
	refDist := geo.CumulativeDistance(project(reference))
	total := refDist[len(refDist)-1]

	curElapsed := elapsedSeconds(current)
	refElapsed := elapsedSeconds(reference)

	res := &AlignmentResult{
		DistanceM:   curDist,
		PaceS:       make([]*float64, len(current)),
		RefSpeedMps: make([]*float64, len(current)),
	}
	var refChan []float64
	if channel != "" {
		refChan = channelSeries(reference, channel)
		res.RefChannel = make([]*float64, len(current))
	}

	for i, d := range curDist {
		if d > total {
			continue
		}
		j, frac := bracket(refDist, d)

		pace := curElapsed[i] - lerp(refElapsed[j], refElapsed[j+1], frac)
		res.PaceS[i] = &pace

		speed := lerp(reference[j].SpeedMps, reference[j+1].SpeedMps, frac)
		res.RefSpeedMps[i] = &speed

		if refChan != nil {
			if v := lerpGap(refChan[j], refChan[j+1], frac); !math.IsNaN(v) {
				res.RefChannel[i] = &v
			}
		}
	}
	return res
}

func project(samples []telemetry.Sample) []geo.XY {
	pts := make([]geo.Point, len(samples))
	for i := range samples {
		pts[i] = geo.Point{Lat: samples[i].Lat, Lon: samples[i].Lon}
	}
	proj := geo.NewProjector(geo.Centroid(pts))
	out := make([]geo.XY, len(pts))
	for i, p := range pts {
		out[i] = proj.Project(p)
	}
	return out
}

func elapsedSeconds(samples []telemetry.Sample) []float64 {
	out := make([]float64, len(samples))
	t0 := samples[0].TimeMs
	for i := range samples {
		out[i] = float64(samples[i].TimeMs-t0) / 1000
	}
	return out
}

func channelSeries(samples []telemetry.Sample, name string) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		if v, ok := samples[i].Channel(name); ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// bracket finds j with dist[j] <= d <= dist[j+1] and the fraction of the way
// through that segment. Callers guarantee d <= dist[len-1]. Zero-length
// segments from duplicate fixes resolve to their left edge.
func bracket(dist []float64, d float64) (int, float64) {
	j := sort.SearchFloat64s(dist, d)
	if j == 0 {
		return 0, 0
	}
	if j == len(dist) {
		j--
	}
	lo := j - 1
	span := dist[j] - dist[lo]
	if span <= 0 {
		return lo, 0
	}
	return lo, (d - dist[lo]) / span
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}

// lerpGap interpolates a channel across one reference segment. An exact hit
// on a sample keeps that sample's value even when the other endpoint is a
// gap; a gap at either end otherwise poisons the whole segment.
func lerpGap(a, b, frac float64) float64 {
	if frac <= 0 {
		return a
	}
	if frac >= 1 {
		return b
	}
	return a + (b-a)*frac
}

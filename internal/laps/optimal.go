package laps

import "math"

// OptimalLap is the theoretical best lap stitched from the fastest
// individual sectors of a session.
type OptimalLap struct {
	TimeMs  float64 `json:"time_ms"`
	Sectors Sectors `json:"sectors"`

	// SectorLaps names the lap that contributed each sector.
	SectorLaps [3]int `json:"sector_laps"`

	// DeltaToFastestMs is optimal time minus the fastest real lap, never
	// positive.
	DeltaToFastestMs float64 `json:"delta_to_fastest_ms"`
}

// Optimal composes the fastest S1, S2 and S3 across the given laps, each
// chosen independently. It reports false when there are no laps or when any
// lap lacks sector data, since a partial mix of timed and untimed laps would
// make the composite misleading.
func Optimal(in []Lap) (*OptimalLap, bool) {
	if len(in) == 0 {
		return nil, false
	}

	best := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	var who [3]int
	fastest := math.Inf(1)

	for _, lap := range in {
		if lap.Sectors == nil {
			return nil, false
		}
		fastest = min(fastest, lap.TimeMs)
		for k, v := range [3]float64{lap.Sectors.S1Ms, lap.Sectors.S2Ms, lap.Sectors.S3Ms} {
			if v < best[k] {
				best[k] = v
				who[k] = lap.Number
			}
		}
	}

	opt := &OptimalLap{
		TimeMs:     best[0] + best[1] + best[2],
		Sectors:    Sectors{S1Ms: best[0], S2Ms: best[1], S3Ms: best[2]},
		SectorLaps: who,
	}
	opt.DeltaToFastestMs = opt.TimeMs - fastest
	return opt, true
}

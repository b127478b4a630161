package signal

// RepairSpeedGlitches returns a copy of the speed series with short dropout
// runs repaired, plus the number of repaired samples. A run of consecutive
// values below floor, no longer than maxRun and flanked on both sides by
// at-or-above-floor readings, is a logger fault and is replaced by linear
// interpolation between the flanking values. Longer runs and runs touching
// either end of the series are genuine stops and stay untouched.
func RepairSpeedGlitches(speeds []float64, floor float64, maxRun int) ([]float64, int) {
	out := make([]float64, len(speeds))
	copy(out, speeds)
	if maxRun <= 0 {
		return out, 0
	}

	repaired := 0
	i := 0
	for i < len(out) {
		if !(out[i] < floor) {
			i++
			continue
		}
		start := i
		for i < len(out) && out[i] < floor {
			i++
		}
		// Run occupies [start, i).
		if start == 0 || i == len(out) || i-start > maxRun {
			continue
		}
		before, after := out[start-1], out[i]
		span := float64(i - start + 1)
		for k := start; k < i; k++ {
			out[k] = before + (after-before)*float64(k-start+1)/span
		}
		repaired += i - start
	}
	return out, repaired
}

package signal

import "math"

// SmoothWindow maps a 0-100% smoothing strength onto the odd moving-average
// window widths 1 through 15. Strength 0 (window 1) is the identity.
func SmoothWindow(strength int) int {
	if strength < 0 {
		strength = 0
	}
	if strength > 100 {
		strength = 100
	}
	return strength*7/100*2 + 1
}

// Smooth applies a centered moving average of the given window width to the
// series and returns a new slice. NaN entries are excluded from each
// position's average and NaN positions stay NaN: gaps are preserved, never
// filled in.
func Smooth(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window < 3 {
		copy(out, values)
		return out
	}
	half := window / 2
	for i, center := range values {
		if math.IsNaN(center) {
			out[i] = center
			continue
		}
		j0 := max(0, i-half)
		j1 := min(len(values)-1, i+half)
		sum, cnt := 0.0, 0
		for j := j0; j <= j1; j++ {
			if v := values[j]; !math.IsNaN(v) {
				sum += v
				cnt++
			}
		}
		// cnt >= 1: the center itself is valid.
		out[i] = sum / float64(cnt)
	}
	return out
}

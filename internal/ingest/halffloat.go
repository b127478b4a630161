package ingest

import "math"

// halfToFloat decodes an IEEE 754 half-precision value from its raw 16 bits.
// Loggers store slow channels (temperatures, pressures, battery voltage) in
// this compact representation; Go has no float16, so the sign, exponent and
// mantissa fields are unpacked by hand.
func halfToFloat(bits uint16) float64 {
	sign := 1.0
	if bits&0x8000 != 0 {
		sign = -1.0
	}
	exp := int((bits >> 10) & 0x1F)
	mant := float64(bits & 0x3FF)

	switch exp {
	case 0:
		// Zero and subnormals: no implicit leading bit, exponent fixed
		// at 2^-14.
		return sign * mant / 1024 * math.Pow(2, -14)
	case 0x1F:
		if mant == 0 {
			return sign * math.Inf(1)
		}
		return math.NaN()
	default:
		return sign * (1 + mant/1024) * math.Pow(2, float64(exp-15))
	}
}

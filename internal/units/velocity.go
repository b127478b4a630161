// Package units provides shared constants and conversion for speed units
// and track-local timezones. Canonical storage is always meters per second
// and UTC; everything else is a display or ingest conversion.
package units

import "strings"

// Unit constants
const (
	MPS   = "mps"
	MPH   = "mph"
	KMPH  = "kmph"
	KPH   = "kph"
	KNOTS = "knots"
)

// ValidUnits contains all valid display unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid display units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Samples always carry m/s; conversion happens at the presentation edge only.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	case KNOTS:
		return speedMPS * 1.9438444924406
	default:
		return speedMPS
	}
}

// ToMPS converts a speed in the given source unit to meters per second.
// Used on the ingest side, where logger files declare their own units.
func ToMPS(speed float64, sourceUnits string) float64 {
	switch sourceUnits {
	case MPH:
		return speed * 0.44704
	case KMPH, KPH:
		return speed / 3.6
	case KNOTS:
		return speed * 0.514444444444
	default:
		return speed
	}
}

// SniffSpeedUnit guesses the unit declared in a CSV column header such as
// "Speed (mph)", "GPS Speed *km/h*" or "velocity kmh". It returns one of the
// unit constants, or the empty string when the header declares nothing.
func SniffSpeedUnit(header string) string {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "mph"):
		return MPH
	case strings.Contains(h, "km/h"), strings.Contains(h, "kmh"), strings.Contains(h, "kph"):
		return KPH
	case strings.Contains(h, "knot"), strings.Contains(h, "kts"):
		return KNOTS
	case strings.Contains(h, "m/s"), strings.Contains(h, "mps"):
		return MPS
	}
	return ""
}

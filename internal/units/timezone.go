package units

import (
	"fmt"
	"time"
)

// CommonTimezones is a curated list of timezones covering the regions where
// circuits in the bundled track database sit. The display layer offers these
// as suggestions; any tz database name is accepted.
var CommonTimezones = []string{
	"UTC",
	"America/Los_Angeles", // -08:00/-07:00
	"America/Denver",      // -07:00/-06:00
	"America/Chicago",     // -06:00/-05:00
	"America/New_York",    // -05:00/-04:00
	"America/Sao_Paulo",   // -03:00
	"Europe/London",       // +00:00/+01:00
	"Europe/Paris",        // +01:00/+02:00
	"Europe/Rome",         // +01:00/+02:00
	"Europe/Helsinki",     // +02:00/+03:00
	"Asia/Dubai",          // +04:00
	"Asia/Singapore",      // +08:00
	"Asia/Tokyo",          // +09:00
	"Australia/Melbourne", // +10:00/+11:00
	"Pacific/Auckland",    // +12:00/+13:00
}

// IsTimezoneValid checks if the given timezone is valid by attempting to load it from the tz database
func IsTimezoneValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ConvertTime converts a UTC time to the specified timezone
// Session start dates are stored in UTC, this function converts them for display
func ConvertTime(utcTime time.Time, targetTimezone string) (time.Time, error) {
	if targetTimezone == "UTC" {
		return utcTime, nil
	}
	loc, err := time.LoadLocation(targetTimezone)
	if err != nil {
		return utcTime, fmt.Errorf("failed to load timezone %s: %w", targetTimezone, err)
	}
	return utcTime.In(loc), nil
}

// Package units picks the default distance unit from the system timezone.
package units

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"

	"github.com/linuxmatters/avprocessor/internal/processor"
)

// DefaultDistanceUnit returns the distance unit most people in the local
// country measure a room in. Returns meters if detection fails.
func DefaultDistanceUnit() processor.DistanceUnit {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return processor.DistanceMeters
	}
	return DistanceUnitForTimezone(timezone)
}

// DistanceUnitForTimezone returns the distance unit for an IANA timezone.
func DistanceUnitForTimezone(timezone string) processor.DistanceUnit {
	// No country association
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return processor.DistanceMeters
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return processor.DistanceMeters
	}

	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return processor.DistanceMeters
	}

	return distanceUnitForCountry(country)
}

func distanceUnitForCountry(country string) processor.DistanceUnit {
	if feetCountries[country] {
		return processor.DistanceFeet
	}
	return processor.DistanceMeters
}

// feetCountries lists countries where room dimensions are usually given in
// feet. Everywhere else uses meters.
var feetCountries = map[string]bool{
	"United States": true,
	"Liberia":       true,
	"Myanmar":       true,
	"Burma":         true,

	// US territories
	"Puerto Rico":              true,
	"U.S. Virgin Islands":      true,
	"Guam":                     true,
	"American Samoa":           true,
	"Northern Mariana Islands": true,
}

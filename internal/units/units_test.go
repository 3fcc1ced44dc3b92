package units

import (
	"testing"

	"github.com/linuxmatters/avprocessor/internal/processor"
)

func TestDistanceUnitForTimezone(t *testing.T) {
	tests := []struct {
		timezone string
		want     processor.DistanceUnit
	}{
		// Feet
		{"America/New_York", processor.DistanceFeet},
		{"America/Los_Angeles", processor.DistanceFeet},
		{"America/Chicago", processor.DistanceFeet},
		{"America/Puerto_Rico", processor.DistanceFeet},

		// Meters
		{"Europe/London", processor.DistanceMeters},
		{"Europe/Berlin", processor.DistanceMeters},
		{"America/Toronto", processor.DistanceMeters},
		{"Asia/Tokyo", processor.DistanceMeters},
		{"Australia/Sydney", processor.DistanceMeters},

		// Edge cases
		{"UTC", processor.DistanceMeters},
		{"GMT", processor.DistanceMeters},
		{"Etc/UTC", processor.DistanceMeters},
		{"Not/A_Zone", processor.DistanceMeters},
	}

	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			got := DistanceUnitForTimezone(tt.timezone)
			if got != tt.want {
				t.Errorf("DistanceUnitForTimezone(%q) = %q, want %q", tt.timezone, got, tt.want)
			}
		})
	}
}

func TestDistanceUnitForCountry(t *testing.T) {
	tests := []struct {
		country string
		want    processor.DistanceUnit
	}{
		{"United States", processor.DistanceFeet},
		{"Liberia", processor.DistanceFeet},
		{"Myanmar", processor.DistanceFeet},
		{"Guam", processor.DistanceFeet},
		{"United Kingdom", processor.DistanceMeters},
		{"", processor.DistanceMeters},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			if got := distanceUnitForCountry(tt.country); got != tt.want {
				t.Errorf("distanceUnitForCountry(%q) = %q, want %q", tt.country, got, tt.want)
			}
		})
	}
}

func TestDefaultDistanceUnit(t *testing.T) {
	// Just verify it returns a distance unit without panicking
	unit := DefaultDistanceUnit()
	if unit != processor.DistanceFeet && unit != processor.DistanceMeters {
		t.Errorf("DefaultDistanceUnit() = %q, want feet or meters", unit)
	}
}

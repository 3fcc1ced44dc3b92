package processor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DistanceUnit selects how Speaker.Distance is interpreted.
type DistanceUnit string

// Distance units
const (
	DistanceMS     DistanceUnit = "ms"     // Distance is entered directly as a delay
	DistanceFeet   DistanceUnit = "feet"   // Distance from the listening position in feet
	DistanceMeters DistanceUnit = "meters" // Distance from the listening position in meters
)

// Speed of sound expressed as distance travelled per millisecond
const (
	MetersPerMS = 0.3430
	FeetPerMS   = 1.1164
)

// ParseDistanceUnit accepts the canonical names and their upper-case
// spellings ("MS", "FEET", "METERS").
func ParseDistanceUnit(s string) (DistanceUnit, error) {
	switch DistanceUnit(strings.ToLower(strings.TrimSpace(s))) {
	case DistanceMS:
		return DistanceMS, nil
	case DistanceFeet:
		return DistanceFeet, nil
	case DistanceMeters:
		return DistanceMeters, nil
	}
	return "", fmt.Errorf("%w: distance unit %q (want ms, feet or meters)", ErrInvalidSetting, s)
}

// UnmarshalText normalises the unit when decoding JSON or YAML.
func (u *DistanceUnit) UnmarshalText(text []byte) error {
	parsed, err := ParseDistanceUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// IsDistance reports whether the unit is a physical distance that needs
// converting into a delay.
func (u DistanceUnit) IsDistance() bool {
	parsed, err := ParseDistanceUnit(string(u))
	return err == nil && parsed != DistanceMS
}

// DistancePerMS returns the distance sound travels in one millisecond in this
// unit, or 0 for DistanceMS.
func (u DistanceUnit) DistancePerMS() float64 {
	parsed, _ := ParseDistanceUnit(string(u))
	switch parsed {
	case DistanceMeters:
		return MetersPerMS
	case DistanceFeet:
		return FeetPerMS
	default:
		return 0
	}
}

// ConvertDistanceToDelay returns the delay in milliseconds that moves a
// speaker at currentDistance back to largestDistance.
func ConvertDistanceToDelay(largestDistance, currentDistance, distancePerMS float64) float64 {
	return (largestDistance - currentDistance) / distancePerMS
}

// SpeakerDelays applies the selected distance unit to every speaker.
// For feet and meters each speaker is delayed so its sound arrives together
// with the most distant speaker's, which itself gets no delay. For ms the
// entered value is the delay.
func SpeakerDelays(unit DistanceUnit, speakers []Speaker) []EngineSpeaker {
	out := make([]EngineSpeaker, len(speakers))

	perMS := unit.DistancePerMS()
	maxDistance := 0.0
	if perMS > 0 && len(speakers) > 0 {
		distances := make([]float64, len(speakers))
		for i, s := range speakers {
			distances[i] = s.Distance
		}
		maxDistance = floats.Max(distances)
	}

	for i, s := range speakers {
		delay := s.Distance
		if perMS > 0 {
			delay = ConvertDistanceToDelay(maxDistance, s.Distance, perMS)
		}
		out[i] = EngineSpeaker{
			Speaker:     s.Speaker,
			Crossover:   s.Crossover,
			Delay:       delay,
			Gain:        s.Gain,
			IsSubwoofer: s.IsSubwoofer,
		}
	}
	return out
}

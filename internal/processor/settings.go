// Package processor holds the speaker layout and parametric EQ settings a
// user edits, and converts them into the values the DSP engine consumes.
package processor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/avprocessor/internal/devices"
	"gopkg.in/yaml.v3"
)

// Validation errors
var (
	ErrNoSpeakers       = errors.New("no speakers configured")
	ErrDuplicateSpeaker = errors.New("duplicate speaker name")
	ErrInvalidSetting   = errors.New("invalid setting")
)

// Speaker is one loudspeaker as entered by the user and persisted with a
// configuration version. Distance is interpreted through Settings.SelectedDistance.
type Speaker struct {
	Speaker     string  `json:"speaker" yaml:"speaker"`
	Crossover   *int    `json:"crossover" yaml:"crossover"` // Hz; nil means full range
	Distance    float64 `json:"distance" yaml:"distance"`
	Gain        float64 `json:"gain" yaml:"gain"`
	IsSubwoofer bool    `json:"isSubwoofer" yaml:"isSubwoofer"`
}

// HasCrossover reports whether the speaker is split into highpass and lowpass paths.
func (s Speaker) HasCrossover() bool {
	return s.Crossover != nil
}

// EngineSpeaker is a speaker after distance conversion: Delay is always in
// milliseconds.
type EngineSpeaker struct {
	Speaker     string  `json:"speaker" yaml:"speaker"`
	Crossover   *int    `json:"crossover" yaml:"crossover"`
	Delay       float64 `json:"delay" yaml:"delay"`
	Gain        float64 `json:"gain" yaml:"gain"`
	IsSubwoofer bool    `json:"isSubwoofer" yaml:"isSubwoofer"`
}

// HasCrossover reports whether the speaker is split into highpass and lowpass paths.
func (s EngineSpeaker) HasCrossover() bool {
	return s.Crossover != nil
}

// Filter is one parametric EQ band. Several bands may target the same
// speaker; their order in Settings.Filters is significant.
type Filter struct {
	Speaker string  `json:"speaker" yaml:"speaker"`
	Freq    int     `json:"freq" yaml:"freq"`
	Gain    float64 `json:"gain" yaml:"gain"`
	Q       float64 `json:"q" yaml:"q"`
}

// Settings is a complete configuration as edited and stored.
type Settings struct {
	Filters          []Filter     `json:"filters" yaml:"filters"`
	Speakers         []Speaker    `json:"speakers" yaml:"speakers"`
	SelectedDistance DistanceUnit `json:"selectedDistance" yaml:"selectedDistance"`
	Device           devices.ID   `json:"device" yaml:"device"`
}

// Validate checks the invariants the compiler relies on: at least one speaker,
// unique non-empty names, a known device and distance unit, and finite numbers.
// Bands naming an unknown speaker are allowed.
func (s *Settings) Validate() error {
	if len(s.Speakers) == 0 {
		return ErrNoSpeakers
	}

	if _, err := ParseDistanceUnit(string(s.SelectedDistance)); err != nil {
		return err
	}
	if _, err := devices.Lookup(s.Device); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, err)
	}

	seen := make(map[string]bool, len(s.Speakers))
	for i, sp := range s.Speakers {
		name := strings.TrimSpace(sp.Speaker)
		if name == "" {
			return fmt.Errorf("%w: speaker %d has no name", ErrInvalidSetting, i)
		}
		if seen[sp.Speaker] {
			return fmt.Errorf("%w: %q", ErrDuplicateSpeaker, sp.Speaker)
		}
		seen[sp.Speaker] = true

		if sp.Crossover != nil && *sp.Crossover <= 0 {
			return fmt.Errorf("%w: speaker %q crossover %d Hz", ErrInvalidSetting, sp.Speaker, *sp.Crossover)
		}
		if !isFinite(sp.Distance) || !isFinite(sp.Gain) {
			return fmt.Errorf("%w: speaker %q has a non-finite distance or gain", ErrInvalidSetting, sp.Speaker)
		}
		if s.SelectedDistance.IsDistance() && sp.Distance < 0 {
			return fmt.Errorf("%w: speaker %q distance %.2f is negative", ErrInvalidSetting, sp.Speaker, sp.Distance)
		}
	}

	for i, f := range s.Filters {
		if f.Freq <= 0 {
			return fmt.Errorf("%w: filter %d frequency %d Hz", ErrInvalidSetting, i, f.Freq)
		}
		if !isFinite(f.Gain) || !isFinite(f.Q) || f.Q <= 0 {
			return fmt.Errorf("%w: filter %d gain/q out of range", ErrInvalidSetting, i)
		}
	}

	return nil
}

// ForEngine converts every speaker's distance into a delay using the
// selected distance unit.
func (s *Settings) ForEngine() []EngineSpeaker {
	return SpeakerDelays(s.SelectedDistance, s.Speakers)
}

// OrphanedFilters returns the bands whose speaker is not part of the layout.
func (s *Settings) OrphanedFilters() []Filter {
	known := make(map[string]bool, len(s.Speakers))
	for _, sp := range s.Speakers {
		known[sp.Speaker] = true
	}

	var orphans []Filter
	for _, f := range s.Filters {
		if !known[f.Speaker] {
			orphans = append(orphans, f)
		}
	}
	return orphans
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// =============================================================================
// Loading
// =============================================================================

// Format selects the encoding of a settings document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension; anything that is
// not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads settings in the given format and validates them. A document
// without a distance unit takes fallback, or milliseconds when fallback is empty.
func Decode(r io.Reader, format Format, fallback DistanceUnit) (*Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var s Settings
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to parse settings JSON: %w", err)
		}
	}

	if s.SelectedDistance == "" {
		s.SelectedDistance = fallback
	}
	if s.SelectedDistance == "" {
		s.SelectedDistance = DistanceMS
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and validates a settings file.
func LoadFile(path string, fallback DistanceUnit) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	defer f.Close()

	return Decode(f, FormatForPath(path), fallback)
}

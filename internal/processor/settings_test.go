package processor

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/linuxmatters/avprocessor/internal/devices"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsJSON = `{
  "filters": [
    {"speaker": "l", "freq": 1000, "gain": 2.0, "q": 0.707},
    {"speaker": "r", "freq": 2000, "gain": 1.0, "q": 0.707}
  ],
  "speakers": [
    {"speaker": "l", "crossover": 80, "distance": 10, "gain": 1, "isSubwoofer": false},
    {"speaker": "r", "crossover": null, "distance": 12, "gain": 1, "isSubwoofer": false},
    {"speaker": "sub1", "distance": 9, "gain": 0.5, "isSubwoofer": true}
  ],
  "selectedDistance": "FEET",
  "device": "motumk5"
}`

const settingsYAML = `
filters:
  - speaker: l
    freq: 1000
    gain: 2.0
    q: 0.707
speakers:
  - speaker: l
    crossover: 80
    distance: 2.5
    gain: 1
  - speaker: sub1
    crossover: null
    distance: 3
    gain: 1
    isSubwoofer: true
device: oktodac8
`

func validSettings() *Settings {
	return &Settings{
		Speakers: []Speaker{
			{Speaker: "l", Crossover: intPtr(80), Gain: 1},
			{Speaker: "sub1", Gain: 1, IsSubwoofer: true},
		},
		SelectedDistance: DistanceMS,
		Device:           devices.OktoDac8,
	}
}

func TestDecodeJSON(t *testing.T) {
	s, err := Decode(strings.NewReader(settingsJSON), FormatJSON, "")
	require.NoError(t, err)

	assert.Equal(t, DistanceFeet, s.SelectedDistance)
	assert.Equal(t, devices.MotuMk5, s.Device)
	require.Len(t, s.Speakers, 3)
	require.NotNil(t, s.Speakers[0].Crossover)
	assert.Equal(t, 80, *s.Speakers[0].Crossover)
	assert.Nil(t, s.Speakers[1].Crossover)
	assert.True(t, s.Speakers[2].IsSubwoofer)
	require.Len(t, s.Filters, 2)
	assert.Equal(t, "r", s.Filters[1].Speaker)
}

func TestDecodeYAMLFallbackUnit(t *testing.T) {
	s, err := Decode(strings.NewReader(settingsYAML), FormatYAML, DistanceMeters)
	require.NoError(t, err)

	assert.Equal(t, DistanceMeters, s.SelectedDistance)
	require.Len(t, s.Speakers, 2)
	assert.Nil(t, s.Speakers[1].Crossover)

	engine := s.ForEngine()
	assert.InDelta(t, 0.5/MetersPerMS, engine[0].Delay, delayTolerance)
	assert.InDelta(t, 0.0, engine[1].Delay, delayTolerance)
}

func TestDecodeDefaultsToMilliseconds(t *testing.T) {
	s, err := Decode(strings.NewReader(settingsYAML), FormatYAML, "")
	require.NoError(t, err)
	assert.Equal(t, DistanceMS, s.SelectedDistance)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"speakers": [], "volume": 3}`), FormatJSON, "")
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yml")
	require.NoError(t, os.WriteFile(path, []byte(settingsYAML), 0o644))

	s, err := LoadFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, devices.OktoDac8, s.Device)

	_, err = LoadFile(filepath.Join(dir, "missing.json"), "")
	require.Error(t, err)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("a/b.yaml"))
	assert.Equal(t, FormatYAML, FormatForPath("B.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("layout.json"))
	assert.Equal(t, FormatJSON, FormatForPath("layout"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr error
	}{
		{"valid", func(s *Settings) {}, nil},
		{"no speakers", func(s *Settings) { s.Speakers = nil }, ErrNoSpeakers},
		{"duplicate", func(s *Settings) { s.Speakers[1].Speaker = "l" }, ErrDuplicateSpeaker},
		{"blank name", func(s *Settings) { s.Speakers[0].Speaker = "  " }, ErrInvalidSetting},
		{"unknown device", func(s *Settings) { s.Device = "gramophone" }, devices.ErrUnknownDevice},
		{"bad unit", func(s *Settings) { s.SelectedDistance = "cubits" }, ErrInvalidSetting},
		{"zero crossover", func(s *Settings) { s.Speakers[0].Crossover = intPtr(0) }, ErrInvalidSetting},
		{"nan gain", func(s *Settings) { s.Speakers[0].Gain = math.NaN() }, ErrInvalidSetting},
		{"negative distance", func(s *Settings) {
			s.SelectedDistance = DistanceMeters
			s.Speakers[0].Distance = -1
		}, ErrInvalidSetting},
		{"negative delay allowed", func(s *Settings) { s.Speakers[0].Distance = -1 }, nil},
		{"bad peq q", func(s *Settings) {
			s.Filters = []Filter{{Speaker: "l", Freq: 100, Gain: 1, Q: 0}}
		}, ErrInvalidSetting},
		{"orphaned band allowed", func(s *Settings) {
			s.Filters = []Filter{{Speaker: "ghost", Freq: 100, Gain: 1, Q: 1}}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOrphanedFilters(t *testing.T) {
	s := validSettings()
	s.Filters = []Filter{
		{Speaker: "l", Freq: 100, Gain: 1, Q: 1},
		{Speaker: "ghost", Freq: 200, Gain: 1, Q: 1},
	}

	orphans := s.OrphanedFilters()
	require.Len(t, orphans, 1)
	assert.Equal(t, "ghost", orphans[0].Speaker)
}

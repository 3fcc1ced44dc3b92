package camilla

import (
	"encoding/json"
	"fmt"

	"github.com/linuxmatters/avprocessor/internal/devices"
	"github.com/linuxmatters/avprocessor/internal/processor"
	"gopkg.in/yaml.v3"
)

// Config is a complete engine configuration.
type Config struct {
	Devices  devices.Devices  `json:"devices" yaml:"devices"`
	Mixers   map[string]Mixer `json:"mixers" yaml:"mixers"`
	Filters  FilterSet        `json:"filters" yaml:"filters"`
	Pipeline []Step           `json:"pipeline" yaml:"pipeline"`

	// Topology is the channel summary the configuration was built from.
	Topology SpeakerCounts `json:"-" yaml:"-"`

	// OutputChannels maps each speaker to its playback channel.
	OutputChannels map[string]int `json:"-" yaml:"-"`

	// Orphans are PEQ bands naming a speaker that is not in the layout.
	// They are left out of the configuration.
	Orphans []processor.Filter `json:"-" yaml:"-"`
}

// Compile builds the engine configuration for a layout whose distances have
// already been converted to delays. It always succeeds; an empty layout
// yields an empty pipeline.
func Compile(speakers []processor.EngineSpeaker, bands []processor.Filter, profile devices.Profile) *Config {
	counts := CountSpeakers(speakers)
	filters := make(FilterSet)

	chains, orphans := SpeakerFilters(speakers, bands, filters)

	cfg := &Config{
		Mixers:         make(map[string]Mixer),
		Filters:        filters,
		Topology:       counts,
		OutputChannels: make(map[string]int, len(speakers)),
		Orphans:        orphans,
	}

	split, ok := SplitInputs(speakers, counts)
	if !ok {
		for i, s := range speakers {
			cfg.OutputChannels[s.Speaker] = i
		}
		cfg.Devices = profile.Devices(len(speakers), len(speakers))
		cfg.Pipeline = PerSpeakerPipeline(speakers, chains)
		return cfg
	}

	for _, out := range split.Outputs {
		cfg.OutputChannels[out.Name] = out.Channel
	}

	CrossoverFilters(speakers, filters)
	combine := CombineInputs(counts, split)

	cfg.Mixers[SplitMixerName] = split.Mixer
	cfg.Mixers[CombineMixerName] = combine
	cfg.Devices = profile.Devices(split.Mixer.Channels.In, combine.Channels.Out)
	cfg.Pipeline = CrossoverPipeline(split, chains)
	return cfg
}

// JSON encodes the configuration. Map keys are sorted, so identical layouts
// produce identical bytes.
func (c *Config) JSON() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as JSON: %w", err)
	}
	return data, nil
}

// YAML encodes the configuration in the engine's native config file format.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as YAML: %w", err)
	}
	return data, nil
}

// SetConfig is the control message that replaces the running configuration.
// The configuration travels as JSON text, not as a nested object.
type SetConfig struct {
	SetConfigJSON string `json:"SetConfigJson"`
}

// SetConfigMessage wraps the JSON configuration in a SetConfig envelope.
func (c *Config) SetConfigMessage() ([]byte, error) {
	text, err := c.JSON()
	if err != nil {
		return nil, err
	}
	msg, err := json.Marshal(SetConfig{SetConfigJSON: string(text)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode SetConfigJson message: %w", err)
	}
	return msg, nil
}

// Package devices holds the static catalogue of capture/playback hardware
// profiles the DSP engine can be configured for.
package devices

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies a hardware profile. Values match the identifiers stored with
// each configuration version.
type ID string

// Known hardware profiles
const (
	OktoDac8   ID = "oktodac8"
	ToppingDM7 ID = "toppingdm7"
	MotuMk5    ID = "motumk5"
	HDMI       ID = "hdmi"
)

// ErrUnknownDevice is returned when an ID has no matching profile.
var ErrUnknownDevice = errors.New("unknown device")

// Engine-wide constants shared by every profile
const (
	// DeviceTypeAlsa is the only backend the engine is configured with.
	DeviceTypeAlsa = "Alsa"

	// LoopbackCapture is the ALSA loopback the player writes into.
	LoopbackCapture = "hw:Loopback,1"

	// DefaultSampleRate is high enough to be transparent for any source.
	DefaultSampleRate = 96000

	DefaultChunkSize  = 2048
	DefaultQueueLimit = 1
)

// Sample formats understood by the engine
const (
	FormatS16LE  = "S16LE"
	FormatS24LE3 = "S24LE3"
	FormatS32LE  = "S32LE"
)

// Profile describes one supported playback device.
type Profile struct {
	ID          ID
	Name        string
	Playback    string // ALSA device string for playback
	Format      string // sample format used for capture and playback
	SampleRate  int
	ChunkSize   int
	QueueLimit  int
	Description string
}

// Endpoint is the capture or playback section of the engine's devices block.
type Endpoint struct {
	Type     string `json:"type" yaml:"type"`
	Channels int    `json:"channels" yaml:"channels"`
	Device   string `json:"device" yaml:"device"`
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Devices is the devices block of a compiled engine configuration.
type Devices struct {
	SampleRate int      `json:"samplerate" yaml:"samplerate"`
	ChunkSize  int      `json:"chunksize" yaml:"chunksize"`
	QueueLimit int      `json:"queuelimit" yaml:"queuelimit"`
	Capture    Endpoint `json:"capture" yaml:"capture"`
	Playback   Endpoint `json:"playback" yaml:"playback"`
}

// profiles is ordered for display; lookups go through Lookup.
var profiles = []Profile{
	{
		ID:          OktoDac8,
		Name:        "Okto Research dac8 PRO",
		Playback:    "hw:DAC8PRO",
		Format:      FormatS32LE,
		SampleRate:  DefaultSampleRate,
		ChunkSize:   DefaultChunkSize,
		QueueLimit:  DefaultQueueLimit,
		Description: "8 channel USB DAC",
	},
	{
		ID:          ToppingDM7,
		Name:        "Topping DM7",
		Playback:    "hw:DM7",
		Format:      FormatS32LE,
		SampleRate:  DefaultSampleRate,
		ChunkSize:   DefaultChunkSize,
		QueueLimit:  DefaultQueueLimit,
		Description: "8 channel USB DAC",
	},
	{
		ID:          MotuMk5,
		Name:        "MOTU UltraLite mk5",
		Playback:    "hw:UltraLitemk5",
		Format:      FormatS24LE3,
		SampleRate:  DefaultSampleRate,
		ChunkSize:   DefaultChunkSize,
		QueueLimit:  DefaultQueueLimit,
		Description: "USB audio interface, 10 line outputs",
	},
	{
		ID:          HDMI,
		Name:        "HDMI (Raspberry Pi vc4)",
		Playback:    "hw:vc4hdmi",
		Format:      FormatS24LE3,
		SampleRate:  DefaultSampleRate,
		ChunkSize:   DefaultChunkSize,
		QueueLimit:  DefaultQueueLimit,
		Description: "multichannel PCM over HDMI to an AV receiver",
	},
}

// Profiles returns every known profile in display order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Lookup returns the profile for id. Matching ignores case and surrounding space.
func Lookup(id ID) (Profile, error) {
	want := ID(strings.ToLower(strings.TrimSpace(string(id))))
	for _, p := range profiles {
		if p.ID == want {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
}

// Valid reports whether id names a known profile.
func (id ID) Valid() bool {
	_, err := Lookup(id)
	return err == nil
}

// Select resolves id and builds the devices block for the given channel counts.
func Select(id ID, inputChannels, outputChannels int) (Devices, error) {
	p, err := Lookup(id)
	if err != nil {
		return Devices{}, err
	}
	return p.Devices(inputChannels, outputChannels), nil
}

// Devices builds the devices block for this profile. Capture always reads
// from the ALSA loopback in the profile's sample format.
func (p Profile) Devices(inputChannels, outputChannels int) Devices {
	return Devices{
		SampleRate: p.SampleRate,
		ChunkSize:  p.ChunkSize,
		QueueLimit: p.QueueLimit,
		Capture: Endpoint{
			Type:     DeviceTypeAlsa,
			Channels: inputChannels,
			Device:   LoopbackCapture,
			Format:   p.Format,
		},
		Playback: Endpoint{
			Type:     DeviceTypeAlsa,
			Channels: outputChannels,
			Device:   p.Playback,
			Format:   p.Format,
		},
	}
}

// BitDepth returns the sample width in bits for the profile's format.
func (p Profile) BitDepth() int {
	switch p.Format {
	case FormatS16LE:
		return 16
	case FormatS24LE3:
		return 24
	default:
		return 32
	}
}

// Package testsignal writes channel identification WAV files: a tone burst
// on each capture channel in turn, silence everywhere else. Playing one
// through the engine confirms every speaker is wired to the channel the
// layout says it is.
package testsignal

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/floats"

	"github.com/linuxmatters/avprocessor/internal/devices"
)

// Defaults for Options fields left at zero
const (
	DefaultFrequency = 1000.0 // Hz
	DefaultBurst     = time.Second
	DefaultGap       = 500 * time.Millisecond
	DefaultLevel     = -12.0 // dBFS
	DefaultFade      = 10 * time.Millisecond
)

const wavFormatPCM = 1

// ErrInvalidLayout is returned for a layout that cannot be written.
var ErrInvalidLayout = errors.New("invalid test signal layout")

// Layout is the channel count and sample format of the generated file.
type Layout struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

// LayoutFor matches the engine's capture format for a profile.
func LayoutFor(profile devices.Profile, channels int) Layout {
	return Layout{
		Channels:   channels,
		SampleRate: profile.SampleRate,
		BitDepth:   profile.BitDepth(),
	}
}

// Options shape the tone bursts.
type Options struct {
	Frequency float64
	Burst     time.Duration
	Gap       time.Duration // negative for no gap
	Level     float64 // dBFS; must be negative
}

func (o Options) withDefaults() Options {
	if o.Frequency <= 0 {
		o.Frequency = DefaultFrequency
	}
	if o.Burst <= 0 {
		o.Burst = DefaultBurst
	}
	if o.Gap < 0 {
		o.Gap = 0
	} else if o.Gap == 0 {
		o.Gap = DefaultGap
	}
	if o.Level >= 0 {
		o.Level = DefaultLevel
	}
	return o
}

// Write encodes the identification signal as PCM WAV. Channel n plays its
// burst in slot n; each slot is one burst followed by a gap.
func Write(w io.WriteSeeker, layout Layout, opts Options) error {
	if layout.Channels <= 0 || layout.SampleRate <= 0 {
		return fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidLayout, layout.Channels, layout.SampleRate)
	}
	switch layout.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d-bit samples", ErrInvalidLayout, layout.BitDepth)
	}
	opts = opts.withDefaults()

	burstFrames := frames(opts.Burst, layout.SampleRate)
	slotFrames := burstFrames + frames(opts.Gap, layout.SampleRate)

	peak := float64(int64(1)<<(layout.BitDepth-1)-1) * DBToLinear(opts.Level)
	tone := Tone(burstFrames, opts.Frequency, layout.SampleRate, peak)
	Fade(tone, frames(DefaultFade, layout.SampleRate))

	data := make([]int, slotFrames*layout.Channels*layout.Channels)
	for ch := 0; ch < layout.Channels; ch++ {
		start := ch * slotFrames
		for i, v := range tone {
			data[(start+i)*layout.Channels+ch] = int(math.Round(v))
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: layout.Channels, SampleRate: layout.SampleRate},
		Data:           data,
		SourceBitDepth: layout.BitDepth,
	}

	enc := wav.NewEncoder(w, layout.SampleRate, layout.BitDepth, layout.Channels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write test signal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalise test signal: %w", err)
	}
	return nil
}

// Tone returns n samples of a sine at freq with the given peak amplitude.
func Tone(n int, freq float64, sampleRate int, peak float64) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freq / float64(sampleRate)
	for i := range out {
		out[i] = math.Sin(step * float64(i))
	}
	floats.Scale(peak, out)
	return out
}

// Fade applies a raised-cosine ramp of n samples to both ends of s.
func Fade(s []float64, n int) {
	if n > len(s)/2 {
		n = len(s) / 2
	}
	for i := 0; i < n; i++ {
		g := 0.5 - 0.5*math.Cos(math.Pi*float64(i)/float64(n))
		s[i] *= g
		s[len(s)-1-i] *= g
	}
}

// DBToLinear converts a level in dB to a linear amplitude ratio.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

func frames(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}

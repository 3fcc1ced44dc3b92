package testsignal

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/linuxmatters/avprocessor/internal/devices"
)

// writeAndDecode writes a signal to a temp file and decodes it back.
func writeAndDecode(t *testing.T, layout Layout, opts Options) (*wav.Decoder, []int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ident.wav")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(f, layout, opts))
	require.NoError(t, f.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = in.Close() })

	dec := wav.NewDecoder(in)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return dec, buf.Data
}

// channelSlice extracts frames [from, to) of one channel.
func channelSlice(data []int, channels, ch, from, to int) []float64 {
	out := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, float64(data[i*channels+ch]))
	}
	return out
}

func rms(s []float64) float64 {
	return math.Sqrt(floats.Dot(s, s) / float64(len(s)))
}

func TestWriteOneBurstPerChannel(t *testing.T) {
	layout := Layout{Channels: 3, SampleRate: 8000, BitDepth: 16}
	opts := Options{Frequency: 500, Burst: 100 * time.Millisecond, Gap: 50 * time.Millisecond, Level: -12}

	dec, data := writeAndDecode(t, layout, opts)
	assert.Equal(t, uint16(3), dec.NumChans)
	assert.Equal(t, uint32(8000), dec.SampleRate)
	assert.Equal(t, uint16(16), dec.BitDepth)

	const burst, slot = 800, 1200
	require.Len(t, data, slot*3*3)

	peak := 32767 * DBToLinear(-12)
	for ch := 0; ch < 3; ch++ {
		for slotIndex := 0; slotIndex < 3; slotIndex++ {
			start := slotIndex * slot
			// Skip the fades when measuring level.
			body := channelSlice(data, 3, ch, start+100, start+burst-100)
			gap := channelSlice(data, 3, ch, start+burst, start+slot)

			if slotIndex == ch {
				assert.InEpsilon(t, peak/math.Sqrt2, rms(body), 0.02, "channel %d slot %d", ch, slotIndex)
			} else {
				assert.Zero(t, floats.Norm(body, 1), "channel %d slot %d", ch, slotIndex)
			}
			assert.Zero(t, floats.Norm(gap, 1), "channel %d gap %d", ch, slotIndex)
		}
	}
}

func TestWriteProfileBitDepth(t *testing.T) {
	profile, err := devices.Lookup(devices.MotuMk5)
	require.NoError(t, err)

	layout := LayoutFor(profile, 2)
	layout.SampleRate = 8000
	assert.Equal(t, 24, layout.BitDepth)

	dec, data := writeAndDecode(t, layout, Options{Burst: 20 * time.Millisecond, Gap: -1})
	assert.Equal(t, uint16(24), dec.BitDepth)
	assert.Len(t, data, 160*2*2)
}

func TestWriteInvalidLayout(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	require.NoError(t, err)
	defer f.Close()

	tests := []struct {
		name   string
		layout Layout
	}{
		{"no channels", Layout{Channels: 0, SampleRate: 48000, BitDepth: 16}},
		{"no sample rate", Layout{Channels: 2, BitDepth: 16}},
		{"8 bit", Layout{Channels: 2, SampleRate: 48000, BitDepth: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Write(f, tt.layout, Options{}), ErrInvalidLayout)
		})
	}
}

func TestToneAndFade(t *testing.T) {
	tone := Tone(4800, 1000, 48000, 2)
	assert.InDelta(t, 2/math.Sqrt2, rms(tone), 1e-6)
	assert.InDelta(t, 2.0, floats.Max(tone), 1e-9)

	Fade(tone, 480)
	assert.Zero(t, tone[0])
	assert.Less(t, math.Abs(tone[len(tone)-1]), 0.01)
}

func TestOptionsDefaults(t *testing.T) {
	got := Options{}.withDefaults()
	assert.Equal(t, Options{Frequency: DefaultFrequency, Burst: DefaultBurst, Gap: DefaultGap, Level: DefaultLevel}, got)

	assert.Equal(t, time.Duration(0), Options{Gap: -time.Second}.withDefaults().Gap)
}

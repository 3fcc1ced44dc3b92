package camilla

import (
	"testing"

	"github.com/linuxmatters/avprocessor/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountSpeakers(t *testing.T) {
	tests := []struct {
		name     string
		speakers []processor.EngineSpeaker
		want     SpeakerCounts
		in, out  int
	}{
		{
			name:     "no subwoofer",
			speakers: []processor.EngineSpeaker{mainSpeaker("l", 0, 0), mainSpeaker("r", 0, 0)},
			want:     SpeakerCounts{MainSpeakers: 2},
			in:       2,
			out:      2,
		},
		{
			name:     "one subwoofer",
			speakers: theatreLayout(),
			want:     SpeakerCounts{MainSpeakers: 3, InputSubwoofers: 1, OutputSubwoofers: 1},
			in:       4,
			out:      4,
		},
		{
			name: "two subwoofers share one input",
			speakers: []processor.EngineSpeaker{
				mainSpeaker("l", 80, 0), mainSpeaker("r", 80, 0),
				subwoofer("sub1", 0), subwoofer("sub2", 0),
			},
			want: SpeakerCounts{MainSpeakers: 2, InputSubwoofers: InputSubwooferPolicy, OutputSubwoofers: 2},
			in:   3,
			out:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountSpeakers(tt.speakers)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.InputChannels())
			assert.Equal(t, tt.out, got.OutputChannels())
			assert.Len(t, got.SubwooferInputNames(), got.InputSubwoofers)
		})
	}
}

func TestSubwooferInputNames(t *testing.T) {
	counts := SpeakerCounts{MainSpeakers: 3, InputSubwoofers: 1, OutputSubwoofers: 2}
	assert.Equal(t, []string{"subwoofer_input_0"}, counts.SubwooferInputNames())
	assert.Empty(t, SpeakerCounts{MainSpeakers: 2}.SubwooferInputNames())
}

func TestSplitInputsWithoutSubwoofer(t *testing.T) {
	speakers := []processor.EngineSpeaker{mainSpeaker("l", 80, 0), mainSpeaker("r", 80, 0)}
	split, ok := SplitInputs(speakers, CountSpeakers(speakers))
	assert.False(t, ok)
	assert.Nil(t, split)
}

func TestSplitInputsTheatre(t *testing.T) {
	speakers := theatreLayout()
	counts := CountSpeakers(speakers)

	split, ok := SplitInputs(speakers, counts)
	require.True(t, ok)

	assert.Equal(t, ChannelCount{In: 4, Out: 7}, split.Mixer.Channels)

	// Mappings follow speaker name order with the subwoofer input last.
	want := []Mapping{
		{Dest: 2, Sources: []Source{{Channel: 1}}},
		{Dest: 3, Sources: []Source{{Channel: 1}}},
		{Dest: 0, Sources: []Source{{Channel: 0}}},
		{Dest: 1, Sources: []Source{{Channel: 0}}},
		{Dest: 4, Sources: []Source{{Channel: 2}}},
		{Dest: 5, Sources: []Source{{Channel: 2}}},
		{Dest: 6, Sources: []Source{{Channel: 3, Gain: SubwooferInputGain}}},
	}
	assert.Equal(t, want, split.Mixer.Mapping)

	combine := CombineInputs(counts, split)
	assert.Equal(t, ChannelCount{In: 7, Out: 4}, combine.Channels)
	assert.Equal(t, []Mapping{
		{Dest: 1, Sources: []Source{{Channel: 2}}},
		{Dest: 0, Sources: []Source{{Channel: 0}}},
		{Dest: 2, Sources: []Source{{Channel: 4}}},
		{Dest: 3, Sources: []Source{{Channel: 1}, {Channel: 3}, {Channel: 5}, {Channel: 6}}},
	}, combine.Mapping)
}

func TestSplitInputsZeroCrossoverTwoSubwoofers(t *testing.T) {
	speakers := []processor.EngineSpeaker{
		mainSpeaker("l", 0, 0),
		mainSpeaker("c", 0, 0),
		mainSpeaker("r", 0, 0),
		subwoofer("sub1", 0),
		subwoofer("sub2", 0),
	}
	counts := CountSpeakers(speakers)

	split, ok := SplitInputs(speakers, counts)
	require.True(t, ok)
	assert.Equal(t, ChannelCount{In: 4, Out: 4}, split.Mixer.Channels)

	combine := CombineInputs(counts, split)
	assert.Equal(t, ChannelCount{In: 4, Out: 5}, combine.Channels)

	// Only the pass-through input reaches the subwoofers.
	byChannel := map[int][]Source{}
	for _, m := range combine.Mapping {
		byChannel[m.Dest] = m.Sources
	}
	assert.Equal(t, []Source{{Channel: 3}}, byChannel[3])
	assert.Equal(t, byChannel[3], byChannel[4])

	assert.Empty(t, split.CrossoverInputs())
}

func TestSplitInputsCompactsChannels(t *testing.T) {
	// Subwoofer listed first: main speakers still occupy channels 0..n-1.
	speakers := []processor.EngineSpeaker{
		subwoofer("sub1", 0),
		mainSpeaker("r", 80, 0),
		mainSpeaker("l", 0, 0),
	}
	counts := CountSpeakers(speakers)

	split, ok := SplitInputs(speakers, counts)
	require.True(t, ok)
	assert.Equal(t, ChannelCount{In: 3, Out: 4}, split.Mixer.Channels)

	assert.Equal(t, []ChannelEntry{
		{Name: "l", Channel: 1, Tracks: []int{2}},
		{Name: "r", HasCrossover: true, Channel: 0, Tracks: []int{0, 1}},
		{Name: "subwoofer_input_0", IsSubwoofer: true, Channel: 2, Tracks: []int{3}},
	}, split.Inputs)

	assert.Equal(t, []ChannelEntry{
		{Name: "l", Channel: 1, Tracks: []int{2}},
		{Name: "r", HasCrossover: true, Channel: 0, Tracks: []int{0}},
		{Name: "sub1", IsSubwoofer: true, Channel: 2, Tracks: []int{1, 3}},
	}, split.Outputs)
}

func TestMixerChannelBounds(t *testing.T) {
	layouts := map[string][]processor.EngineSpeaker{
		"theatre": theatreLayout(),
		"mixed crossovers": {
			mainSpeaker("fl", 80, 0), mainSpeaker("fr", 0, 0), mainSpeaker("c", 120, 0),
			mainSpeaker("sl", 80, 0), subwoofer("sub1", 0), subwoofer("sub2", 0),
		},
		"subwoofers interleaved": {
			subwoofer("b", 0), mainSpeaker("a", 60, 0), subwoofer("d", 0), mainSpeaker("c", 60, 0),
		},
		"subwoofer only": {subwoofer("sub1", 0)},
	}

	for name, speakers := range layouts {
		t.Run(name, func(t *testing.T) {
			counts := CountSpeakers(speakers)
			split, ok := SplitInputs(speakers, counts)
			require.True(t, ok)
			combine := CombineInputs(counts, split)

			assert.Equal(t, split.Mixer.Channels.Out, combine.Channels.In)
			assert.Equal(t, counts.MainSpeakers+1, split.Mixer.Channels.In)
			assert.Equal(t, len(speakers), combine.Channels.Out)

			assertMixerBounds(t, split.Mixer)
			assertMixerBounds(t, combine)

			// Each playback channel is written exactly once.
			dests := map[int]bool{}
			for _, m := range combine.Mapping {
				assert.False(t, dests[m.Dest], "channel %d written twice", m.Dest)
				dests[m.Dest] = true
			}
			assert.Len(t, dests, combine.Channels.Out)
		})
	}
}

func assertMixerBounds(t *testing.T, m Mixer) {
	t.Helper()
	for _, mapping := range m.Mapping {
		assert.Less(t, mapping.Dest, m.Channels.Out)
		for _, s := range mapping.Sources {
			assert.Less(t, s.Channel, m.Channels.In)
			assert.False(t, s.Inverted)
		}
	}
}

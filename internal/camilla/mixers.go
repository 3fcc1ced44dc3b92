package camilla

import (
	"sort"

	"github.com/linuxmatters/avprocessor/internal/processor"
)

// Mixer names used by the pipeline
const (
	SplitMixerName   = "split_non_sub"
	CombineMixerName = "combine_sub"
)

// SubwooferInputGain is the boost (dB) applied to the pass-through subwoofer
// input when it is split out, to bring the LFE channel up to bass-managed level.
const SubwooferInputGain = 10.0

// ChannelCount is a mixer's input and output channel cardinality.
type ChannelCount struct {
	In  int `json:"in" yaml:"in"`
	Out int `json:"out" yaml:"out"`
}

// Source is one input of a mapping. Gain is in dB.
type Source struct {
	Channel  int     `json:"channel" yaml:"channel"`
	Gain     float64 `json:"gain" yaml:"gain"`
	Inverted bool    `json:"inverted" yaml:"inverted"`
}

// Mapping sums its sources into the destination channel.
type Mapping struct {
	Dest    int      `json:"dest" yaml:"dest"`
	Sources []Source `json:"sources" yaml:"sources"`
}

// Mixer is a complete routing matrix.
type Mixer struct {
	Channels ChannelCount `json:"channels" yaml:"channels"`
	Mapping  []Mapping    `json:"mapping" yaml:"mapping"`
}

// ChannelEntry is the bookkeeping record for one name during a compilation.
// For split inputs Channel is the capture channel and Tracks the tracks the
// input is copied to (highpass track first). For combine outputs Channel is
// the playback channel and Tracks the tracks summed into it.
type ChannelEntry struct {
	Name         string
	HasCrossover bool
	IsSubwoofer  bool
	Channel      int
	Tracks       []int
}

// Split is the split mixer plus the lookup tables later stages consume.
type Split struct {
	Mixer Mixer

	// Inputs holds main speakers in name order followed by the synthetic
	// subwoofer inputs in index order.
	Inputs []ChannelEntry

	// Outputs holds every playback channel (main speakers and physical
	// subwoofers) in name order.
	Outputs []ChannelEntry
}

// SplitInputs allocates tracks for every input and builds the split mixer.
// It returns false when the layout has no subwoofer, in which case no
// routing mixers are used at all.
//
// Capture and playback channels are compacted: a main speaker's channel is
// its position among main speakers, the k-th subwoofer plays on channel
// MainSpeakers+k and the synthetic subwoofer inputs are captured after the
// main speakers. Subwoofers may therefore appear anywhere in the layout.
func SplitInputs(speakers []processor.EngineSpeaker, counts SpeakerCounts) (*Split, bool) {
	if !counts.HasSubwoofers() {
		return nil, false
	}

	inputs := make(map[string]*ChannelEntry, counts.MainSpeakers)
	outputs := make(map[string]*ChannelEntry, counts.OutputChannels())

	// Physical subwoofers accumulate every bass track.
	subwoofers := make([]*ChannelEntry, 0, counts.OutputSubwoofers)
	for _, s := range speakers {
		if !s.IsSubwoofer {
			continue
		}
		entry := &ChannelEntry{
			Name:        s.Speaker,
			IsSubwoofer: true,
			Channel:     counts.MainSpeakers + len(subwoofers),
		}
		subwoofers = append(subwoofers, entry)
		outputs[s.Speaker] = entry
	}

	feedSubwoofers := func(track int) {
		for _, sub := range subwoofers {
			sub.Tracks = append(sub.Tracks, track)
		}
	}

	track := 0
	channel := 0
	for _, s := range speakers {
		if s.IsSubwoofer {
			continue
		}

		in := &ChannelEntry{
			Name:         s.Speaker,
			HasCrossover: s.HasCrossover(),
			Channel:      channel,
		}
		if in.HasCrossover {
			// track feeds the speaker, track+1 feeds every subwoofer
			in.Tracks = []int{track, track + 1}
			feedSubwoofers(track + 1)
			track += 2
		} else {
			in.Tracks = []int{track}
			track++
		}
		inputs[s.Speaker] = in

		outputs[s.Speaker] = &ChannelEntry{
			Name:         s.Speaker,
			HasCrossover: in.HasCrossover,
			Channel:      channel,
			Tracks:       []int{in.Tracks[0]},
		}
		channel++
	}

	synthetic := make([]ChannelEntry, 0, counts.InputSubwoofers)
	for i, name := range counts.SubwooferInputNames() {
		synthetic = append(synthetic, ChannelEntry{
			Name:        name,
			IsSubwoofer: true,
			Channel:     counts.MainSpeakers + i,
			Tracks:      []int{track},
		})
		feedSubwoofers(track)
		track++
	}

	split := &Split{
		Inputs:  append(sortedEntries(inputs), synthetic...),
		Outputs: sortedEntries(outputs),
	}

	mapping := make([]Mapping, 0, track)
	for _, in := range split.Inputs {
		gain := 0.0
		if in.IsSubwoofer {
			gain = SubwooferInputGain
		}
		for _, t := range in.Tracks {
			mapping = append(mapping, Mapping{
				Dest:    t,
				Sources: []Source{{Channel: in.Channel, Gain: gain, Inverted: false}},
			})
		}
	}

	split.Mixer = Mixer{
		Channels: ChannelCount{In: counts.InputChannels(), Out: track},
		Mapping:  mapping,
	}
	return split, true
}

// CombineInputs sums every track destined for each playback channel. It runs
// after the crossover filters in the pipeline.
func CombineInputs(counts SpeakerCounts, split *Split) Mixer {
	mapping := make([]Mapping, 0, len(split.Outputs))
	for _, out := range split.Outputs {
		sources := make([]Source, len(out.Tracks))
		for i, t := range out.Tracks {
			sources[i] = Source{Channel: t}
		}
		mapping = append(mapping, Mapping{Dest: out.Channel, Sources: sources})
	}

	return Mixer{
		Channels: ChannelCount{
			In:  split.Mixer.Channels.Out,
			Out: counts.OutputChannels(),
		},
		Mapping: mapping,
	}
}

// CrossoverInputs returns the inputs that are split by a crossover, in name order.
func (s *Split) CrossoverInputs() []ChannelEntry {
	var out []ChannelEntry
	for _, in := range s.Inputs {
		if in.HasCrossover {
			out = append(out, in)
		}
	}
	return out
}

// sortedEntries flattens a name-keyed table in name order.
func sortedEntries(entries map[string]*ChannelEntry) []ChannelEntry {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ChannelEntry, len(names))
	for i, name := range names {
		out[i] = *entries[name]
	}
	return out
}

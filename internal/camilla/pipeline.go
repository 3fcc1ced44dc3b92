package camilla

import "github.com/linuxmatters/avprocessor/internal/processor"

// StepType is the discriminator written first in every pipeline step.
type StepType string

const (
	StepTypeMixer  StepType = "Mixer"
	StepTypeFilter StepType = "Filter"
)

// Step is one instruction of the pipeline. The engine runs steps top to bottom.
type Step interface {
	StepType() StepType
}

// MixerStep routes every channel through the named mixer.
type MixerStep struct {
	Type StepType `json:"type" yaml:"type"`
	Name string   `json:"name" yaml:"name"`
}

func (MixerStep) StepType() StepType { return StepTypeMixer }

// FilterStep applies the named filters, in order, to one channel.
type FilterStep struct {
	Type    StepType `json:"type" yaml:"type"`
	Channel int      `json:"channel" yaml:"channel"`
	Names   []string `json:"names" yaml:"names"`
}

func (FilterStep) StepType() StepType { return StepTypeFilter }

// NewMixerStep returns a step applying the named mixer.
func NewMixerStep(name string) MixerStep {
	return MixerStep{Type: StepTypeMixer, Name: name}
}

// NewFilterStep returns a step applying names to channel.
func NewFilterStep(channel int, names []string) FilterStep {
	return FilterStep{Type: StepTypeFilter, Channel: channel, Names: names}
}

// CrossoverPipeline is the pipeline used when subwoofers exist: split, then
// highpass and lowpass for each crossover speaker, combine, then each
// output's speaker chain.
func CrossoverPipeline(split *Split, chains map[string][]string) []Step {
	crossovers := split.CrossoverInputs()
	steps := make([]Step, 0, 2+2*len(crossovers)+len(split.Outputs))

	steps = append(steps, NewMixerStep(SplitMixerName))
	for _, in := range crossovers {
		steps = append(steps,
			NewFilterStep(in.Tracks[0], []string{CrossoverSpeakerFilterName(in.Name)}),
			NewFilterStep(in.Tracks[1], []string{CrossoverSubwooferFilterName(in.Name)}),
		)
	}
	steps = append(steps, NewMixerStep(CombineMixerName))

	for _, out := range split.Outputs {
		steps = append(steps, NewFilterStep(out.Channel, chains[out.Name]))
	}
	return steps
}

// PerSpeakerPipeline is the mixer-free pipeline: every speaker's chain on the
// channel matching its position in the layout.
func PerSpeakerPipeline(speakers []processor.EngineSpeaker, chains map[string][]string) []Step {
	steps := make([]Step, 0, len(speakers))
	for i, s := range speakers {
		steps = append(steps, NewFilterStep(i, chains[s.Speaker]))
	}
	return steps
}

package camilla

import (
	"fmt"

	"github.com/linuxmatters/avprocessor/internal/processor"
)

// FilterType is the discriminator written first in every filter definition.
type FilterType string

// Filter types understood by the engine
const (
	FilterTypeDelay       FilterType = "Delay"
	FilterTypeBiquad      FilterType = "Biquad"
	FilterTypeBiquadCombo FilterType = "BiquadCombo"
	FilterTypeGain        FilterType = "Gain"
	FilterTypeVolume      FilterType = "Volume"
)

// Fixed filter settings
const (
	// VolumeFilterName is the single volume definition every speaker chain
	// references, so one fader change ramps all channels together.
	VolumeFilterName = "volume"

	VolumeRampTimeMS = 200
	CrossoverOrder   = 4
	DelayUnitMS      = "ms"
)

// Biquad and BiquadCombo sub-types
const (
	BiquadPeaking       = "Peaking"
	ButterworthHighpass = "ButterworthHighpass"
	ButterworthLowpass  = "ButterworthLowpass"
)

// FilterParameters is implemented by the parameter set of each filter type.
type FilterParameters interface {
	FilterType() FilterType
}

// Filter is one named filter definition.
type Filter struct {
	Type       FilterType       `json:"type" yaml:"type"`
	Parameters FilterParameters `json:"parameters" yaml:"parameters"`
}

// NewFilter wraps parameters with their matching discriminator.
func NewFilter(p FilterParameters) Filter {
	return Filter{Type: p.FilterType(), Parameters: p}
}

// DelayParameters delays a channel.
type DelayParameters struct {
	Delay float64 `json:"delay" yaml:"delay"`
	Unit  string  `json:"unit" yaml:"unit"`
}

func (DelayParameters) FilterType() FilterType { return FilterTypeDelay }

// PeakingParameters is one parametric EQ band.
type PeakingParameters struct {
	Type string  `json:"type" yaml:"type"`
	Freq int     `json:"freq" yaml:"freq"`
	Q    float64 `json:"q" yaml:"q"`
	Gain float64 `json:"gain" yaml:"gain"`
}

func (PeakingParameters) FilterType() FilterType { return FilterTypeBiquad }

// CrossoverParameters is a cascaded Butterworth highpass or lowpass.
type CrossoverParameters struct {
	Type  string `json:"type" yaml:"type"`
	Freq  int    `json:"freq" yaml:"freq"`
	Order int    `json:"order" yaml:"order"`
}

func (CrossoverParameters) FilterType() FilterType { return FilterTypeBiquadCombo }

// GainParameters applies a fixed gain in dB.
type GainParameters struct {
	Gain     float64 `json:"gain" yaml:"gain"`
	Inverted bool    `json:"inverted" yaml:"inverted"`
}

func (GainParameters) FilterType() FilterType { return FilterTypeGain }

// VolumeParameters is the master volume control.
type VolumeParameters struct {
	RampTime int `json:"ramp_time" yaml:"ramp_time"`
}

func (VolumeParameters) FilterType() FilterType { return FilterTypeVolume }

// FilterSet maps generated filter names to their definitions.
type FilterSet map[string]Filter

// =============================================================================
// Filter names
// =============================================================================

// DelayFilterName names a speaker's delay filter.
func DelayFilterName(speaker string) string { return "delay_" + speaker }

// GainFilterName names a speaker's gain filter.
func GainFilterName(speaker string) string { return "gain_" + speaker }

// PEQFilterName names a PEQ band. index is the band's position in the full
// filter list, which keeps names unique however a speaker's bands are spread.
func PEQFilterName(speaker string, index int) string {
	return fmt.Sprintf("peq_%s_%d", speaker, index)
}

// CrossoverSpeakerFilterName names the highpass feeding the speaker itself.
func CrossoverSpeakerFilterName(speaker string) string { return "crossover_speaker_" + speaker }

// CrossoverSubwooferFilterName names the lowpass feeding the subwoofers.
func CrossoverSubwooferFilterName(speaker string) string { return "crossover_subwoofer_" + speaker }

// =============================================================================
// Crossovers
// =============================================================================

// CrossoverFilters adds a highpass and a lowpass at the crossover frequency
// for every main speaker that declares one.
func CrossoverFilters(speakers []processor.EngineSpeaker, set FilterSet) {
	for _, s := range speakers {
		if s.IsSubwoofer || !s.HasCrossover() {
			continue
		}
		set[CrossoverSpeakerFilterName(s.Speaker)] = NewFilter(CrossoverParameters{
			Type:  ButterworthHighpass,
			Freq:  *s.Crossover,
			Order: CrossoverOrder,
		})
		set[CrossoverSubwooferFilterName(s.Speaker)] = NewFilter(CrossoverParameters{
			Type:  ButterworthLowpass,
			Freq:  *s.Crossover,
			Order: CrossoverOrder,
		})
	}
}

// =============================================================================
// Per-speaker chains
// =============================================================================

// ChainStage identifies one step of a speaker's filter chain.
type ChainStage string

const (
	ChainPEQ    ChainStage = "peq"
	ChainDelay  ChainStage = "delay"
	ChainGain   ChainStage = "gain"
	ChainVolume ChainStage = "volume"
)

// SpeakerChainOrder is the order filters are applied to each output channel.
// EQ runs on the undelayed signal and volume is always last.
var SpeakerChainOrder = []ChainStage{
	ChainPEQ,
	ChainDelay,
	ChainGain,
	ChainVolume,
}

// peqBand is a band together with its position in the full filter list.
type peqBand struct {
	index int
	band  processor.Filter
}

// speakerChain carries what the chain builders need for one speaker.
type speakerChain struct {
	speaker processor.EngineSpeaker
	bands   []peqBand
}

// chainBuilderFunc registers its filters in set and returns their names in
// application order.
type chainBuilderFunc func(*speakerChain, FilterSet) []string

var chainBuilders = map[ChainStage]chainBuilderFunc{
	ChainPEQ:    (*speakerChain).buildPEQ,
	ChainDelay:  (*speakerChain).buildDelay,
	ChainGain:   (*speakerChain).buildGain,
	ChainVolume: (*speakerChain).buildVolume,
}

func (c *speakerChain) buildPEQ(set FilterSet) []string {
	names := make([]string, 0, len(c.bands))
	for _, b := range c.bands {
		name := PEQFilterName(c.speaker.Speaker, b.index)
		set[name] = NewFilter(PeakingParameters{
			Type: BiquadPeaking,
			Freq: b.band.Freq,
			Q:    b.band.Q,
			Gain: b.band.Gain,
		})
		names = append(names, name)
	}
	return names
}

func (c *speakerChain) buildDelay(set FilterSet) []string {
	name := DelayFilterName(c.speaker.Speaker)
	set[name] = NewFilter(DelayParameters{Delay: c.speaker.Delay, Unit: DelayUnitMS})
	return []string{name}
}

func (c *speakerChain) buildGain(set FilterSet) []string {
	name := GainFilterName(c.speaker.Speaker)
	set[name] = NewFilter(GainParameters{Gain: c.speaker.Gain, Inverted: false})
	return []string{name}
}

func (c *speakerChain) buildVolume(set FilterSet) []string {
	if _, ok := set[VolumeFilterName]; !ok {
		set[VolumeFilterName] = NewFilter(VolumeParameters{RampTime: VolumeRampTimeMS})
	}
	return []string{VolumeFilterName}
}

// SpeakerFilters builds every speaker's chain, adding the definitions to set.
// It returns each speaker's filter names keyed by speaker name, and the bands
// that name no speaker in the layout. Such bands are neither defined nor
// referenced.
func SpeakerFilters(speakers []processor.EngineSpeaker, bands []processor.Filter, set FilterSet) (map[string][]string, []processor.Filter) {
	grouped := groupPEQ(bands)

	chains := make(map[string][]string, len(speakers))
	for _, s := range speakers {
		c := &speakerChain{speaker: s, bands: grouped[s.Speaker]}
		delete(grouped, s.Speaker)

		var names []string
		for _, stage := range SpeakerChainOrder {
			if builder, ok := chainBuilders[stage]; ok {
				names = append(names, builder(c, set)...)
			}
		}
		chains[s.Speaker] = names
	}

	var orphans []processor.Filter
	for i, f := range bands {
		if _, ok := grouped[f.Speaker]; ok {
			orphans = append(orphans, bands[i])
		}
	}
	return chains, orphans
}

// groupPEQ groups bands by speaker, keeping input order within each speaker.
func groupPEQ(bands []processor.Filter) map[string][]peqBand {
	grouped := make(map[string][]peqBand)
	for i, b := range bands {
		grouped[b.Speaker] = append(grouped[b.Speaker], peqBand{index: i, band: b})
	}
	return grouped
}

// Package camilla compiles a speaker layout into a CamillaDSP configuration:
// channel counts, routing mixers, named filters and the ordered pipeline.
//
// Compilation is a pure function of its inputs. Every walk over per-speaker
// records is sorted by speaker name so the same layout always produces the
// same document, and the same pipeline order.
package camilla

import (
	"fmt"

	"github.com/linuxmatters/avprocessor/internal/processor"
)

// InputSubwooferPolicy is the number of summed low-frequency input channels
// assumed whenever at least one physical subwoofer exists. It does not grow
// with the number of subwoofer outputs.
const InputSubwooferPolicy = 1

// SpeakerCounts summarises a layout for channel allocation.
type SpeakerCounts struct {
	MainSpeakers     int // speakers without the subwoofer flag
	InputSubwoofers  int // summed bass inputs: InputSubwooferPolicy or 0
	OutputSubwoofers int // physical subwoofer outputs
}

// CountSpeakers derives the channel counts for a layout.
func CountSpeakers(speakers []processor.EngineSpeaker) SpeakerCounts {
	outputSubwoofers := 0
	for _, s := range speakers {
		if s.IsSubwoofer {
			outputSubwoofers++
		}
	}

	inputSubwoofers := 0
	if outputSubwoofers > 0 {
		inputSubwoofers = InputSubwooferPolicy
	}

	return SpeakerCounts{
		MainSpeakers:     len(speakers) - outputSubwoofers,
		InputSubwoofers:  inputSubwoofers,
		OutputSubwoofers: outputSubwoofers,
	}
}

// HasSubwoofers reports whether routing mixers are needed.
func (c SpeakerCounts) HasSubwoofers() bool {
	return c.OutputSubwoofers > 0
}

// InputChannels is the capture channel count: one per main speaker plus the
// summed subwoofer inputs.
func (c SpeakerCounts) InputChannels() int {
	return c.MainSpeakers + c.InputSubwoofers
}

// OutputChannels is the playback channel count.
func (c SpeakerCounts) OutputChannels() int {
	return c.MainSpeakers + c.OutputSubwoofers
}

// SubwooferInputNames names the synthetic pass-through bass inputs.
func (c SpeakerCounts) SubwooferInputNames() []string {
	names := make([]string, c.InputSubwoofers)
	for i := range names {
		names[i] = SubwooferInputName(i)
	}
	return names
}

// SubwooferInputName names the i-th synthetic subwoofer input channel.
func SubwooferInputName(i int) string {
	return fmt.Sprintf("subwoofer_input_%d", i)
}

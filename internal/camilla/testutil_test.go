package camilla

import (
	"testing"

	"github.com/linuxmatters/avprocessor/internal/devices"
	"github.com/linuxmatters/avprocessor/internal/processor"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func mainSpeaker(name string, crossover int, delay float64) processor.EngineSpeaker {
	s := processor.EngineSpeaker{Speaker: name, Delay: delay, Gain: 0}
	if crossover > 0 {
		s.Crossover = intPtr(crossover)
	}
	return s
}

func subwoofer(name string, delay float64) processor.EngineSpeaker {
	return processor.EngineSpeaker{Speaker: name, Delay: delay, IsSubwoofer: true}
}

// theatreLayout is l, c, r crossed over at 80 Hz plus one subwoofer.
func theatreLayout() []processor.EngineSpeaker {
	return []processor.EngineSpeaker{
		mainSpeaker("l", 80, 0.5),
		mainSpeaker("c", 80, 0),
		mainSpeaker("r", 80, 0.5),
		subwoofer("sub1", 2),
	}
}

// theatreBands targets l, l and r.
func theatreBands() []processor.Filter {
	return []processor.Filter{
		{Speaker: "l", Freq: 1000, Gain: 2, Q: 0.707},
		{Speaker: "l", Freq: 3000, Gain: -1.5, Q: 1.4},
		{Speaker: "r", Freq: 1000, Gain: 2, Q: 0.707},
	}
}

func testProfile(t *testing.T) devices.Profile {
	t.Helper()
	p, err := devices.Lookup(devices.OktoDac8)
	require.NoError(t, err)
	return p
}

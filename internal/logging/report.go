// Package logging handles generation of compile reports for engine configurations

package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/linuxmatters/avprocessor/internal/camilla"
	"github.com/linuxmatters/avprocessor/internal/devices"
	"github.com/linuxmatters/avprocessor/internal/processor"
)

// ReportData contains all the information needed to generate a compile report
type ReportData struct {
	SettingsPath string // source file, empty when compiled from a stored version
	OutputPath   string
	Version      int // stored version number, 0 when compiled from a file
	Generated    time.Time
	Settings     *processor.Settings
	Speakers     []processor.EngineSpeaker
	Profile      devices.Profile
	Config       *camilla.Config
}

// ReportPath returns the report filename for an output file:
// layout.json → layout.log
func ReportPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".log"
}

// GenerateReport writes a compile report next to the output file.
//
// Report structure:
// 1. Header - source, device and timestamp
// 2. Topology - channel counts
// 3. Speakers - channel, crossover, distance, delay and gain per speaker
// 4. Parametric EQ - bands per speaker, including skipped bands
// 5. Mixers - routing per destination channel
// 6. Pipeline - ordered steps
func GenerateReport(data ReportData) (string, error) {
	logPath := ReportPath(data.OutputPath)

	f, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}
	defer f.Close()

	WriteReport(f, data)
	return logPath, nil
}

// WriteReport writes every report section to w.
func WriteReport(w io.Writer, data ReportData) {
	writeReportHeader(w, data)
	if data.Config == nil {
		return
	}
	writeTopology(w, data.Config)
	writeSpeakerTable(w, data)
	writePEQTable(w, data)
	writeMixers(w, data.Config)
	writePipeline(w, data.Config)
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// writeReportHeader outputs the report header with source and timestamp.
func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "AV Processor Compile Report")
	fmt.Fprintln(w, "===========================")
	switch {
	case data.Version > 0:
		fmt.Fprintf(w, "Version: %d\n", data.Version)
	case data.SettingsPath != "":
		fmt.Fprintf(w, "Settings: %s\n", filepath.Base(data.SettingsPath))
	}
	if data.Profile.ID != "" {
		fmt.Fprintf(w, "Device: %s (%s, %s, %d Hz)\n", data.Profile.Name, data.Profile.Playback, data.Profile.Format, data.Profile.SampleRate)
	}
	if data.Settings != nil {
		fmt.Fprintf(w, "Distance unit: %s\n", data.Settings.SelectedDistance)
	}
	if !data.Generated.IsZero() {
		fmt.Fprintf(w, "Generated: %s\n", data.Generated.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintln(w, "")
}

// writeTopology outputs the channel counts.
func writeTopology(w io.Writer, cfg *camilla.Config) {
	writeSection(w, "Topology")

	counts := cfg.Topology
	fmt.Fprintf(w, "Main speakers:       %d\n", counts.MainSpeakers)
	fmt.Fprintf(w, "Subwoofer outputs:   %d\n", counts.OutputSubwoofers)
	fmt.Fprintf(w, "Subwoofer inputs:    %d\n", counts.InputSubwoofers)
	fmt.Fprintf(w, "Capture channels:    %d\n", cfg.Devices.Capture.Channels)
	fmt.Fprintf(w, "Playback channels:   %d\n", cfg.Devices.Playback.Channels)
	if !counts.HasSubwoofers() {
		fmt.Fprintln(w, "Bass management:     off (no subwoofer)")
	}
	fmt.Fprintln(w, "")
}

// writeSpeakerTable outputs one row per speaker in playback channel order.
func writeSpeakerTable(w io.Writer, data ReportData) {
	writeSection(w, "Speakers")

	distances := make(map[string]float64)
	unit := processor.DistanceMS
	if data.Settings != nil {
		unit = data.Settings.SelectedDistance
		for _, s := range data.Settings.Speakers {
			distances[s.Speaker] = s.Distance
		}
	}

	speakers := make([]processor.EngineSpeaker, len(data.Speakers))
	copy(speakers, data.Speakers)
	sort.SliceStable(speakers, func(i, j int) bool {
		return data.Config.OutputChannels[speakers[i].Speaker] < data.Config.OutputChannels[speakers[j].Speaker]
	})

	table := NewTable("Channel", "Crossover", "Distance", "Delay", "Gain")
	for _, s := range speakers {
		crossover := "full range"
		if s.HasCrossover() {
			crossover = fmt.Sprintf("%d Hz", *s.Crossover)
		}
		distance := MissingValue
		if d, ok := distances[s.Speaker]; ok {
			distance = formatWithUnit(d, 2, string(unit))
		}
		note := ""
		if s.IsSubwoofer {
			note = "subwoofer"
		}
		table.AddRow(s.Speaker, []string{
			fmt.Sprintf("%d", data.Config.OutputChannels[s.Speaker]),
			crossover,
			distance,
			formatWithUnit(s.Delay, 3, "ms"),
			formatSigned(s.Gain, 1),
		}, "dB", note)
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// writePEQTable outputs every PEQ band by generated filter name.
func writePEQTable(w io.Writer, data ReportData) {
	if data.Settings == nil || len(data.Settings.Filters) == 0 {
		return
	}
	writeSection(w, "Parametric EQ")

	skipped := make(map[int]bool)
	known := make(map[string]bool, len(data.Speakers))
	for _, s := range data.Speakers {
		known[s.Speaker] = true
	}

	table := NewTable("Freq", "Gain", "Q")
	for i, f := range data.Settings.Filters {
		note := ""
		if !known[f.Speaker] {
			skipped[i] = true
			note = fmt.Sprintf("skipped: no speaker %q", f.Speaker)
		}
		table.AddRow(camilla.PEQFilterName(f.Speaker, i), []string{
			fmt.Sprintf("%d Hz", f.Freq),
			formatSigned(f.Gain, 1),
			formatFloat(f.Q, 3),
		}, "", note)
	}
	fmt.Fprint(w, table.String())
	if len(skipped) > 0 {
		fmt.Fprintf(w, "%d band(s) skipped\n", len(skipped))
	}
	fmt.Fprintln(w, "")
}

// writeMixers outputs each mixer's routing, one line per destination.
func writeMixers(w io.Writer, cfg *camilla.Config) {
	if len(cfg.Mixers) == 0 {
		return
	}
	writeSection(w, "Mixers")

	names := make([]string, 0, len(cfg.Mixers))
	for name := range cfg.Mixers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := cfg.Mixers[name]
		fmt.Fprintf(w, "%s (%d in, %d out)\n", name, m.Channels.In, m.Channels.Out)
		for _, mapping := range m.Mapping {
			sources := make([]string, len(mapping.Sources))
			for i, s := range mapping.Sources {
				sources[i] = fmt.Sprintf("%d", s.Channel)
				if s.Gain != 0 && !math.IsNaN(s.Gain) {
					sources[i] += fmt.Sprintf(" (%s dB)", formatSigned(s.Gain, 1))
				}
			}
			fmt.Fprintf(w, "  %2d <- %s\n", mapping.Dest, strings.Join(sources, " + "))
		}
	}
	fmt.Fprintln(w, "")
}

// writePipeline outputs the pipeline steps in execution order.
func writePipeline(w io.Writer, cfg *camilla.Config) {
	writeSection(w, "Pipeline")

	for i, step := range cfg.Pipeline {
		switch s := step.(type) {
		case camilla.MixerStep:
			fmt.Fprintf(w, "%2d. Mixer   %s\n", i+1, s.Name)
		case camilla.FilterStep:
			fmt.Fprintf(w, "%2d. Filter  channel %d: %s\n", i+1, s.Channel, strings.Join(s.Names, ", "))
		}
	}
	if len(cfg.Pipeline) == 0 {
		fmt.Fprintln(w, "(empty)")
	}
	fmt.Fprintln(w, "")
}

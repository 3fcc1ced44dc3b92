package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/linuxmatters/avprocessor/internal/camilla"
	"github.com/linuxmatters/avprocessor/internal/cli"
	"github.com/linuxmatters/avprocessor/internal/control"
	"github.com/linuxmatters/avprocessor/internal/devices"
	"github.com/linuxmatters/avprocessor/internal/logging"
	"github.com/linuxmatters/avprocessor/internal/processor"
	"github.com/linuxmatters/avprocessor/internal/store"
	"github.com/linuxmatters/avprocessor/internal/testsignal"
	"gopkg.in/yaml.v3"
)

// compiled is a settings document turned into an engine configuration
type compiled struct {
	Settings *processor.Settings
	Speakers []processor.EngineSpeaker
	Profile  devices.Profile
	Config   *camilla.Config
}

func compileSettings(g *Globals, settings *processor.Settings) (*compiled, error) {
	profile, err := devices.Lookup(settings.Device)
	if err != nil {
		return nil, err
	}

	speakers := settings.ForEngine()
	cfg := camilla.Compile(speakers, settings.Filters, profile)

	g.logger.Debug("configuration compiled",
		"main_speakers", cfg.Topology.MainSpeakers,
		"input_subwoofers", cfg.Topology.InputSubwoofers,
		"output_subwoofers", cfg.Topology.OutputSubwoofers,
		"filters", len(cfg.Filters),
		"steps", len(cfg.Pipeline))

	for _, f := range cfg.Orphans {
		g.logger.Warn("band skipped", "speaker", f.Speaker, "freq", f.Freq)
	}

	return &compiled{Settings: settings, Speakers: speakers, Profile: profile, Config: cfg}, nil
}

// warnOrphans tells the user about bands left out of the configuration.
func warnOrphans(cfg *camilla.Config) {
	for _, f := range cfg.Orphans {
		cli.PrintWarning(fmt.Sprintf("skipping %d Hz band for unknown speaker %q", f.Freq, f.Speaker))
	}
}

func encodeConfig(cfg *camilla.Config, format string) ([]byte, error) {
	if format == "yaml" {
		return cfg.YAML()
	}
	return cfg.JSON()
}

// resolveVersion accepts a version number or "latest".
func resolveVersion(st *store.Store, arg string) (store.Version, error) {
	if arg == "" || strings.EqualFold(arg, "latest") {
		return st.Latest()
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return store.Version{}, fmt.Errorf("invalid version %q: expected a number or \"latest\"", arg)
	}
	return st.Get(n)
}

// CompileCmd compiles a settings file
type CompileCmd struct {
	Settings string `arg:"" type:"existingfile" help:"Settings file (.json or .yaml)"`
	Format   string `short:"f" enum:"json,yaml" default:"json" help:"Output format (json or yaml)"`
	Out      string `short:"o" type:"path" help:"Write the configuration to a file instead of stdout"`
	Logs     bool   `help:"Save a compile report next to the output"`
}

func (c *CompileCmd) Run(g *Globals) error {
	settings, err := g.loadSettings(c.Settings)
	if err != nil {
		return err
	}
	result, err := compileSettings(g, settings)
	if err != nil {
		return err
	}
	warnOrphans(result.Config)

	data, err := encodeConfig(result.Config, c.Format)
	if err != nil {
		return err
	}

	if c.Out == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(c.Out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	if c.Logs {
		reportFor := c.Out
		if reportFor == "" {
			reportFor = c.Settings
		}
		path, err := logging.GenerateReport(logging.ReportData{
			SettingsPath: c.Settings,
			OutputPath:   reportFor,
			Generated:    time.Now(),
			Settings:     result.Settings,
			Speakers:     result.Speakers,
			Profile:      result.Profile,
			Config:       result.Config,
		})
		if err != nil {
			return err
		}
		g.logger.Debug("report written", "path", path)
		if c.Out != "" {
			cli.PrintSuccess("Report written to " + path)
		}
	}
	return nil
}

// SaveCmd stores a settings file as a new version
type SaveCmd struct {
	Settings string `arg:"" type:"existingfile" help:"Settings file (.json or .yaml)"`
}

func (c *SaveCmd) Run(g *Globals) error {
	settings, err := g.loadSettings(c.Settings)
	if err != nil {
		return err
	}
	st, err := g.openStore()
	if err != nil {
		return err
	}
	v, err := st.Save(settings)
	if err != nil {
		return err
	}
	g.logger.Info("version saved", "version", v.Version)
	cli.PrintSuccess(fmt.Sprintf("Saved version %d", v.Version))
	return nil
}

// VersionsCmd lists stored versions
type VersionsCmd struct{}

func (c *VersionsCmd) Run(g *Globals) error {
	st, err := g.openStore()
	if err != nil {
		return err
	}
	versions, err := st.List()
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("No versions stored in " + st.Dir())
		return nil
	}

	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		applied := ""
		if v.AppliedVersion {
			applied = "✓"
		}
		rows = append(rows, []string{
			strconv.Itoa(v.Version),
			v.VersionDate.Local().Format(time.DateTime),
			string(v.Settings.Device),
			strconv.Itoa(len(v.Settings.Speakers)),
			strconv.Itoa(len(v.Settings.Filters)),
			applied,
		})
	}
	cli.PrintTable(os.Stdout, []string{"Version", "Date", "Device", "Speakers", "Bands", "Applied"}, rows)
	return nil
}

// ShowCmd prints a stored version
type ShowCmd struct {
	Version string `arg:"" optional:"" default:"latest" help:"Version number or \"latest\""`
	Format  string `short:"f" enum:"json,yaml" default:"yaml" help:"Output format (json or yaml)"`
}

func (c *ShowCmd) Run(g *Globals) error {
	st, err := g.openStore()
	if err != nil {
		return err
	}
	v, err := resolveVersion(st, c.Version)
	if err != nil {
		return err
	}
	if applied, err := st.Applied(); err == nil {
		v.AppliedVersion = applied.Version == v.Version
	}

	var data []byte
	if c.Format == "json" {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = yaml.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode version %d: %w", v.Version, err)
	}
	fmt.Println(strings.TrimRight(string(data), "\n"))
	return nil
}

// DeleteCmd deletes a stored version
type DeleteCmd struct {
	Version int `arg:"" help:"Version number"`
}

func (c *DeleteCmd) Run(g *Globals) error {
	st, err := g.openStore()
	if err != nil {
		return err
	}
	if err := st.Delete(c.Version); err != nil {
		return err
	}
	g.logger.Info("version deleted", "version", c.Version)
	cli.PrintSuccess(fmt.Sprintf("Deleted version %d", c.Version))
	return nil
}

// DevicesCmd lists the supported output devices
type DevicesCmd struct{}

func (c *DevicesCmd) Run(g *Globals) error {
	profiles := devices.Profiles()
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			string(p.ID),
			p.Name,
			p.Playback,
			p.Format,
			strconv.Itoa(p.SampleRate),
			p.Description,
		})
	}
	cli.PrintTable(os.Stdout, []string{"ID", "Name", "Playback", "Format", "Rate", "Description"}, rows)
	return nil
}

// DelaysCmd shows the delay each speaker receives
type DelaysCmd struct {
	Settings string `arg:"" type:"existingfile" help:"Settings file (.json or .yaml)"`
}

func (c *DelaysCmd) Run(g *Globals) error {
	settings, err := g.loadSettings(c.Settings)
	if err != nil {
		return err
	}

	speakers := settings.ForEngine()
	rows := make([][]string, 0, len(speakers))
	for i, s := range speakers {
		crossover := "-"
		if s.HasCrossover() {
			crossover = fmt.Sprintf("%d Hz", *s.Crossover)
		}
		kind := "main"
		if s.IsSubwoofer {
			kind = "subwoofer"
		}
		rows = append(rows, []string{
			s.Speaker,
			kind,
			strconv.FormatFloat(settings.Speakers[i].Distance, 'f', 2, 64),
			strconv.FormatFloat(s.Delay, 'f', 3, 64),
			fmt.Sprintf("%+.1f", s.Gain),
			crossover,
		})
	}

	cli.PrintKeyValue("Distance unit", settings.SelectedDistance)
	cli.PrintTable(os.Stdout, []string{"Speaker", "Type", "Distance", "Delay (ms)", "Gain (dB)", "Crossover"}, rows)

	for _, f := range settings.OrphanedFilters() {
		cli.PrintWarning(fmt.Sprintf("%d Hz band targets unknown speaker %q", f.Freq, f.Speaker))
	}
	return nil
}

// VolumeCmd reads the engine volume
type VolumeCmd struct {
	Address  string        `default:"${address}" help:"Engine websocket address"`
	Asoundrc string        `type:"existingfile" help:"Read the control port and volume file from an .asoundrc"`
	Timeout  time.Duration `default:"${timeout}" help:"Give up after this long"`
	Save     bool          `help:"Store the volume in the .asoundrc vol_file so it survives a restart"`
}

func (c *VolumeCmd) Run(g *Globals) error {
	address := c.Address
	var plugin control.PluginSettings
	if c.Asoundrc != "" {
		var err error
		plugin, err = control.LoadAsoundrc(c.Asoundrc)
		if err != nil {
			return err
		}
		address = plugin.Address()
	}
	if c.Save && plugin.VolFile == "" {
		return errors.New("--save needs an --asoundrc with a vol_file setting")
	}

	ctx, cancel := contextWithTimeout(g, c.Timeout)
	defer cancel()

	client, err := control.Dial(ctx, address)
	if err != nil {
		return err
	}
	defer client.Close()

	volume, err := client.GetVolume(ctx)
	if err != nil {
		return err
	}
	g.logger.Debug("volume read", "address", address, "volume", volume)
	cli.PrintKeyValue("Volume", fmt.Sprintf("%.1f dB", volume))

	if c.Save {
		if err := control.WriteVolumeFile(plugin.VolFile, volume); err != nil {
			return err
		}
		cli.PrintSuccess("Volume saved to " + plugin.VolFile)
	}
	return nil
}

// TesttoneCmd writes a channel identification WAV
type TesttoneCmd struct {
	Settings  string        `arg:"" type:"existingfile" help:"Settings file (.json or .yaml)"`
	Out       string        `short:"o" type:"path" required:"" help:"WAV file to write"`
	Frequency float64       `default:"1000" help:"Tone frequency in Hz"`
	Burst     time.Duration `default:"1s" help:"Length of each channel's tone"`
	Gap       time.Duration `default:"500ms" help:"Silence between channels"`
	Level     float64       `default:"-12" help:"Tone peak level in dBFS"`
}

func (c *TesttoneCmd) Run(g *Globals) error {
	settings, err := g.loadSettings(c.Settings)
	if err != nil {
		return err
	}
	result, err := compileSettings(g, settings)
	if err != nil {
		return err
	}
	warnOrphans(result.Config)

	layout := testsignal.LayoutFor(result.Profile, result.Config.Devices.Capture.Channels)
	gap := c.Gap
	if gap == 0 {
		gap = -1
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("failed to create test tone: %w", err)
	}
	defer f.Close()

	err = testsignal.Write(f, layout, testsignal.Options{
		Frequency: c.Frequency,
		Burst:     c.Burst,
		Gap:       gap,
		Level:     c.Level,
	})
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write test tone: %w", err)
	}

	g.logger.Debug("test tone written", "path", c.Out, "channels", layout.Channels,
		"rate", layout.SampleRate, "bits", layout.BitDepth)
	cli.PrintSuccess(fmt.Sprintf("Wrote %d-channel test tone to %s", layout.Channels, c.Out))
	return nil
}

// VersionCmd prints version information
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	cli.PrintVersion(version)
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/linuxmatters/avprocessor/internal/cli"
	"github.com/linuxmatters/avprocessor/internal/control"
	"github.com/linuxmatters/avprocessor/internal/logging"
	"github.com/linuxmatters/avprocessor/internal/processor"
	"github.com/linuxmatters/avprocessor/internal/store"
	"github.com/linuxmatters/avprocessor/internal/units"
)

var (
	version = "0.0.1"
)

// Globals are flags shared by every command
type Globals struct {
	Store string `type:"path" default:"${store}" help:"Directory holding configuration versions"`
	Unit  string `placeholder:"UNIT" help:"Distance unit for settings that do not name one (ms, feet or meters; default from local timezone)"`
	Debug bool   `help:"Write a debug log to ${debuglog}"`

	ctx    context.Context
	logger *slog.Logger
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Compile  CompileCmd  `cmd:"" help:"Compile a settings file into an engine configuration"`
	Save     SaveCmd     `cmd:"" help:"Store a settings file as a new version"`
	Versions VersionsCmd `cmd:"" help:"List stored versions"`
	Show     ShowCmd     `cmd:"" help:"Print a stored version"`
	Delete   DeleteCmd   `cmd:"" help:"Delete a stored version"`
	Apply    ApplyCmd    `cmd:"" help:"Compile a stored version and load it into the engine"`
	Devices  DevicesCmd  `cmd:"" help:"List supported output devices"`
	Delays   DelaysCmd   `cmd:"" help:"Show the delay applied to each speaker"`
	Volume   VolumeCmd   `cmd:"" help:"Read the engine's current volume"`
	Testtone TesttoneCmd `cmd:"" help:"Write a channel identification WAV file"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`
}

func main() {
	os.Exit(run())
}

func run() int {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("avprocessor"),
		kong.Description("Speaker layout compiler for CamillaDSP"),
		kong.UsageOnError(),
		kong.Vars{
			"version":  version,
			"store":    defaultStoreDir(),
			"address":  control.DefaultAddress,
			"timeout":  control.DefaultTimeout.String(),
			"debuglog": logging.DebugLogName,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cliArgs.ctx = runCtx

	cliArgs.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if cliArgs.Debug {
		logger, closeLog := logging.NewDebugLogger(logging.DebugLogName)
		defer closeLog()
		cliArgs.logger = logger
	}
	cliArgs.logger.Debug("starting", "command", ctx.Command(), "version", version)

	if err := ctx.Run(&cliArgs.Globals); err != nil {
		cliArgs.logger.Error("command failed", "command", ctx.Command(), "error", err)
		cli.PrintError(err.Error())
		return 1
	}
	return 0
}

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".avprocessor"
	}
	return filepath.Join(dir, "avprocessor")
}

// fallbackUnit is the distance unit for settings documents that omit one.
func (g *Globals) fallbackUnit() (processor.DistanceUnit, error) {
	if g.Unit == "" {
		return units.DefaultDistanceUnit(), nil
	}
	return processor.ParseDistanceUnit(g.Unit)
}

func (g *Globals) loadSettings(path string) (*processor.Settings, error) {
	unit, err := g.fallbackUnit()
	if err != nil {
		return nil, err
	}
	settings, err := processor.LoadFile(path, unit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	g.logger.Debug("settings loaded", "path", path, "speakers", len(settings.Speakers),
		"filters", len(settings.Filters), "unit", settings.SelectedDistance, "device", settings.Device)
	return settings, nil
}

func (g *Globals) openStore() (*store.Store, error) {
	st, err := store.Open(g.Store)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("store opened", "dir", st.Dir())
	return st, nil
}

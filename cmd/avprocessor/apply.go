package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/avprocessor/internal/control"
	"github.com/linuxmatters/avprocessor/internal/store"
	"github.com/linuxmatters/avprocessor/internal/ui"
)

// Stage indexes into ui.ApplyStages
const (
	stageLoad = iota
	stageCompile
	stageWrite
	stageConnect
	stageSend
	stageRecord
)

// ApplyCmd compiles a stored version and loads it into the engine
type ApplyCmd struct {
	Version   string        `arg:"" optional:"" default:"latest" help:"Version number or \"latest\""`
	ConfigOut string        `type:"path" help:"Also write the configuration as YAML for the ALSA plugin's config_in"`
	Address   string        `default:"${address}" help:"Engine websocket address"`
	Asoundrc  string        `type:"existingfile" help:"Read the control port from an .asoundrc"`
	NoSend    bool          `help:"Do not contact the engine"`
	Timeout   time.Duration `default:"${timeout}" help:"Give up on the engine after this long"`
}

func (c *ApplyCmd) Run(g *Globals) error {
	if c.NoSend && c.ConfigOut == "" {
		return errors.New("--no-send needs --config-out, otherwise there is nothing to do")
	}

	st, err := g.openStore()
	if err != nil {
		return err
	}

	model := ui.NewModel(fmt.Sprintf("Applying version %s", c.Version), ui.ApplyStages, g.logger)
	p := tea.NewProgram(model)

	go func() {
		summary, err := c.apply(g, st, model.ProgressChan)
		if err != nil {
			g.logger.Error("apply failed", "error", err)
		}
		model.ProgressChan <- ui.AllCompleteMsg{Summary: summary}
	}()

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	if m, ok := final.(ui.Model); ok {
		if !m.Done {
			return errors.New("apply interrupted")
		}
		return m.Err()
	}
	return nil
}

// apply runs each stage in order, reporting progress, and stops at the
// first failure.
func (c *ApplyCmd) apply(g *Globals, st *store.Store, progress chan<- tea.Msg) (string, error) {
	r := stageRunner{progress: progress}

	var v store.Version
	err := r.run(stageLoad, func() (string, error) {
		var err error
		v, err = resolveVersion(st, c.Version)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("version %d, %d speakers", v.Version, len(v.Settings.Speakers)), nil
	})
	if err != nil {
		return "", err
	}

	var result *compiled
	err = r.run(stageCompile, func() (string, error) {
		var err error
		result, err = compileSettings(g, &v.Settings)
		if err != nil {
			return "", err
		}
		cfg := result.Config
		detail := fmt.Sprintf("%d in, %d out, %d filters", cfg.Devices.Capture.Channels,
			cfg.Devices.Playback.Channels, len(cfg.Filters))
		if len(cfg.Orphans) > 0 {
			detail += fmt.Sprintf(", %d bands skipped", len(cfg.Orphans))
		}
		return detail, nil
	})
	if err != nil {
		return "", err
	}

	if c.ConfigOut == "" {
		r.skip(stageWrite, "no --config-out")
	} else {
		err = r.run(stageWrite, func() (string, error) {
			data, err := result.Config.YAML()
			if err != nil {
				return "", err
			}
			if err := os.WriteFile(c.ConfigOut, data, 0o644); err != nil {
				return "", fmt.Errorf("failed to write configuration: %w", err)
			}
			return c.ConfigOut, nil
		})
		if err != nil {
			return "", err
		}
	}

	if c.NoSend {
		r.skip(stageConnect, "--no-send")
		r.skip(stageSend, "--no-send")
	} else if err := c.send(g, r, result); err != nil {
		return "", err
	}

	err = r.run(stageRecord, func() (string, error) {
		return fmt.Sprintf("version %d", v.Version), st.MarkApplied(v.Version)
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Version %d is now the applied configuration.", v.Version), nil
}

func (c *ApplyCmd) send(g *Globals, r stageRunner, result *compiled) error {
	address := c.Address
	if c.Asoundrc != "" {
		plugin, err := control.LoadAsoundrc(c.Asoundrc)
		if err != nil {
			r.fail(stageConnect, err)
			return err
		}
		address = plugin.Address()
	}

	ctx, cancel := contextWithTimeout(g, c.Timeout)
	defer cancel()

	var client *control.Client
	err := r.run(stageConnect, func() (string, error) {
		var err error
		client, err = control.Dial(ctx, address)
		return address, err
	})
	if err != nil {
		return err
	}
	defer client.Close()

	return r.run(stageSend, func() (string, error) {
		return "accepted", client.SetConfig(ctx, result.Config)
	})
}

// stageRunner reports the lifecycle of each stage to the UI
type stageRunner struct {
	progress chan<- tea.Msg
}

func (r stageRunner) run(index int, fn func() (string, error)) error {
	r.progress <- ui.StageStartMsg{Index: index}
	detail, err := fn()
	if err != nil {
		detail = ""
	}
	r.progress <- ui.StageCompleteMsg{Index: index, Detail: detail, Error: err}
	return err
}

func (r stageRunner) skip(index int, reason string) {
	r.progress <- ui.StageSkippedMsg{Index: index, Reason: reason}
}

func (r stageRunner) fail(index int, err error) {
	r.progress <- ui.StageCompleteMsg{Index: index, Error: err}
}

func contextWithTimeout(g *Globals, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := g.ctx
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		timeout = control.DefaultTimeout
	}
	return context.WithTimeout(parent, timeout)
}

package control

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ALSA plugin settings read from an .asoundrc
const (
	asoundrcPortPrefix    = "-p"
	asoundrcVolFilePrefix = "vol_file"
)

// DefaultPort is the engine's control port when .asoundrc does not set one.
const DefaultPort = 1234

// PluginSettings are the CamillaDSP ALSA plugin values needed to reach the
// engine and to persist its volume between restarts.
type PluginSettings struct {
	Port    int
	VolFile string
}

// Address returns the websocket address for the configured port.
func (p PluginSettings) Address() string {
	return fmt.Sprintf("ws://127.0.0.1:%d", p.Port)
}

// ParseAsoundrc scans an .asoundrc for the plugin's "-p <port>" argument and
// its vol_file setting.
func ParseAsoundrc(r io.Reader) (PluginSettings, error) {
	settings := PluginSettings{Port: DefaultPort}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, asoundrcPortPrefix):
			value := asoundrcValue(asoundrcPortPrefix, line)
			port, err := strconv.Atoi(value)
			if err != nil {
				return PluginSettings{}, fmt.Errorf("invalid port %q in asoundrc: %w", value, err)
			}
			settings.Port = port
		case strings.HasPrefix(line, asoundrcVolFilePrefix):
			settings.VolFile = asoundrcValue(asoundrcVolFilePrefix, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return PluginSettings{}, fmt.Errorf("failed to read asoundrc: %w", err)
	}
	return settings, nil
}

// LoadAsoundrc reads plugin settings from path.
func LoadAsoundrc(path string) (PluginSettings, error) {
	f, err := os.Open(path)
	if err != nil {
		return PluginSettings{}, fmt.Errorf("failed to open asoundrc: %w", err)
	}
	defer f.Close()
	return ParseAsoundrc(f)
}

// WriteVolumeFile stores volume in the plugin's "<dB> <mute>" format.
// The file must not already exist.
func WriteVolumeFile(path string, volume float64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create volume file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s 0", strconv.FormatFloat(volume, 'f', -1, 64)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write volume file: %w", err)
	}
	return f.Close()
}

func asoundrcValue(prefix, line string) string {
	value := strings.TrimPrefix(line, prefix)
	value = strings.ReplaceAll(value, " ", "")
	return strings.ReplaceAll(value, `"`, "")
}

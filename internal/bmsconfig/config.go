// Package bmsconfig loads the read-only configuration snapshot the
// playback core needs at Mapper/Player construction time (spec §6's
// config.get(category, name) surface), parsed once from a YAML file with
// gopkg.in/yaml.v3 the way doismellburning-samoyed/src/deviceid.go loads
// its device mapping table. Nothing in this package is a singleton: a
// caller loads a Config and passes it explicitly to whatever needs it.
package bmsconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// KeyBinding maps one (playstyle, lane) pair to a keyboard key, named by
// string so the YAML file stays human-editable; bmscore.NewMapper resolves
// the strings into its own enums.
type KeyBinding struct {
	Playstyle string `yaml:"playstyle"`
	Lane      string `yaml:"lane"`
	Key       int    `yaml:"key"`
}

// ControllerBinding maps one (playstyle, lane) pair to a controller button
// or axis number on a named physical controller.
type ControllerBinding struct {
	Playstyle      string `yaml:"playstyle"`
	Lane           string `yaml:"lane"`
	GUIDHash       uint32 `yaml:"guid_hash"`
	DuplicateIndex uint32 `yaml:"duplicate_index"`
	Code           uint32 `yaml:"code"` // button number, or axis number
}

// Config is a read-only snapshot of every option spec §6 enumerates.
type Config struct {
	DebounceDuration     time.Duration
	TurntableStopTimeout time.Duration
	KeyBindings          []KeyBinding
	ConButtonBindings    []ControllerBinding
	ConAxisBindings      []ControllerBinding

	ScrollSpeed     float64
	NoteOffset      time.Duration
	JudgmentTimeout time.Duration
}

type file struct {
	Controls struct {
		DebounceDurationMS     int                 `yaml:"debounce_duration"`
		TurntableStopTimeoutMS int                 `yaml:"turntable_stop_timeout"`
		KB                     []KeyBinding        `yaml:"kb"`
		ConButton              []ControllerBinding `yaml:"con_button"`
		ConAxis                []ControllerBinding `yaml:"con_axis"`
	} `yaml:"controls"`
	Gameplay struct {
		ScrollSpeed       float64 `yaml:"scroll_speed"`
		NoteOffsetMS      int     `yaml:"note_offset"`
		JudgmentTimeoutMS int     `yaml:"judgment_timeout"`
	} `yaml:"gameplay"`
}

// Defaults per spec §6: debounce 5ms, turntable-stop-timeout 100ms.
const (
	DefaultDebounceDuration     = 5 * time.Millisecond
	DefaultTurntableStopTimeout = 100 * time.Millisecond
)

// Load parses path as a bmsconfig YAML document, filling in spec §6's
// documented defaults for any field the file omits.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bmsconfig: read %s: %w", path, err)
	}

	var f file
	f.Controls.DebounceDurationMS = -1
	f.Controls.TurntableStopTimeoutMS = -1
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("bmsconfig: parse %s: %w", path, err)
	}

	cfg := &Config{
		DebounceDuration:     DefaultDebounceDuration,
		TurntableStopTimeout: DefaultTurntableStopTimeout,
		KeyBindings:          f.Controls.KB,
		ConButtonBindings:    f.Controls.ConButton,
		ConAxisBindings:      f.Controls.ConAxis,
		ScrollSpeed:          f.Gameplay.ScrollSpeed,
		NoteOffset:           time.Duration(f.Gameplay.NoteOffsetMS) * time.Millisecond,
		JudgmentTimeout:      time.Duration(f.Gameplay.JudgmentTimeoutMS) * time.Millisecond,
	}
	if f.Controls.DebounceDurationMS >= 0 {
		cfg.DebounceDuration = time.Duration(f.Controls.DebounceDurationMS) * time.Millisecond
	}
	if f.Controls.TurntableStopTimeoutMS >= 0 {
		cfg.TurntableStopTimeout = time.Duration(f.Controls.TurntableStopTimeoutMS) * time.Millisecond
	}
	if cfg.ScrollSpeed == 0 {
		cfg.ScrollSpeed = 1.0
	}
	if len(cfg.KeyBindings) == 0 {
		return nil, fmt.Errorf("bmsconfig: %s: no controls.kb bindings configured", path)
	}

	return cfg, nil
}

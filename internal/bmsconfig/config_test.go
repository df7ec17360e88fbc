package bmsconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bmsplay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
controls:
  kb:
    - {playstyle: "7K", lane: "P1_Key1", key: 1}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DebounceDuration != DefaultDebounceDuration {
		t.Errorf("DebounceDuration = %v, want default %v", cfg.DebounceDuration, DefaultDebounceDuration)
	}
	if cfg.TurntableStopTimeout != DefaultTurntableStopTimeout {
		t.Errorf("TurntableStopTimeout = %v, want default %v", cfg.TurntableStopTimeout, DefaultTurntableStopTimeout)
	}
	if cfg.ScrollSpeed != 1.0 {
		t.Errorf("ScrollSpeed = %v, want default 1.0", cfg.ScrollSpeed)
	}
	if len(cfg.KeyBindings) != 1 || cfg.KeyBindings[0].Lane != "P1_Key1" {
		t.Errorf("KeyBindings = %+v", cfg.KeyBindings)
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
controls:
  debounce_duration: 10
  turntable_stop_timeout: 250
  kb:
    - {playstyle: "7K", lane: "P1_Key1", key: 1}
gameplay:
  scroll_speed: 2.5
  note_offset: 15
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DebounceDuration != 10*time.Millisecond {
		t.Errorf("DebounceDuration = %v, want 10ms", cfg.DebounceDuration)
	}
	if cfg.TurntableStopTimeout != 250*time.Millisecond {
		t.Errorf("TurntableStopTimeout = %v, want 250ms", cfg.TurntableStopTimeout)
	}
	if cfg.ScrollSpeed != 2.5 {
		t.Errorf("ScrollSpeed = %v, want 2.5", cfg.ScrollSpeed)
	}
	if cfg.NoteOffset != 15*time.Millisecond {
		t.Errorf("NoteOffset = %v, want 15ms", cfg.NoteOffset)
	}
}

func TestLoadFailsWithNoKeyBindings(t *testing.T) {
	path := writeConfig(t, `
controls:
  kb: []
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error when no key bindings are configured")
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

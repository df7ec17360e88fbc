package bmscore

import (
	"testing"
	"time"

	"github.com/tearbeat/bmscore/internal/bmsconfig"
)

func testConfig() *bmsconfig.Config {
	return &bmsconfig.Config{
		DebounceDuration:     5 * time.Millisecond,
		TurntableStopTimeout: 100 * time.Millisecond,
		KeyBindings: []bmsconfig.KeyBinding{
			{Playstyle: "7K", Lane: "P1_Key1", Key: 1},
			{Playstyle: "7K", Lane: "P1_Key2", Key: 2},
			{Playstyle: "7K", Lane: "P1_KeyS", Key: 3},
		},
		ConAxisBindings: []bmsconfig.ControllerBinding{
			{Playstyle: "7K", Lane: "P1_KeyS", GUIDHash: 0x1234, DuplicateIndex: 0, Code: 0},
		},
	}
}

func TestMapperFromKey(t *testing.T) {
	m, err := NewMapper(testConfig(), Playstyle7K)
	if err != nil {
		t.Fatal(err)
	}
	li, ok := m.FromKey(KeyCode(1), 0, true)
	if !ok {
		t.Fatal("expected bound key to translate")
	}
	if li.Lane != LaneP1Key1 || !li.Pressed {
		t.Errorf("got %+v", li)
	}

	if _, ok := m.FromKey(KeyCode(99), time.Millisecond, true); ok {
		t.Error("unbound key should not translate")
	}
}

func TestMapperDebounce(t *testing.T) {
	m, err := NewMapper(testConfig(), Playstyle7K)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.FromKey(KeyCode(1), 0, true); !ok {
		t.Fatal("first press should translate")
	}
	if _, ok := m.FromKey(KeyCode(1), 2*time.Millisecond, true); ok {
		t.Error("press within the debounce window should be suppressed")
	}
	if _, ok := m.FromKey(KeyCode(1), 10*time.Millisecond, true); !ok {
		t.Error("press past the debounce window should translate")
	}
}

func TestMapperMissingBindingsFailsLoudly(t *testing.T) {
	cfg := &bmsconfig.Config{}
	if _, err := NewMapper(cfg, Playstyle7K); err == nil {
		t.Error("expected an error when no bindings are configured for the playstyle")
	}
}

func TestTurntableDirection(t *testing.T) {
	cases := []struct {
		prev, curr float32
		want       TurntableDirection
	}{
		{0, 0.1, TurntableCW},
		{0.1, 0, TurntableCCW},
		{0.9, -0.9, TurntableCW},  // wraps the short way across the seam
		{-0.9, 0.9, TurntableCCW}, // wraps the short way the other direction
		{0.5, 0.5, TurntableNone},
	}
	for _, c := range cases {
		got := turntableDirection(c.prev, c.curr)
		if got != c.want {
			t.Errorf("turntableDirection(%v, %v) = %v, want %v", c.prev, c.curr, got, c.want)
		}
	}
}

func TestMapperAxisDirectionChangeEmitsReleaseThenPress(t *testing.T) {
	m, err := NewMapper(testConfig(), Playstyle7K)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := ControllerID{GUIDHash: 0x1234, DuplicateIndex: 0}

	out := m.SubmitAxisInput(ctrl, 0, 0, 0.2)
	if len(out) != 1 || !out[0].Pressed {
		t.Fatalf("first turn: got %+v, want a single press", out)
	}

	out = m.SubmitAxisInput(ctrl, 0, 200*time.Millisecond, -0.2)
	if len(out) != 2 || out[0].Pressed || !out[1].Pressed {
		t.Fatalf("direction reversal: got %+v, want [release, press]", out)
	}
}

func TestMapperAxisStopTimeoutEmitsRelease(t *testing.T) {
	m, err := NewMapper(testConfig(), Playstyle7K)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := ControllerID{GUIDHash: 0x1234, DuplicateIndex: 0}
	m.SubmitAxisInput(ctrl, 0, 0, 0.2)

	if out := m.FromAxisState(50 * time.Millisecond); len(out) != 0 {
		t.Errorf("before stop timeout: got %+v, want none", out)
	}
	out := m.FromAxisState(150 * time.Millisecond)
	if len(out) != 1 || out[0].Pressed {
		t.Fatalf("after stop timeout: got %+v, want a single release", out)
	}
}

package bmscore

import (
	"testing"
	"time"

	"github.com/tearbeat/bmscore/internal/bmsconfig"
)

func newTestPlayer(t *testing.T, rate uint32, now *time.Duration) (*Player, *Mixer) {
	t.Helper()
	mixer := NewMixer(rate, 0, silentLogger())
	wallNow := func() time.Duration { return *now }
	return NewPlayer(mixer, wallNow, silentLogger()), mixer
}

func newTestCursorAndMapper(t *testing.T, rate uint32, notes []Note) (*Cursor, *Mapper) {
	t.Helper()
	chart := singleLaneChart(notes)
	cursor := NewCursor(chart, rate, false)
	mapper, err := NewMapper(testConfig(), Playstyle7K)
	if err != nil {
		t.Fatal(err)
	}
	return cursor, mapper
}

func TestPlayerAddCursorRejectsSamplingRateMismatch(t *testing.T) {
	now := time.Duration(0)
	player, _ := newTestPlayer(t, 44100, &now)
	cursor, mapper := newTestCursorAndMapper(t, 22050, nil)

	if err := player.AddCursor(cursor, mapper); err == nil {
		t.Error("expected ErrSamplingRateMismatch")
	}
}

func TestPlayerHasCursorAndRemove(t *testing.T) {
	now := time.Duration(0)
	player, _ := newTestPlayer(t, testRate, &now)
	cursor, mapper := newTestCursorAndMapper(t, testRate, nil)

	if player.HasCursor(cursor) {
		t.Fatal("cursor should not be registered yet")
	}
	if err := player.AddCursor(cursor, mapper); err != nil {
		t.Fatal(err)
	}
	if !player.HasCursor(cursor) {
		t.Fatal("cursor should be registered")
	}
	player.RemoveCursor(cursor)
	if player.HasCursor(cursor) {
		t.Fatal("cursor should no longer be registered")
	}
}

func TestPlayerAudioCursorPanicsOnUnregistered(t *testing.T) {
	now := time.Duration(0)
	player, _ := newTestPlayer(t, testRate, &now)
	cursor, _ := newTestCursorAndMapper(t, testRate, nil)

	defer func() {
		if recover() == nil {
			t.Fatal("expected AudioCursor to panic on an unregistered cursor")
		}
	}()
	player.AudioCursor(cursor)
}

func TestPlayerPauseSilencesOutput(t *testing.T) {
	now := time.Duration(0)
	player, mixer := newTestPlayer(t, testRate, &now)
	notes := []Note{{Kind: NoteSimple, Timestamp: time.Second, WavSlot: 0}}
	cursor, mapper := newTestCursorAndMapper(t, testRate, notes)
	if err := player.AddCursor(cursor, mapper); err != nil {
		t.Fatal(err)
	}
	mixer.AddGenerator(player, player)

	player.Pause()
	out := make([]Sample, 10)
	mixer.Mix(out)
	for i, s := range out {
		if s.Left != 0 || s.Right != 0 {
			t.Errorf("frame %d = %+v, want silence while paused", i, s)
		}
	}
}

func TestPlayerKeysoundTriggerCreatesVoice(t *testing.T) {
	now := time.Duration(0)
	player, mixer := newTestPlayer(t, testRate, &now)

	// BGM lane notes trigger their keysound as soon as their timestamp
	// passes, independent of any input, which keeps this test from having
	// to reproduce judgment-window timing. The slot is longer than the
	// mixed buffer, so the voice is still playing when Mix returns.
	chart := &Chart{Media: Media{SamplingRate: testRate, WavSlots: [][]Sample{make([]Sample, 100)}}}
	bgm := chart.Lane(LaneBGM)
	bgm.Audible = true
	bgm.Notes = []Note{{Kind: NoteSimple, Timestamp: time.Millisecond, WavSlot: 0}}
	cursor := NewCursor(chart, testRate, false)
	mapper, err := NewMapper(testConfig(), Playstyle7K)
	if err != nil {
		t.Fatal(err)
	}
	if err := player.AddCursor(cursor, mapper); err != nil {
		t.Fatal(err)
	}
	mixer.AddGenerator(player, player)

	out := make([]Sample, 5)
	mixer.Mix(out)

	if len(player.active) == 0 {
		t.Fatal("expected a keysound voice to have been triggered")
	}
}

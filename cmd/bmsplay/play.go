package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"

	"github.com/tearbeat/bmscore"
)

// tapDuration is how long a terminal keyboard press is held before this
// demo synthesizes the matching release. atomicgo.dev/keyboard reports key
// presses only (terminal raw mode gives no key-up event), so a real key-up
// pairing isn't available here; any other UserInput source (a game
// controller, a test harness) would instead deliver independent press and
// release events, which the core already handles identically either way.
const tapDuration = 80 * time.Millisecond

// framesPerBuffer matches the teacher's fixed-size scratch buffer approach:
// one reusable allocation, sized once, reused every callback.
const framesPerBuffer = 512

// AudioPlayer owns the portaudio stream, the keyboard listener, and the
// terminal render loop driving one bmscore.Mixer/Player/Cursor/Score set.
type AudioPlayer struct {
	mixer   *bmscore.Mixer
	player  *bmscore.Player
	cursor  *bmscore.Cursor
	score   *bmscore.Score
	wallNow func() time.Duration
	noUI    bool

	stream  *portaudio.Stream
	scratch []bmscore.Sample

	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	keyboardDoneCh chan struct{}
	terminated     bool
}

// NewAudioPlayer builds an AudioPlayer. wallNow must be the same clock
// function given to bmscore.NewPlayer, so PushInput timestamps line up with
// the Player's own timer_slop anchor.
func NewAudioPlayer(mixer *bmscore.Mixer, player *bmscore.Player, cursor *bmscore.Cursor, score *bmscore.Score, noUI bool, wallNow func() time.Duration) *AudioPlayer {
	ctx, cancel := context.WithCancel(context.Background())
	return &AudioPlayer{
		mixer:          mixer,
		player:         player,
		cursor:         cursor,
		score:          score,
		wallNow:        wallNow,
		noUI:           noUI,
		ctx:            ctx,
		cancelFn:       cancel,
		keyboardDoneCh: make(chan struct{}),
	}
}

// Run drives the player end to end: open the stream, wire signal and
// keyboard handling, render until stopped, then clean up.
func (ap *AudioPlayer) Run() error {
	if err := ap.setupAudioStream(); err != nil {
		return err
	}
	ap.setupSignalHandlers()
	ap.setupKeyboardHandlers()

	if err := ap.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ap.ctx.Done():
			ap.cleanup()
			return nil
		case <-ticker.C:
			if !ap.noUI {
				ap.renderUI()
			}
		}
	}
}

func (ap *AudioPlayer) setupAudioStream() error {
	rate := float64(ap.mixer.SamplingRate())
	ap.scratch = make([]bmscore.Sample, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 2, rate, framesPerBuffer, ap.streamCallback)
	if err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}
	ap.stream = stream
	return nil
}

// streamCallback is called by PortAudio to generate audio samples: fill
// scratch via the Mixer, then interleave and scale into out.
func (ap *AudioPlayer) streamCallback(out []int16) {
	frames := len(out) / 2
	buf := ap.scratch
	if cap(buf) < frames {
		buf = make([]bmscore.Sample, frames)
	}
	buf = buf[:frames]
	ap.mixer.Mix(buf)
	for i, s := range buf {
		out[2*i] = floatToInt16(s.Left)
		out[2*i+1] = floatToInt16(s.Right)
	}
}

func floatToInt16(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

func (ap *AudioPlayer) setupSignalHandlers() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	ap.wg.Add(1)
	go func() {
		defer ap.wg.Done()
		select {
		case <-sigCh:
			ap.Stop()
		case <-ap.ctx.Done():
		}
	}()
}

func (ap *AudioPlayer) setupKeyboardHandlers() {
	ap.wg.Add(1)
	go func() {
		defer ap.wg.Done()
		defer close(ap.keyboardDoneCh)
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				ap.Stop()
				return true, nil
			}
			ap.handleKeyPress(key)
			return false, nil
		})
	}()
}

// handleKeyPress pushes a press followed by a scheduled release, the best
// approximation this terminal input source allows (see tapDuration).
func (ap *AudioPlayer) handleKeyPress(key keys.Key) {
	code := bmscore.KeyCode(key.Code)
	now := ap.wallNow()
	ap.player.PushInput(bmscore.UserInput{Kind: bmscore.InputKey, Timestamp: now, Code: code, Pressed: true})
	time.AfterFunc(tapDuration, func() {
		ap.player.PushInput(bmscore.UserInput{Kind: bmscore.InputKey, Timestamp: ap.wallNow(), Code: code, Pressed: false})
	})
}

// Stop tears the player down exactly once, however it was triggered
// (signal or keyboard escape).
func (ap *AudioPlayer) Stop() {
	ap.stopOnce.Do(func() {
		ap.cancelFn()
	})
}

func (ap *AudioPlayer) cleanup() {
	if ap.terminated {
		return
	}
	ap.terminated = true
	if ap.stream != nil {
		ap.stream.Stop()
		ap.stream.Close()
	}
	portaudio.Terminate()
	color.Unset()
	fmt.Println()
}

func (ap *AudioPlayer) renderUI() {
	for _, evt := range ap.cursor.PendingJudgmentEvents() {
		ap.score.Submit(evt)
	}

	live := ap.cursor
	if ap.player.HasCursor(ap.cursor) {
		live = ap.player.AudioCursor(ap.cursor)
	}

	fmt.Print("\033[H\033[2K")
	comboColor := color.New(color.FgGreen)
	if ap.score.Combo() == 0 {
		comboColor = color.New(color.FgWhite)
	}
	comboColor.Printf("combo %-4d  ", ap.score.Combo())
	color.New(color.FgCyan).Printf("rank %-3s  ", ap.score.Rank())
	fmt.Printf("notes %d/%d  pos %v\n", ap.score.NotesJudged(), ap.cursor.NotesJudged(), live.ProgressNS().Round(time.Millisecond))

	if j := ap.score.LatestJudgment(0); j != nil {
		ap.renderJudgment(*j)
	}
}

func (ap *AudioPlayer) renderJudgment(j bmscore.Judgment) {
	var c *color.Color
	var label string
	switch j.Type {
	case bmscore.JudgmentPGreat:
		c, label = color.New(color.FgHiYellow), "PGREAT"
	case bmscore.JudgmentGreat:
		c, label = color.New(color.FgYellow), "GREAT"
	case bmscore.JudgmentGood:
		c, label = color.New(color.FgGreen), "GOOD"
	case bmscore.JudgmentBad:
		c, label = color.New(color.FgMagenta), "BAD"
	default:
		c, label = color.New(color.FgRed), "POOR"
	}
	c.Printf("%s\n", label)
}

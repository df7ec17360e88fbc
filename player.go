package bmscore

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/tearbeat/bmscore/internal/pending"
)

// targetLUFS is the loudness every chart's playback gain is normalized
// toward (spec §4.2).
const targetLUFS = -14.0

// lateInputWarning and lateCorrectionWarning are the drift thresholds spec
// §4.2/§7 names for logging (never fatal).
const (
	lateInputWarning      = 5 * time.Millisecond
	lateCorrectionWarning = 5 * time.Millisecond
)

// ErrSamplingRateMismatch is returned by AddCursor when a chart's media
// was not resampled to the Player's device sampling rate.
var ErrSamplingRateMismatch = errors.New("bmscore: chart sampling rate does not match device sampling rate")

type playableCursor struct {
	cursor       *Cursor
	mapper       *Mapper
	gain         float32
	sampleOffset int64
}

// chanKey identifies one logical keysound voice for per-chart polyphony
// dedup: a chart, a lane, and (for BGM) a sub-counter (spec §4.3's
// "channel_id" convention).
type chanKey struct {
	chartHash [16]byte
	lane      LaneKind
	sub       uint32
}

// ActiveSound is one playing keysound voice (spec §3).
type ActiveSound struct {
	key      chanKey
	pcm      []Sample
	position int
	gain     float32
}

// Player is the Mixer generator that drives one or more Cursors from the
// audio clock, aligns cross-thread input timestamps, and mixes keysound
// voices. A Player is itself registered with a Mixer via AddGenerator.
type Player struct {
	mu      sync.Mutex
	cursors []*playableCursor
	active  []ActiveSound

	mixer        *Mixer
	samplingRate uint32
	wallNow      func() time.Duration
	logger       *log.Logger

	timerSlop        time.Duration
	samplesProcessed int64
	paused           bool

	inbound       *pending.Queue[UserInput]
	pendingInputs []UserInput
}

// NewPlayer builds a Player hosted by mixer. wallNow is the monotonic
// high-resolution clock spec §6 names as a collaborator capability; it is
// an explicit dependency, never a package global.
func NewPlayer(mixer *Mixer, wallNow func() time.Duration, logger *log.Logger) *Player {
	return &Player{
		mixer:        mixer,
		samplingRate: mixer.SamplingRate(),
		wallNow:      wallNow,
		logger:       logger,
		timerSlop:    wallNow(),
		inbound:      pending.NewQueue[UserInput](),
	}
}

// PushInput enqueues a UserInput from the input thread. This is the
// producer side of spec §4.2's input_queue() handle: the consumer side is
// internal to BeginBuffer.
func (p *Player) PushInput(in UserInput) {
	p.inbound.Push(in)
}

// AddCursor registers cursor (with its Mapper) with the Player, computing
// its playback gain from the chart's loudness relative to targetLUFS.
// Fails if the chart's media was not resampled to the Player's sampling
// rate (spec §4.2/§7: a programmer error).
func (p *Player) AddCursor(cursor *Cursor, mapper *Mapper) error {
	if cursor.Chart().Media.SamplingRate != p.samplingRate {
		return fmt.Errorf("%w: chart %d, device %d", ErrSamplingRateMismatch, cursor.Chart().Media.SamplingRate, p.samplingRate)
	}

	gain := float32(math.Pow(10, (targetLUFS-cursor.Chart().Metadata.LoudnessLUFS)/20))

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursors = append(p.cursors, &playableCursor{
		cursor:       cursor,
		mapper:       mapper,
		gain:         gain,
		sampleOffset: p.samplesProcessed,
	})
	return nil
}

// RemoveCursor detaches cursor and drops every ActiveSound belonging to
// its chart. A no-op if cursor is not registered (spec §7).
func (p *Player) RemoveCursor(cursor *Cursor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, pc := range p.cursors {
		if pc.cursor == cursor {
			p.cursors = append(p.cursors[:i], p.cursors[i+1:]...)
			break
		}
	}

	hash := cursor.Chart().MD5
	for i := 0; i < len(p.active); {
		if p.active[i].key.chartHash == hash {
			p.active[i] = p.active[len(p.active)-1]
			p.active = p.active[:len(p.active)-1]
			continue
		}
		i++
	}
}

// HasCursor reports whether cursor is currently registered. Callers must
// check this before AudioCursor, whose contract is to panic on an
// unregistered cursor (spec §7).
func (p *Player) HasCursor(cursor *Cursor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pc := range p.cursors {
		if pc.cursor == cursor {
			return true
		}
	}
	return false
}

// AudioCursor returns a by-value copy of cursor, fast-forwarded from the
// last known audio buffer boundary by the elapsed wall-clock time (clamped
// to [0, latency]) converted to samples — the rendering thread's view of
// what the user is currently hearing. Panics if cursor is not registered
// (a programmer error per spec §7); callers should check HasCursor first.
func (p *Player) AudioCursor(cursor *Cursor) *Cursor {
	p.mu.Lock()
	found := false
	for _, pc := range p.cursors {
		if pc.cursor == cursor {
			found = true
			break
		}
	}
	samplesProcessed := p.samplesProcessed
	timerSlop := p.timerSlop
	// Clone under p.mu: NextSample advances the cursor while holding it.
	var snap *Cursor
	if found {
		snap = cursor.Clone()
	}
	p.mu.Unlock()

	if !found {
		panic("bmscore: AudioCursor called on an unregistered cursor")
	}

	latency := p.mixer.Latency()
	elapsed := p.wallNow() - (timerSlop + SamplesToNS(samplesProcessed, p.samplingRate))
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > latency {
		elapsed = latency
	}

	snap.FastForward(NSToSamples(elapsed, p.samplingRate))
	return snap
}

// Pause silences next_sample output and freezes cursor advancement. Safe
// to call repeatedly.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume un-silences playback. Because NextSample advances the timer
// anchor by one sample per call while paused, resuming re-aligns without
// a jump.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// BeginBuffer is the Mixer-invoked per-buffer hook: it drains the inbound
// input queue, shifts each input's timestamp forward by the Mixer's
// latency, and corrects timerSlop toward the wall clock.
func (p *Player) BeginBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()

	latency := p.mixer.Latency()
	for _, in := range p.inbound.DrainAll() {
		in.Timestamp += latency
		p.pendingInputs = append(p.pendingInputs, in)
	}

	if p.paused {
		return
	}
	estimated := p.timerSlop + SamplesToNS(p.samplesProcessed, p.samplingRate)
	now := p.wallNow()
	diff := now - estimated
	p.timerSlop += diff
	if absDuration(diff) > lateCorrectionWarning {
		p.logger.Printf("timer correction of %v exceeds %v", diff, lateCorrectionWarning)
	}
}

// NextSample is the Mixer-invoked per-frame hook implementing spec §4.2's
// five-step algorithm.
func (p *Player) NextSample() Sample {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		p.timerSlop += SamplesToNS(1, p.samplingRate)
		return Sample{}
	}

	sampleTimestamp := p.timerSlop + SamplesToNS(p.samplesProcessed, p.samplingRate)
	p.samplesProcessed++

	var selected []UserInput
	remaining := p.pendingInputs[:0]
	for _, in := range p.pendingInputs {
		if in.Timestamp <= sampleTimestamp {
			if sampleTimestamp-in.Timestamp > lateInputWarning {
				p.logger.Printf("input timestamped %v processed %v late", in.Timestamp, sampleTimestamp-in.Timestamp)
			}
			selected = append(selected, in)
		} else {
			remaining = append(remaining, in)
		}
	}
	p.pendingInputs = remaining

	var sum Sample
	for _, pc := range p.cursors {
		laneInputs := p.translate(pc, selected, sampleTimestamp)
		chartHash := pc.cursor.Chart().MD5
		gain := pc.gain
		sink := func(t KeysoundTrigger) {
			p.trigger(chartHash, gain, t)
		}
		pc.cursor.AdvanceOneSample(sink, laneInputs)
	}

	for i := 0; i < len(p.active); {
		a := &p.active[i]
		s := a.pcm[a.position]
		sum.Left += s.Left * a.gain
		sum.Right += s.Right * a.gain
		a.position++
		if a.position >= len(a.pcm) {
			p.active[i] = p.active[len(p.active)-1]
			p.active = p.active[:len(p.active)-1]
			continue
		}
		i++
	}

	return sum
}

// translate converts the sample's selected UserInputs into pc's own
// LaneInput language via its Mapper, plus any axis-state-derived releases
// (turntable stop timeout), per spec §4.4.
func (p *Player) translate(pc *playableCursor, inputs []UserInput, now time.Duration) []LaneInput {
	var out []LaneInput
	for _, in := range inputs {
		switch in.Kind {
		case InputKey:
			if li, ok := pc.mapper.FromKey(in.Code, now, in.Pressed); ok {
				out = append(out, li)
			}
		case InputButton:
			if li, ok := pc.mapper.FromButton(in.Controller, in.Button, now, in.Pressed); ok {
				out = append(out, li)
			}
		case InputAxis:
			out = append(out, pc.mapper.SubmitAxisInput(in.Controller, in.Axis, now, in.Value)...)
		}
	}
	out = append(out, pc.mapper.FromAxisState(now)...)
	return out
}

// trigger handles one KeysoundTrigger hint from a Cursor: create a new
// ActiveSound, or reset position to 0 on an existing one with the same
// (chartHash, channel) identity (spec §8 invariant 4).
func (p *Player) trigger(chartHash [16]byte, gain float32, t KeysoundTrigger) {
	key := chanKey{chartHash: chartHash, lane: t.Lane, sub: t.Sub}
	for i := range p.active {
		if p.active[i].key == key {
			p.active[i].position = 0
			return
		}
	}

	for _, pc := range p.cursors {
		if pc.cursor.Chart().MD5 != chartHash {
			continue
		}
		if !pc.cursor.Chart().Media.HasAudio(t.WavSlot) {
			return
		}
		p.active = append(p.active, ActiveSound{
			key:      key,
			pcm:      pc.cursor.Chart().Media.WavSlots[t.WavSlot],
			position: 0,
			gain:     gain,
		})
		return
	}
}

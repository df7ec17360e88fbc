package bmscore

import (
	"log"
	"sync"
	"time"

	"github.com/tearbeat/bmscore/internal/limiter"
)

// Sample is one stereo frame.
type Sample struct {
	Left, Right float32
}

// limiterLookaheadPad accounts for the Limiter's fixed internal lookahead
// delay when the Mixer reports its overall latency to callers (spec §4.1).
const limiterLookaheadPad = 1 * time.Millisecond

const (
	limiterAttack  = 1 * time.Millisecond
	limiterHold    = 10 * time.Millisecond
	limiterRelease = 100 * time.Millisecond
	limiterOutput  = 1.0
)

// Generator is a realtime audio source the Mixer hosts. BeginBuffer is
// called once per device callback; NextSample is called once per frame
// within that buffer.
type Generator interface {
	BeginBuffer()
	NextSample() Sample
}

// Mixer owns exactly one audio device's output stream, summing registered
// Generators under a hard limiter (spec §4.1). Registration and removal
// are expected only at startup, shutdown, and song loads — Mix (the
// realtime path) acquires the same guard, but it is uncontended in steady
// state.
type Mixer struct {
	mu            sync.Mutex
	order         []any
	generators    map[any]Generator
	samplingRate  uint32
	deviceLatency time.Duration
	limiter       *limiter.Limiter
	logger        *log.Logger
}

// NewMixer builds a Mixer for a device running at samplingRate with the
// given reported deviceLatency. logger receives the warnings spec §7
// names; it must not be nil (pass log.New(io.Discard, "", 0) to silence).
func NewMixer(samplingRate uint32, deviceLatency time.Duration, logger *log.Logger) *Mixer {
	return &Mixer{
		generators:    make(map[any]Generator),
		samplingRate:  samplingRate,
		deviceLatency: deviceLatency,
		limiter: limiter.New(
			samplingRate,
			int(NSToSamples(limiterAttack, samplingRate)),
			int(NSToSamples(limiterHold, samplingRate)),
			int(NSToSamples(limiterRelease, samplingRate)),
			limiterOutput,
		),
		logger: logger,
	}
}

// AddGenerator associates id (a stable, comparable identity — typically a
// pointer) with g. Succeeds unconditionally.
func (m *Mixer) AddGenerator(id any, g Generator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.generators[id]; !exists {
		m.order = append(m.order, id)
	}
	m.generators[id] = g
}

// RemoveGenerator detaches the generator registered under id, if any. The
// caller must ensure g outlives any in-flight callback; acquiring the same
// guard the callback uses provides this.
func (m *Mixer) RemoveGenerator(id any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.generators[id]; !exists {
		return
	}
	delete(m.generators, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Latency returns device latency plus the limiter's fixed lookahead pad.
func (m *Mixer) Latency() time.Duration {
	return m.deviceLatency + limiterLookaheadPad
}

// SamplingRate returns the sampling rate the Mixer (and its device) run
// at.
func (m *Mixer) SamplingRate() uint32 { return m.samplingRate }

// Mix fills out with one device buffer's worth of frames: begin_buffer is
// called once per generator, then next_sample once per generator per
// frame, summed and passed through the limiter. If no generators are
// registered, out is filled with silence. An uncaught panic from a
// generator is recovered here and logged, and the buffer is filled with
// silence instead of propagating across the device callback boundary
// (spec §7: "Audio-thread exceptions must be caught at the Mixer
// boundary ... puts the device into silence").
func (m *Mixer) Mix(out []Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mixLocked(out) {
		return
	}
	for i := range out {
		out[i] = Sample{}
	}
}

// mixLocked performs the actual mixing under m.mu and reports whether it
// completed without panicking. On panic, out is left in a partially
// written state and the caller fills it with silence.
func (m *Mixer) mixLocked(out []Sample) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.logger.Printf("generator panic recovered, buffer silenced: %v", r)
		}
	}()

	if len(m.order) == 0 {
		for i := range out {
			out[i] = Sample{}
		}
		return true
	}

	gens := make([]Generator, len(m.order))
	for i, id := range m.order {
		gens[i] = m.generators[id]
		gens[i].BeginBuffer()
	}

	for i := range out {
		var sum Sample
		for _, g := range gens {
			s := g.NextSample()
			sum.Left += s.Left
			sum.Right += s.Right
		}
		limited := m.limiter.Process(limiter.Sample{Left: sum.Left, Right: sum.Right})
		out[i] = Sample{Left: limited.Left, Right: limited.Right}
	}
	return true
}

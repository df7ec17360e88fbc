// Package limiter implements a lookahead peak limiter for stereo sample
// streams. No repository in the reference pack wires in a DSP/limiter
// library (the original engine's signalsmith-based limiter has no Go
// equivalent anywhere in the pack), so this is written by hand against
// stdlib math, in the spirit of the teacher's internal/comb package: a
// small, stateful, single-purpose filter fed one frame/block at a time.
package limiter

import "math"

// Sample is a stereo frame.
type Sample struct {
	Left, Right float32
}

// Limiter holds lookahead delay-line state for one stereo stream. It is
// configured once at construction (spec §4.1: attack, hold, release,
// output_limit) and then processes one frame at a time.
type Limiter struct {
	outputLimit float32

	attackSamples  int
	holdSamples    int
	releaseSamples int

	delay     []Sample
	delayPos  int
	envelope  float32 // current gain reduction envelope, 1.0 = no reduction
	holdLeft  int
}

// New builds a Limiter for samplingRate, with attack/hold/release
// durations expressed in samples (callers convert from time.Duration at
// the sampling rate in effect). outputLimit is the hard ceiling on
// |sample| (spec default 1.0).
func New(samplingRate uint32, attackSamples, holdSamples, releaseSamples int, outputLimit float32) *Limiter {
	if attackSamples < 1 {
		attackSamples = 1
	}
	return &Limiter{
		outputLimit:    outputLimit,
		attackSamples:  attackSamples,
		holdSamples:    holdSamples,
		releaseSamples: releaseSamples,
		delay:          make([]Sample, attackSamples),
		envelope:       1.0,
	}
}

// Delay returns the limiter's fixed internal lookahead, in samples. The
// Mixer folds this into its reported device latency.
func (l *Limiter) Delay() int { return len(l.delay) }

// Process runs one stereo frame through the limiter, returning the delayed,
// gain-reduced output. Bounded internal delay equals the configured attack
// time (spec §4.1's "bounded internal delay ≤ attack time").
func (l *Limiter) Process(in Sample) Sample {
	peak := float32(math.Max(math.Abs(float64(in.Left)), math.Abs(float64(in.Right))))

	targetGain := float32(1.0)
	if peak > l.outputLimit {
		targetGain = l.outputLimit / peak
	}

	if targetGain < l.envelope {
		// Attack: clamp down fast enough to fully engage within
		// attackSamples.
		step := (1.0 - targetGain) / float32(l.attackSamples)
		l.envelope -= step
		if l.envelope < targetGain {
			l.envelope = targetGain
		}
		l.holdLeft = l.holdSamples
	} else if l.holdLeft > 0 {
		l.holdLeft--
	} else if l.envelope < 1.0 {
		step := float32(1.0) / float32(l.releaseSamples)
		l.envelope += step
		if l.envelope > 1.0 {
			l.envelope = 1.0
		}
	}

	out := l.delay[l.delayPos]
	l.delay[l.delayPos] = in
	l.delayPos = (l.delayPos + 1) % len(l.delay)

	out.Left *= l.envelope
	out.Right *= l.envelope
	out.Left = clamp(out.Left, l.outputLimit)
	out.Right = clamp(out.Right, l.outputLimit)
	return out
}

func clamp(v, limit float32) float32 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

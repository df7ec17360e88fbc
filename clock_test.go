package bmscore

import (
	"testing"
	"time"
)

func TestSamplesToNSZero(t *testing.T) {
	if got := SamplesToNS(0, 44100); got != 0 {
		t.Errorf("SamplesToNS(0, 44100) = %v, want 0", got)
	}
}

func TestNSToSamplesRoundTrip(t *testing.T) {
	rates := []uint32{44100, 48000, 96000, 8000, 22050}
	for _, rate := range rates {
		for n := int64(0); n < 5000; n += 37 {
			ns := SamplesToNS(n, rate)
			got := NSToSamples(ns, rate)
			if got != n {
				t.Errorf("rate %d: NSToSamples(SamplesToNS(%d)) = %d, want %d", rate, n, got, n)
			}
		}
	}
}

func TestSamplesToNSMonotonic(t *testing.T) {
	const rate = 44100
	prev := SamplesToNS(0, rate)
	for n := int64(1); n < 1000; n++ {
		cur := SamplesToNS(n, rate)
		if cur < prev {
			t.Fatalf("SamplesToNS not monotonic at n=%d: %v < %v", n, cur, prev)
		}
		prev = cur
	}
}

func TestNSToSamplesRounding(t *testing.T) {
	// At 2 Hz, one sample is exactly 500ms. 501ms is 1.002 samples and rounds to sample 1.
	if got := NSToSamples(501*time.Millisecond, 2); got != 1 {
		t.Errorf("NSToSamples(501ms, 2) = %d, want 1", got)
	}
	// 250ms is exactly half a sample at 2 Hz; ties round up.
	if got := NSToSamples(250*time.Millisecond, 2); got != 1 {
		t.Errorf("NSToSamples(250ms, 2) = %d, want 1", got)
	}
	if got := NSToSamples(249*time.Millisecond, 2); got != 0 {
		t.Errorf("NSToSamples(249ms, 2) = %d, want 0", got)
	}
}

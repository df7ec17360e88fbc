package limiter

import "testing"

func TestLimiterPassesQuietSignalThrough(t *testing.T) {
	l := New(44100, 44, 441, 4410, 1.0)
	// A frame reaches the output Delay() calls after it goes in.
	l.Process(Sample{Left: 0.1, Right: -0.1})
	for i := 1; i < l.Delay(); i++ {
		l.Process(Sample{})
	}
	out := l.Process(Sample{})
	if out.Left != 0.1 || out.Right != -0.1 {
		t.Errorf("got %+v, want the input unchanged (below outputLimit)", out)
	}
}

func TestLimiterBoundsLoudSignal(t *testing.T) {
	l := New(44100, 44, 441, 4410, 1.0)
	var maxAbs float32
	for i := 0; i < 10000; i++ {
		out := l.Process(Sample{Left: 5.0, Right: -5.0})
		if a := abs32(out.Left); a > maxAbs {
			maxAbs = a
		}
		if a := abs32(out.Right); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs > 1.0001 {
		t.Errorf("max |output| = %v, want <= 1.0", maxAbs)
	}
}

func TestLimiterDelayMatchesAttackSamples(t *testing.T) {
	l := New(44100, 50, 10, 10, 1.0)
	if got := l.Delay(); got != 50 {
		t.Errorf("Delay() = %d, want 50", got)
	}
}

func TestLimiterReleasesAfterTransient(t *testing.T) {
	l := New(44100, 10, 5, 100, 1.0)
	for i := 0; i < 20; i++ {
		l.Process(Sample{Left: 3.0, Right: 3.0})
	}
	// After the hold+release window, quiet input should pass through at
	// (or very near) unity gain again.
	for i := 0; i < 200; i++ {
		l.Process(Sample{})
	}
	l.Process(Sample{Left: 0.2, Right: 0.2})
	for i := 1; i < l.Delay(); i++ {
		l.Process(Sample{})
	}
	out := l.Process(Sample{})
	if out.Left < 0.19 {
		t.Errorf("gain has not released: got %v, want close to 0.2", out.Left)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

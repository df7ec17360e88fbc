package bmscore

import "time"

// Judgment window thresholds, per spec §4.5 / original_source's score.hpp.
const (
	PGreatWindow   = 18 * time.Millisecond
	GreatWindow    = 36 * time.Millisecond
	GoodWindow     = 120 * time.Millisecond
	BadWindow      = 240 * time.Millisecond
	LNEarlyRelease = 120 * time.Millisecond
)

// JudgmentType is the discrete classification of a player action against a
// note.
type JudgmentType int

const (
	JudgmentPGreat JudgmentType = iota
	JudgmentGreat
	JudgmentGood
	JudgmentBad
	JudgmentPoor
	judgmentTypeCount
)

// Timing classifies a Judgment relative to the note's timestamp.
type Timing int

const (
	TimingNone Timing = iota
	TimingEarly
	TimingOnTime
	TimingLate
	timingCount
)

// EventKind discriminates a JudgmentEvent's subject.
type EventKind int

const (
	EventNote EventKind = iota
	EventLN
	EventLNStart
)

// JudgmentEvent is emitted by a Cursor's advance loop and consumed by
// Score.Submit. Timing is nil for a miss; ReleaseTiming is only meaningful
// on an EventLN.
type JudgmentEvent struct {
	Kind          EventKind
	Lane          LaneKind
	Timestamp     time.Duration
	Timing        *time.Duration
	ReleaseTiming *time.Duration
}

// Judgment is the classified outcome of one JudgmentEvent.
type Judgment struct {
	Type      JudgmentType
	Timing    Timing
	Timestamp time.Duration
}

// Rank is a coarse letter grade computed from accuracy.
type Rank int

const (
	RankAAA Rank = iota
	RankAA
	RankA
	RankB
	RankC
	RankD
	RankE
	RankF
)

func (r Rank) String() string {
	switch r {
	case RankAAA:
		return "AAA"
	case RankAA:
		return "AA"
	case RankA:
		return "A"
	case RankB:
		return "B"
	case RankC:
		return "C"
	case RankD:
		return "D"
	case RankE:
		return "E"
	default:
		return "F"
	}
}

// JudgeTotals is a point-in-time snapshot of Score's per-JudgmentType and
// per-Timing counters, for a render/control-thread results view.
type JudgeTotals struct {
	Types   [judgmentTypeCount]int
	Timings [timingCount]int
}

// Score accumulates JudgmentEvents into totals, combo, and rank. Score is
// not safe for concurrent use; the render/control thread that owns a
// Cursor's judgment events also owns its Score.
type Score struct {
	totals         JudgeTotals
	combo          int
	maxCombo       int
	score          int
	notesJudged    int
	latestJudgment [2]*Judgment
}

// NewScore returns a zeroed Score.
func NewScore() *Score {
	return &Score{}
}

// Submit classifies a JudgmentEvent and folds it into the running totals,
// per spec §4.5.
func (s *Score) Submit(evt JudgmentEvent) Judgment {
	if evt.Kind == EventLNStart {
		// Informational only: an LN head hit doesn't resolve a note, so it
		// never affects totals, combo, or score.
		return Judgment{Type: JudgmentPGreat, Timing: TimingOnTime, Timestamp: evt.Timestamp}
	}

	j := classify(evt)

	s.totals.Types[j.Type]++
	s.totals.Timings[j.Timing]++
	s.notesJudged++

	switch j.Type {
	case JudgmentPGreat:
		s.score += 2
	case JudgmentGreat:
		s.score += 1
	}

	if j.Type == JudgmentPoor || j.Type == JudgmentBad {
		s.combo = 0
	} else {
		s.combo++
		if s.combo > s.maxCombo {
			s.maxCombo = s.combo
		}
	}

	side := evt.Lane.Side()
	s.latestJudgment[side] = &j

	return j
}

func classify(evt JudgmentEvent) Judgment {
	miss := evt.Timing == nil
	if evt.Kind == EventLN && evt.ReleaseTiming != nil && *evt.ReleaseTiming < -LNEarlyRelease {
		miss = true
	}

	if miss {
		return Judgment{Type: JudgmentPoor, Timing: TimingNone, Timestamp: evt.Timestamp}
	}

	abs := *evt.Timing
	if abs < 0 {
		abs = -abs
	}

	var typ JudgmentType
	switch {
	case abs <= PGreatWindow:
		typ = JudgmentPGreat
	case abs <= GreatWindow:
		typ = JudgmentGreat
	case abs <= GoodWindow:
		typ = JudgmentGood
	default:
		typ = JudgmentBad
	}

	var timing Timing
	switch {
	case typ == JudgmentPGreat:
		timing = TimingOnTime
	case *evt.Timing < 0:
		timing = TimingEarly
	default:
		timing = TimingLate
	}

	return Judgment{Type: typ, Timing: timing, Timestamp: evt.Timestamp}
}

// Combo returns the current combo count.
func (s *Score) Combo() int { return s.combo }

// MaxCombo returns the highest combo reached so far.
func (s *Score) MaxCombo() int { return s.maxCombo }

// NotesJudged returns the number of notes judged so far; submitted
// EventLNStart events are not counted.
func (s *Score) NotesJudged() int { return s.notesJudged }

// RawScore returns the accumulated score points (PGreat=2, Great=1).
func (s *Score) RawScore() int { return s.score }

// Totals returns a copy of the per-JudgmentType and per-Timing counters.
func (s *Score) Totals() JudgeTotals { return s.totals }

// LatestJudgment returns the most recent Judgment for the given side (0 =
// P1, 1 = P2), or nil if none has been submitted yet.
func (s *Score) LatestJudgment(side int) *Judgment { return s.latestJudgment[side] }

// Rank computes the current letter grade from accumulated accuracy.
func (s *Score) Rank() Rank {
	if s.notesJudged == 0 {
		return RankAAA
	}
	acc := float64(s.score) / float64(s.notesJudged*2)
	switch {
	case acc >= 8.0/9.0:
		return RankAAA
	case acc >= 7.0/9.0:
		return RankAA
	case acc >= 6.0/9.0:
		return RankA
	case acc >= 5.0/9.0:
		return RankB
	case acc >= 4.0/9.0:
		return RankC
	case acc >= 3.0/9.0:
		return RankD
	case acc >= 2.0/9.0:
		return RankE
	default:
		return RankF
	}
}

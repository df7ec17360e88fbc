package bmscore

import "time"

// Playstyle is the closed enumeration of supported controller layouts.
type Playstyle int

const (
	Playstyle5K Playstyle = iota
	Playstyle7K
	Playstyle9K
	Playstyle10K
	Playstyle14K
)

// LaneKind is the closed enumeration of the 18 lane kinds a Chart's
// Timeline may carry.
type LaneKind int

const (
	LaneP1Key1 LaneKind = iota
	LaneP1Key2
	LaneP1Key3
	LaneP1Key4
	LaneP1Key5
	LaneP1Key6
	LaneP1Key7
	LaneP1KeyS
	LaneP2Key1
	LaneP2Key2
	LaneP2Key3
	LaneP2Key4
	LaneP2Key5
	LaneP2Key6
	LaneP2Key7
	LaneP2KeyS
	LaneBGM
	LaneMeasureLine
	laneKindCount
)

// Side returns 0 for P1 lanes and BGM/measure lanes, 1 for P2 lanes. Score
// uses this to bucket latest_judgment per side.
func (k LaneKind) Side() int {
	if k >= LaneP2Key1 && k <= LaneP2KeyS {
		return 1
	}
	return 0
}

// NoteKind distinguishes a Simple tap from a long note.
type NoteKind int

const (
	NoteSimple NoteKind = iota
	NoteLN
)

// Note is a tagged variant: Kind selects whether Length/Height are
// meaningful. Timestamp is chart-relative.
type Note struct {
	Kind      NoteKind
	Timestamp time.Duration
	YPos      float64
	WavSlot   int

	Length time.Duration // LN only
	Height float64       // LN only
}

// EndTimestamp is the timestamp a note is considered fully resolved at:
// the note's own timestamp for Simple notes, the tail for LN notes.
func (n Note) EndTimestamp() time.Duration {
	if n.Kind == NoteLN {
		return n.Timestamp + n.Length
	}
	return n.Timestamp
}

// Lane holds one lane-kind's notes, sorted by Timestamp ascending, plus the
// three independent booleans spec §3 names.
type Lane struct {
	Notes    []Note
	Playable bool
	Visible  bool
	Audible  bool
}

// BPMChange is one point in a Timeline's tempo map, sorted by Position
// ascending; the first element has Position >= 0.
type BPMChange struct {
	Position    time.Duration
	BPM         float64
	YPos        float64
	ScrollSpeed float64
}

// BPMRange summarizes a chart's tempo extremes, used only for display.
type BPMRange struct {
	Initial float64
	Min     float64
	Max     float64
	Main    float64
}

// Features records structural facts about a chart that change how it is
// judged or rendered (e.g. whether LN handling applies at all).
type Features struct {
	HasLN     bool
	HasSoflan bool
}

// Metadata carries the descriptive, non-timeline facts about a Chart.
type Metadata struct {
	Title          string
	Artist         string
	Playstyle      Playstyle
	Features       Features
	NoteCount      int
	ChartDuration  time.Duration
	AudioDuration  time.Duration
	LoudnessLUFS   float64
	Density        float64
	NPS            float64
	BPMRange       BPMRange
}

// Timeline is a Chart's playable content: one Lane per LaneKind plus the
// tempo map.
type Timeline struct {
	Lanes       [laneKindCount]Lane
	BPMSections []BPMChange
}

// Media holds the chart's keysound slot table: each slot is PCM already
// resampled to the device sampling rate. A nil or empty slot is a valid,
// silent keysound (spec §7: "Empty keysound slot ... silently skip").
type Media struct {
	SamplingRate uint32
	WavSlots     [][]Sample // stereo PCM per slot, pre-resampled to SamplingRate
}

// HasAudio reports whether slot is a valid, non-empty keysound. Callers
// must silently skip triggering a slot that fails this check (spec §7).
func (m *Media) HasAudio(slot int) bool {
	return slot >= 0 && slot < len(m.WavSlots) && len(m.WavSlots[slot]) > 0
}

// Chart is the immutable, shared-by-readers input to the playback core.
// Callers must treat a Chart as read-only for as long as any Cursor or
// Player references it.
type Chart struct {
	MD5      [16]byte
	Metadata Metadata
	Timeline Timeline
	Media    Media
}

// Lane returns the Lane for the given kind.
func (c *Chart) Lane(kind LaneKind) *Lane {
	return &c.Timeline.Lanes[kind]
}

// BPMSectionAt locates the last BPMChange with Position <= timestamp. It
// returns false if the chart has no BPM sections at or before timestamp
// (which cannot happen for a well-formed chart, since §3 requires the
// first section's Position to be >= 0, but a caller may still query before
// sample_progress == 0 via a negative offset).
func (tl *Timeline) BPMSectionAt(timestamp time.Duration) (BPMChange, bool) {
	var found BPMChange
	ok := false
	for _, sec := range tl.BPMSections {
		if sec.Position > timestamp {
			break
		}
		found = sec
		ok = true
	}
	return found, ok
}

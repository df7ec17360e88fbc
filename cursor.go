package bmscore

import (
	"reflect"
	"time"

	goclone "github.com/huandu/go-clone"
	clone "github.com/huandu/go-clone/generic"

	"github.com/tearbeat/bmscore/internal/pending"
)

func init() {
	// The Chart a Cursor points to is immutable and shared by many
	// Cursors; a snapshot clone must keep pointing at the same Chart
	// rather than duplicating its media table.
	goclone.MarkAsOpaquePointer(reflect.TypeOf((*Chart)(nil)))
}

// LaneProgress is one lane's note-progress state machine.
type LaneProgress struct {
	NextNote   int
	LNTiming   *time.Duration
	Pressed    bool
	ActiveSlot int // -1 when the lane has no notes left
}

// KeysoundTrigger is the hint a Cursor's advance loop delivers to a
// TriggerSink when a note resolves on an audible lane.
type KeysoundTrigger struct {
	Lane    LaneKind
	Sub     uint32 // dedup key within Lane: 0 for per-lane voices, a counter for BGM
	WavSlot int
}

// TriggerSink receives KeysoundTrigger hints during advance_one_sample. A
// nil sink is valid and simply discards triggers (used by fast-forward).
type TriggerSink func(KeysoundTrigger)

// UpcomingNote is one entry from Cursor.UpcomingNotes, used by rendering.
type UpcomingNote struct {
	Note     Note
	Lane     LaneKind
	LaneIdx  int
	Distance float64
}

// Cursor is the per-chart, single-writer state machine that advances note
// progress one sample at a time, producing keysound triggers and judgment
// events. Cursor is not safe for concurrent use; it is exclusively owned
// by the Player it's registered with, except for snapshots returned by
// Player.AudioCursor.
type Cursor struct {
	chart        *Chart
	autoplay     bool
	samplingRate uint32

	sampleProgress int64
	notesJudged    int
	laneProgress   [laneKindCount]LaneProgress
	bgmCounter     [laneKindCount]uint32

	judgmentEvents *pending.Queue[JudgmentEvent]
}

// NewCursor creates a Cursor for chart. autoplay makes every playable lane
// resolve automatically at each note's timestamp instead of waiting for
// player input (spec §8 S4's "on autoplay" scenario).
func NewCursor(chart *Chart, samplingRate uint32, autoplay bool) *Cursor {
	c := &Cursor{
		chart:          chart,
		autoplay:       autoplay,
		samplingRate:   samplingRate,
		judgmentEvents: pending.NewQueue[JudgmentEvent](),
	}
	for i := range c.laneProgress {
		c.laneProgress[i].ActiveSlot = -1
		lane := &chart.Timeline.Lanes[i]
		if len(lane.Notes) > 0 {
			c.laneProgress[i].ActiveSlot = lane.Notes[0].WavSlot
		}
	}
	return c
}

// Progress returns the cursor's position in samples.
func (c *Cursor) Progress() int64 { return c.sampleProgress }

// ProgressNS returns the cursor's position in nanoseconds.
func (c *Cursor) ProgressNS() time.Duration {
	return SamplesToNS(c.sampleProgress, c.samplingRate)
}

// NotesJudged returns the number of playable notes resolved so far.
func (c *Cursor) NotesJudged() int { return c.notesJudged }

// Chart returns the chart this cursor is attached to.
func (c *Cursor) Chart() *Chart { return c.chart }

// PendingJudgmentEvents drains and returns every judgment event produced
// since the last call, in emission order (spec §4.3: "a lazy, finite,
// non-restartable sequence").
func (c *Cursor) PendingJudgmentEvents() []JudgmentEvent {
	return c.judgmentEvents.DrainAll()
}

// AdvanceOneSample progresses the cursor by exactly one sample, applying
// inputs and reporting keysound triggers through sink. Returns false once
// the chart has ended: every playable note judged (the Player additionally
// tracks outstanding ActiveSound voices before fully retiring a cursor).
func (c *Cursor) AdvanceOneSample(sink TriggerSink, inputs []LaneInput) bool {
	if sink == nil {
		sink = func(KeysoundTrigger) {}
	}

	c.sampleProgress++
	now := SamplesToNS(c.sampleProgress, c.samplingRate)

	// Step 2: apply input transitions, firing LN releases immediately.
	for _, in := range inputs {
		lp := &c.laneProgress[in.Lane]
		if in.Pressed {
			lp.Pressed = true
			continue
		}
		lp.Pressed = false
		if lp.LNTiming != nil {
			c.resolveLNRelease(in.Lane, now, *lp.LNTiming, now-tailOf(c.chart.Lane(in.Lane), lp.NextNote))
		}
	}

	// Step 3: per-lane scan, in lane-index order.
	for idx := range c.laneProgress {
		lane := c.chart.Lane(LaneKind(idx))
		lp := &c.laneProgress[idx]
		if lp.NextNote >= len(lane.Notes) {
			continue
		}
		note := lane.Notes[lp.NextNote]

		if !lane.Playable {
			c.advanceNonPlayable(LaneKind(idx), lane, lp, note, now, sink)
			continue
		}

		pressed := lp.Pressed || (c.autoplay && now >= note.Timestamp)

		switch note.Kind {
		case NoteSimple:
			c.advanceSimplePlayable(LaneKind(idx), lane, lp, note, now, pressed, sink)
		case NoteLN:
			c.advanceLNPlayable(LaneKind(idx), lane, lp, note, now, pressed, sink)
		}
	}

	return c.notesJudged < c.chart.Metadata.NoteCount
}

func (c *Cursor) advanceNonPlayable(kind LaneKind, lane *Lane, lp *LaneProgress, note Note, now time.Duration, sink TriggerSink) {
	if now < note.Timestamp {
		return
	}
	lp.NextNote++
	if lp.NextNote < len(lane.Notes) {
		lp.ActiveSlot = lane.Notes[lp.NextNote].WavSlot
	} else {
		lp.ActiveSlot = -1
	}
	if lane.Audible && c.chart.Media.HasAudio(note.WavSlot) {
		sub := c.bgmCounter[kind]
		c.bgmCounter[kind]++
		sink(KeysoundTrigger{Lane: kind, Sub: sub, WavSlot: note.WavSlot})
	}
}

func (c *Cursor) advanceSimplePlayable(kind LaneKind, lane *Lane, lp *LaneProgress, note Note, now time.Duration, pressed bool, sink TriggerSink) {
	diff := now - note.Timestamp
	hit := pressed && absDuration(diff) <= BadWindow
	missed := !hit && now > note.Timestamp+BadWindow
	if !hit && !missed {
		return
	}

	timing := diff
	evt := JudgmentEvent{Kind: EventNote, Lane: kind, Timestamp: now}
	if hit {
		evt.Timing = &timing
	}
	c.judgmentEvents.Push(evt)
	c.notesJudged++

	lp.NextNote++
	if lp.NextNote < len(lane.Notes) {
		lp.ActiveSlot = lane.Notes[lp.NextNote].WavSlot
	} else {
		lp.ActiveSlot = -1
	}
	if lane.Audible && c.chart.Media.HasAudio(note.WavSlot) {
		sink(KeysoundTrigger{Lane: kind, Sub: 0, WavSlot: note.WavSlot})
	}
}

func (c *Cursor) advanceLNPlayable(kind LaneKind, lane *Lane, lp *LaneProgress, note Note, now time.Duration, pressed bool, sink TriggerSink) {
	tail := note.Timestamp + note.Length

	if lp.LNTiming == nil {
		diff := now - note.Timestamp
		hit := pressed && absDuration(diff) <= BadWindow
		missedHead := !hit && now > note.Timestamp+BadWindow
		if hit {
			lp.LNTiming = &diff
			c.judgmentEvents.Push(JudgmentEvent{Kind: EventLNStart, Lane: kind, Timestamp: now, Timing: &diff})
			if lane.Audible && c.chart.Media.HasAudio(note.WavSlot) {
				sink(KeysoundTrigger{Lane: kind, Sub: 0, WavSlot: note.WavSlot})
			}
			return
		}
		if missedHead {
			c.judgmentEvents.Push(JudgmentEvent{Kind: EventLN, Lane: kind, Timestamp: now})
			c.notesJudged++
			lp.NextNote++
			if lp.NextNote < len(lane.Notes) {
				lp.ActiveSlot = lane.Notes[lp.NextNote].WavSlot
			} else {
				lp.ActiveSlot = -1
			}
		}
		return
	}

	// Holding: autoplay releases at the tail; otherwise force a miss if the
	// release deadline has passed without a release having been processed
	// in step 2.
	if c.autoplay && now >= tail {
		c.resolveLNRelease(kind, now, *lp.LNTiming, now-tail)
		return
	}
	if now > tail+BadWindow {
		c.resolveLNRelease(kind, now, *lp.LNTiming, now-tail)
	}
}

// resolveLNRelease emits the LN release judgment and advances NextNote. A
// release up to tail+BadWindow carries both the head timing and
// release_timing; Score treats an early release beyond LNEarlyRelease as a
// miss. A release past tail+BadWindow (the forced miss from the per-lane
// scan) carries neither Timing nor ReleaseTiming, so it is unconditionally
// a miss.
func (c *Cursor) resolveLNRelease(kind LaneKind, now time.Duration, headTiming time.Duration, releaseTiming time.Duration) {
	lane := c.chart.Lane(kind)
	lp := &c.laneProgress[kind]
	if lp.NextNote >= len(lane.Notes) {
		return
	}
	note := lane.Notes[lp.NextNote]
	tail := note.Timestamp + note.Length

	evt := JudgmentEvent{Kind: EventLN, Lane: kind, Timestamp: now}
	if now <= tail+BadWindow {
		ht := headTiming
		rt := releaseTiming
		evt.Timing = &ht
		evt.ReleaseTiming = &rt
	}
	c.judgmentEvents.Push(evt)
	c.notesJudged++

	lp.LNTiming = nil
	lp.NextNote++
	if lp.NextNote < len(lane.Notes) {
		lp.ActiveSlot = lane.Notes[lp.NextNote].WavSlot
	} else {
		lp.ActiveSlot = -1
	}
}

func tailOf(lane *Lane, idx int) time.Duration {
	if idx >= len(lane.Notes) {
		return 0
	}
	n := lane.Notes[idx]
	return n.Timestamp + n.Length
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Seek recomputes per-lane progress for an arbitrary sample position,
// clearing all held-LN and pressed state. It is the only way to move a
// Cursor's position other than one sample at a time.
func (c *Cursor) Seek(samplePosition int64) {
	c.sampleProgress = samplePosition
	progressNS := c.ProgressNS()

	for idx := range c.laneProgress {
		lane := c.chart.Lane(LaneKind(idx))
		lp := &c.laneProgress[idx]

		firstUnplayed := len(lane.Notes)
		for i, n := range lane.Notes {
			if n.EndTimestamp() > progressNS {
				firstUnplayed = i
				break
			}
		}

		lp.NextNote = firstUnplayed
		lp.LNTiming = nil
		lp.Pressed = false

		if firstUnplayed == len(lane.Notes) {
			lp.ActiveSlot = -1
			continue
		}

		lp.ActiveSlot = lane.Notes[firstUnplayed].WavSlot
	}
}

// SeekRelative moves the cursor by sampleOffset samples. Negative offsets,
// or any offset while autoplay is set, seek directly; a negative offset in
// autoplay is not rejected. Non-negative offsets in judgeable mode instead
// replay forward one sample at a time with no inputs and no keysound sink,
// for deterministic replay identical to real-time playback.
func (c *Cursor) SeekRelative(sampleOffset int64) {
	if sampleOffset < 0 || c.autoplay {
		c.Seek(c.sampleProgress + sampleOffset)
		return
	}
	c.FastForward(sampleOffset)
}

// FastForward silently advances the cursor by n samples with no inputs and
// no keysound sink, used by SeekRelative's forward replay path.
func (c *Cursor) FastForward(n int64) {
	for i := int64(0); i < n; i++ {
		c.AdvanceOneSample(nil, nil)
	}
}

// Restart seeks to the beginning of the chart and clears the judged-note
// count, for a "retry chart" UI action.
func (c *Cursor) Restart() {
	c.Seek(0)
	c.notesJudged = 0
	for i := range c.bgmCounter {
		c.bgmCounter[i] = 0
	}
}

// UpcomingNotes returns every note within maxUnits of scroll-space ahead of
// the cursor's current position, from visible lanes in lane-index order.
// offset shifts the reference timestamp backward; when adjustForLatency is
// set, latency is also subtracted, matching how the renderer compensates
// for Player's audio pipeline delay.
func (c *Cursor) UpcomingNotes(maxUnits float64, offset time.Duration, latency time.Duration, adjustForLatency bool) []UpcomingNote {
	latencyAdjustment := time.Duration(0)
	if adjustForLatency {
		latencyAdjustment = -latency
	}
	progressTimestamp := c.ProgressNS() + latencyAdjustment - offset

	bpmSection, ok := c.chart.Timeline.BPMSectionAt(progressTimestamp)
	if !ok && len(c.chart.Timeline.BPMSections) > 0 {
		bpmSection = c.chart.Timeline.BPMSections[0]
	}
	sectionProgress := progressTimestamp - bpmSection.Position
	beatDuration := time.Duration(60.0 / c.chart.Metadata.BPMRange.Main * float64(time.Second))
	initialBPM := bpmSection.BPM
	if len(c.chart.Timeline.BPMSections) > 0 {
		initialBPM = c.chart.Timeline.BPMSections[0].BPM
	}
	bpmRatio := bpmSection.BPM / initialBPM
	currentY := bpmSection.YPos + (float64(sectionProgress)/float64(beatDuration))*bpmRatio*bpmSection.ScrollSpeed

	var out []UpcomingNote
	for idx := range c.laneProgress {
		lane := c.chart.Lane(LaneKind(idx))
		if !lane.Visible {
			continue
		}
		lp := &c.laneProgress[idx]
		for i := lp.NextNote; i < len(lane.Notes); i++ {
			note := lane.Notes[i]
			distance := note.YPos - currentY
			if distance > maxUnits {
				break
			}
			out = append(out, UpcomingNote{Note: note, Lane: LaneKind(idx), LaneIdx: i, Distance: distance})
		}
	}
	return out
}

// Clone returns an independent copy of the cursor: same Chart reference
// (never duplicated — Chart is marked opaque so go-clone keeps it shared),
// same sample/lane progress, but its own empty judgment-event queue. Used
// by Player.AudioCursor to hand the render thread a snapshot that cannot
// race with the audio thread's cursor.
func (c *Cursor) Clone() *Cursor {
	cp := clone.Clone(c)
	cp.judgmentEvents = pending.NewQueue[JudgmentEvent]()
	return cp
}

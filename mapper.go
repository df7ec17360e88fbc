package bmscore

import (
	"fmt"
	"time"

	"github.com/tearbeat/bmscore/internal/bmsconfig"
)

// ControllerBinding names a physical controller button or axis number on a
// specific, stably identified controller.
type ControllerBinding struct {
	Controller ControllerID
	Code       uint32
}

// TurntableDirection is the direction a turntable axis was last observed
// turning.
type TurntableDirection int

const (
	TurntableNone TurntableDirection = iota
	TurntableCW
	TurntableCCW
)

type turntableState struct {
	value          float32
	lastPressValue float32
	direction      TurntableDirection
	lastStopped    time.Duration
}

// Mapper is the stateful translator from physical input events to
// LaneInput values for a single playstyle. Stateful because of turntable
// direction/debounce tracking (spec §4.4); one Mapper is owned by one
// PlayableCursor.
type Mapper struct {
	playstyle Playstyle

	keyBindings    map[LaneKind]KeyCode
	buttonBindings map[LaneKind]ControllerBinding
	axisBindings   map[LaneKind]ControllerBinding

	debounce             time.Duration
	turntableStopTimeout time.Duration

	lastInputTime map[LaneKind]time.Duration
	turntables    map[LaneKind]*turntableState
}

// NewMapper builds a Mapper for playstyle from cfg's binding tables,
// filtering to entries whose Playstyle string matches. Returns an error for
// an unparseable lane name, or when the playstyle has no key binding and no
// button binding at all; it does not check that every lane of the
// playstyle is bound.
func NewMapper(cfg *bmsconfig.Config, playstyle Playstyle) (*Mapper, error) {
	m := &Mapper{
		playstyle:             playstyle,
		keyBindings:           make(map[LaneKind]KeyCode),
		buttonBindings:        make(map[LaneKind]ControllerBinding),
		axisBindings:          make(map[LaneKind]ControllerBinding),
		debounce:              cfg.DebounceDuration,
		turntableStopTimeout:  cfg.TurntableStopTimeout,
		lastInputTime:         make(map[LaneKind]time.Duration),
		turntables:            make(map[LaneKind]*turntableState),
	}

	psName, err := playstyleName(playstyle)
	if err != nil {
		return nil, err
	}

	for _, kb := range cfg.KeyBindings {
		if kb.Playstyle != psName {
			continue
		}
		lane, err := parseLaneKind(kb.Lane)
		if err != nil {
			return nil, fmt.Errorf("mapper: key binding %q: %w", kb.Lane, err)
		}
		m.keyBindings[lane] = KeyCode(kb.Key)
	}
	for _, cb := range cfg.ConButtonBindings {
		if cb.Playstyle != psName {
			continue
		}
		lane, err := parseLaneKind(cb.Lane)
		if err != nil {
			return nil, fmt.Errorf("mapper: button binding %q: %w", cb.Lane, err)
		}
		m.buttonBindings[lane] = ControllerBinding{
			Controller: ControllerID{GUIDHash: cb.GUIDHash, DuplicateIndex: cb.DuplicateIndex},
			Code:       cb.Code,
		}
	}
	for _, ab := range cfg.ConAxisBindings {
		if ab.Playstyle != psName {
			continue
		}
		lane, err := parseLaneKind(ab.Lane)
		if err != nil {
			return nil, fmt.Errorf("mapper: axis binding %q: %w", ab.Lane, err)
		}
		m.axisBindings[lane] = ControllerBinding{
			Controller: ControllerID{GUIDHash: ab.GUIDHash, DuplicateIndex: ab.DuplicateIndex},
			Code:       ab.Code,
		}
		m.turntables[lane] = &turntableState{}
	}

	if len(m.keyBindings) == 0 && len(m.buttonBindings) == 0 {
		return nil, fmt.Errorf("mapper: no key or button bindings configured for playstyle %s", psName)
	}

	return m, nil
}

// FromKey translates a keyboard key event into a LaneInput, applying the
// debounce window. Returns false if the key is unbound or the event is
// suppressed by debounce.
func (m *Mapper) FromKey(code KeyCode, timestamp time.Duration, pressed bool) (LaneInput, bool) {
	lane, ok := laneForKey(m.keyBindings, code)
	if !ok {
		return LaneInput{}, false
	}
	if !m.checkDebounce(lane, timestamp) {
		return LaneInput{}, false
	}
	return LaneInput{Lane: lane, Pressed: pressed}, true
}

// FromButton translates a controller button event into a LaneInput,
// applying the same debounce policy as FromKey.
func (m *Mapper) FromButton(ctrl ControllerID, button uint32, timestamp time.Duration, pressed bool) (LaneInput, bool) {
	lane, ok := laneForBinding(m.buttonBindings, ctrl, button)
	if !ok {
		return LaneInput{}, false
	}
	if !m.checkDebounce(lane, timestamp) {
		return LaneInput{}, false
	}
	return LaneInput{Lane: lane, Pressed: pressed}, true
}

func (m *Mapper) checkDebounce(lane LaneKind, timestamp time.Duration) bool {
	last, seen := m.lastInputTime[lane]
	if seen && timestamp-last <= m.debounce {
		return false
	}
	m.lastInputTime[lane] = timestamp
	return true
}

// SubmitAxisInput processes one analog axis sample against the turntable
// direction/debounce state machine (spec §4.4). It returns zero, one, or
// two LaneInput values: a release (if a previous direction was active) and
// a press, in that order, emitted only when the circular direction of
// travel changes and the debounce window has elapsed.
func (m *Mapper) SubmitAxisInput(ctrl ControllerID, axis uint32, timestamp time.Duration, value float32) []LaneInput {
	lane, ok := laneForBinding(m.axisBindings, ctrl, axis)
	if !ok {
		return nil
	}
	st := m.turntables[lane]

	dir := turntableDirection(st.value, value)

	var out []LaneInput
	if dir != TurntableNone && dir != st.direction {
		last, seen := m.lastInputTime[lane]
		if !seen || timestamp-last > m.debounce {
			if st.direction != TurntableNone {
				out = append(out, LaneInput{Lane: lane, Pressed: false})
			}
			out = append(out, LaneInput{Lane: lane, Pressed: true})
			st.direction = dir
			st.lastPressValue = value
			m.lastInputTime[lane] = timestamp
		}
	}

	st.value = value
	st.lastStopped = timestamp
	return out
}

// FromAxisState is polled once per sample group: any turntable that has
// been stationary longer than the configured stop timeout emits a release
// and resets to TurntableNone.
func (m *Mapper) FromAxisState(now time.Duration) []LaneInput {
	var out []LaneInput
	for lane, st := range m.turntables {
		if st.direction == TurntableNone {
			continue
		}
		if now-st.lastStopped > m.turntableStopTimeout {
			out = append(out, LaneInput{Lane: lane, Pressed: false})
			st.direction = TurntableNone
		}
	}
	return out
}

// turntableDifference computes the signed circular difference curr-prev
// wrapped to the shortest arc on a [-1, 1] axis domain.
func turntableDifference(prev, curr float32) float32 {
	diff := curr - prev
	if diff < -1 {
		diff += 2
	} else if diff > 1 {
		diff -= 2
	}
	return diff
}

func turntableDirection(prev, curr float32) TurntableDirection {
	diff := turntableDifference(prev, curr)
	switch {
	case diff > 0:
		return TurntableCW
	case diff < 0:
		return TurntableCCW
	default:
		return TurntableNone
	}
}

func laneForKey(bindings map[LaneKind]KeyCode, code KeyCode) (LaneKind, bool) {
	for lane, bound := range bindings {
		if bound == code {
			return lane, true
		}
	}
	return 0, false
}

func laneForBinding(bindings map[LaneKind]ControllerBinding, ctrl ControllerID, codeValue uint32) (LaneKind, bool) {
	for lane, b := range bindings {
		if b.Controller == ctrl && b.Code == codeValue {
			return lane, true
		}
	}
	return 0, false
}

func playstyleName(p Playstyle) (string, error) {
	switch p {
	case Playstyle5K:
		return "5K", nil
	case Playstyle7K:
		return "7K", nil
	case Playstyle9K:
		return "9K", nil
	case Playstyle10K:
		return "10K", nil
	case Playstyle14K:
		return "14K", nil
	default:
		return "", fmt.Errorf("mapper: unrecognized playstyle %d", p)
	}
}

func parseLaneKind(s string) (LaneKind, error) {
	names := map[string]LaneKind{
		"P1_Key1": LaneP1Key1, "P1_Key2": LaneP1Key2, "P1_Key3": LaneP1Key3,
		"P1_Key4": LaneP1Key4, "P1_Key5": LaneP1Key5, "P1_Key6": LaneP1Key6,
		"P1_Key7": LaneP1Key7, "P1_KeyS": LaneP1KeyS,
		"P2_Key1": LaneP2Key1, "P2_Key2": LaneP2Key2, "P2_Key3": LaneP2Key3,
		"P2_Key4": LaneP2Key4, "P2_Key5": LaneP2Key5, "P2_Key6": LaneP2Key6,
		"P2_Key7": LaneP2Key7, "P2_KeyS": LaneP2KeyS,
		"BGM": LaneBGM, "MeasureLine": LaneMeasureLine,
	}
	lane, ok := names[s]
	if !ok {
		return 0, fmt.Errorf("unrecognized lane %q", s)
	}
	return lane, nil
}

package bmscore

import "time"

// KeyCode identifies a physical keyboard key. Values are taken from
// atomicgo.dev/keyboard/keys' Code enumeration by callers constructing
// KeyInput; the core treats it as an opaque comparable identity.
type KeyCode int

// ControllerID stably identifies a physical controller across sessions.
// DuplicateIndex disambiguates two controllers sharing the same GUIDHash.
type ControllerID struct {
	GUIDHash       uint32
	DuplicateIndex uint32
}

// InputKind discriminates the UserInput tagged variant.
type InputKind int

const (
	InputKey InputKind = iota
	InputButton
	InputAxis
)

// UserInput is the single type crossing the input-thread -> Player SPSC
// queue boundary. Exactly one of the per-kind fields is meaningful,
// selected by Kind.
type UserInput struct {
	Kind      InputKind
	Timestamp time.Duration

	// InputKey
	Code KeyCode

	// InputButton / InputAxis
	Controller ControllerID
	Button     uint32
	Axis       uint32
	Value      float32 // InputAxis only, in [-1, 1]

	// InputKey / InputButton
	Pressed bool
}

// LaneInput is the Mapper's output language: a single lane transitioning
// pressed or released.
type LaneInput struct {
	Lane    LaneKind
	Pressed bool
}

package host

import "fmt"

// CommandID identifies a command (action) inside the host.
// Ids are allocated by the host and stay stable for the process lifetime.
type CommandID uint32

// String returns the decimal form used in logs.
func (id CommandID) String() string {
	return fmt.Sprintf("%d", uint32(id))
}

// Project is an opaque handle to a host project. Zero means the current project.
type Project uintptr

// CurrentProject refers to whatever project is active in the host.
const CurrentProject Project = 0

// WindowContext is an opaque handle to the window an action was invoked from.
type WindowContext uintptr

// NoWindow is used when an action was not triggered from a window.
const NoWindow WindowContext = 0

// SectionContext identifies the action list section a command lives in.
type SectionContext struct {
	uniqueID int32
}

// MainSection is the host's main action section.
var MainSection = SectionContext{uniqueID: 0}

// Section returns the section with the given unique id.
func Section(uniqueID int32) SectionContext {
	return SectionContext{uniqueID: uniqueID}
}

// UniqueID returns the host's unique id for the section.
func (s SectionContext) UniqueID() int32 {
	return s.uniqueID
}

// IsMain reports whether s is the main section.
func (s SectionContext) IsMain() bool {
	return s.uniqueID == 0
}

// String returns a string representation of the section.
func (s SectionContext) String() string {
	if s.IsMain() {
		return "main"
	}
	return fmt.Sprintf("section(%d)", s.uniqueID)
}

// ValueChangeKind describes how an ActionValueChange is to be interpreted.
type ValueChangeKind int

// Value change kinds.
const (
	// AbsoluteLowRes is a 7-bit absolute value (e.g. a MIDI CC).
	AbsoluteLowRes ValueChangeKind = iota

	// AbsoluteHighRes is a 14-bit absolute value (e.g. MIDI pitch bend).
	AbsoluteHighRes

	// Relative1 is a relative adjustment, mode 1 (127 = -1, 1 = +1).
	Relative1

	// Relative2 is a relative adjustment, mode 2 (63 = -1, 65 = +1).
	Relative2

	// Relative3 is a relative adjustment, mode 3 (65 = -1, 1 = +1).
	Relative3
)

// String returns a string representation of the kind.
func (k ValueChangeKind) String() string {
	switch k {
	case AbsoluteLowRes:
		return "absolute-low-res"
	case AbsoluteHighRes:
		return "absolute-high-res"
	case Relative1:
		return "relative-1"
	case Relative2:
		return "relative-2"
	case Relative3:
		return "relative-3"
	default:
		return "unknown"
	}
}

// ActionValueChange is the continuous value an action was invoked with.
type ActionValueChange struct {
	Kind  ValueChangeKind
	Value uint16
}

// DecodeActionValueChange converts the host's (val, valhw, relmode) triple.
func DecodeActionValueChange(val, valhw, relmode int32) (ActionValueChange, error) {
	switch relmode {
	case 0:
		if valhw < 0 {
			return ActionValueChange{Kind: AbsoluteLowRes, Value: uint16(val & 0x7f)}, nil
		}
		return ActionValueChange{Kind: AbsoluteHighRes, Value: uint16((val&0x7f)<<7 | (valhw & 0x7f))}, nil
	case 1:
		return ActionValueChange{Kind: Relative1, Value: uint16(val & 0x7f)}, nil
	case 2:
		return ActionValueChange{Kind: Relative2, Value: uint16(val & 0x7f)}, nil
	case 3:
		return ActionValueChange{Kind: Relative3, Value: uint16(val & 0x7f)}, nil
	default:
		return ActionValueChange{}, fmt.Errorf("unknown relative mode %d", relmode)
	}
}

// Encode returns the (val, valhw, relmode) triple for c.
func (c ActionValueChange) Encode() (val, valhw, relmode int32) {
	switch c.Kind {
	case AbsoluteHighRes:
		return int32(c.Value>>7) & 0x7f, int32(c.Value) & 0x7f, 0
	case Relative1:
		return int32(c.Value), -1, 1
	case Relative2:
		return int32(c.Value), -1, 2
	case Relative3:
		return int32(c.Value), -1, 3
	default:
		return int32(c.Value), -1, 0
	}
}

// ToggleActionResult is the answer to a toggle-state query.
type ToggleActionResult int

// Toggle results.
const (
	// NotRelevant means the action is unknown or not toggleable.
	NotRelevant ToggleActionResult = iota
	// Off means the action is toggleable and currently off.
	Off
	// On means the action is toggleable and currently on.
	On
)

// Raw converts the result to the value the host expects.
func (r ToggleActionResult) Raw() int32 {
	switch r {
	case Off:
		return 0
	case On:
		return 1
	default:
		return -1
	}
}

// String returns a string representation of the result.
func (r ToggleActionResult) String() string {
	switch r {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "not-relevant"
	}
}

// UndoScope flags what an undo block may have touched.
type UndoScope int32

// UndoScopeAll tells the host that anything may have changed.
const UndoScopeAll UndoScope = -1

// OnAudioBufferArgs describes one audio block callback.
type OnAudioBufferArgs struct {
	// IsPost is true for the post-processing invocation of a block.
	IsPost bool
	// Len is the block length in samples.
	Len int32
	// SampleRate is the device sample rate.
	SampleRate float64
}

// GaccelHandle identifies an accelerator table entry registered with the host.
type GaccelHandle uint64

// AudioHookHandle identifies a registered audio hook.
type AudioHookHandle uint64

// SurfaceHandle identifies a registered control surface.
type SurfaceHandle uint64

// AcceleratorHandle identifies a registered accelerator translator.
type AcceleratorHandle uint64

// GaccelRegister is an accelerator table entry describing one action.
type GaccelRegister struct {
	Accel       Accel
	Description string
}

// GaccelWithoutKeyBinding returns an entry that lists the command without a shortcut.
func GaccelWithoutKeyBinding(id CommandID, description string) GaccelRegister {
	return GaccelRegister{
		Accel:       Accel{Cmd: uint16(id)},
		Description: description,
	}
}

// GaccelWithKeyBinding returns an entry with a default shortcut.
func GaccelWithKeyBinding(id CommandID, description string, binding Accel) GaccelRegister {
	binding.Cmd = uint16(id)
	return GaccelRegister{
		Accel:       binding,
		Description: description,
	}
}

package host

import (
	"fmt"
	"sort"
	"strings"
)

// TranslateAccel gets a place in the host's keyboard processing queue.
type TranslateAccel interface {
	TranslateAccel(msg AccelMsg) TranslateAccelResult
}

// TranslateAccelFunc adapts a function to TranslateAccel.
type TranslateAccelFunc func(msg AccelMsg) TranslateAccelResult

// TranslateAccel implements TranslateAccel.
func (f TranslateAccelFunc) TranslateAccel(msg AccelMsg) TranslateAccelResult { return f(msg) }

// RawMsg mirrors the native window message structure.
type RawMsg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	X, Y    int32
}

// Native message ids.
const (
	WMKeyDown    uint32 = 0x0100
	WMKeyUp      uint32 = 0x0101
	WMChar       uint32 = 0x0102
	WMSysKeyDown uint32 = 0x0104
	WMSysKeyUp   uint32 = 0x0105
)

// AccelMsgKind is the decoded message id.
type AccelMsgKind int

// Message kinds.
const (
	MsgUnknown AccelMsgKind = iota
	MsgKeyDown
	MsgKeyUp
	MsgChar
	MsgSysKeyDown
	MsgSysKeyUp
)

// String returns a string representation of the kind.
func (k AccelMsgKind) String() string {
	switch k {
	case MsgKeyDown:
		return "key-down"
	case MsgKeyUp:
		return "key-up"
	case MsgChar:
		return "char"
	case MsgSysKeyDown:
		return "sys-key-down"
	case MsgSysKeyUp:
		return "sys-key-up"
	default:
		return "unknown"
	}
}

// AcceleratorBehavior is a set of accelerator flags.
type AcceleratorBehavior uint8

// Accelerator flags.
const (
	BehaviorVirtKey AcceleratorBehavior = 0x01
	BehaviorShift   AcceleratorBehavior = 0x04
	BehaviorControl AcceleratorBehavior = 0x08
	BehaviorAlt     AcceleratorBehavior = 0x10

	behaviorMask = BehaviorVirtKey | BehaviorShift | BehaviorControl | BehaviorAlt
)

// Has reports whether all flags in f are set.
func (b AcceleratorBehavior) Has(f AcceleratorBehavior) bool {
	return b&f == f
}

// AccelMsg is a decoded keyboard message.
type AccelMsg struct {
	raw RawMsg
}

// AccelMsgFromRaw wraps a raw message.
func AccelMsgFromRaw(msg RawMsg) AccelMsg {
	return AccelMsg{raw: msg}
}

// Raw returns the undecoded message.
func (m AccelMsg) Raw() RawMsg { return m.raw }

// Window returns the window the message was sent to.
func (m AccelMsg) Window() WindowContext { return WindowContext(m.raw.Hwnd) }

// Kind decodes the message id.
func (m AccelMsg) Kind() AccelMsgKind {
	switch m.raw.Message {
	case WMKeyDown:
		return MsgKeyDown
	case WMKeyUp:
		return MsgKeyUp
	case WMChar:
		return MsgChar
	case WMSysKeyDown:
		return MsgSysKeyDown
	case WMSysKeyUp:
		return MsgSysKeyUp
	default:
		return MsgUnknown
	}
}

// Behavior decodes the modifier flags carried in the low word of lParam.
// Bits other than the known flags are dropped.
func (m AccelMsg) Behavior() AcceleratorBehavior {
	return AcceleratorBehavior(loword(m.raw.LParam)) & behaviorMask
}

// Key returns the key code carried in the low word of wParam.
func (m AccelMsg) Key() uint16 {
	return loword(m.raw.WParam)
}

// Time returns milliseconds since system start.
func (m AccelMsg) Time() uint32 { return m.raw.Time }

// Point returns the cursor position at the time of the message.
func (m AccelMsg) Point() (x, y int32) { return m.raw.X, m.raw.Y }

func loword(v uintptr) uint16 {
	return uint16(v & 0xffff)
}

// TranslateAccelResult tells the host what to do with a keystroke.
type TranslateAccelResult int

// Translate results.
const (
	// NotOurWindow lets the host continue processing.
	NotOurWindow TranslateAccelResult = iota
	// Eat consumes the keystroke.
	Eat
	// PassOnToWindow passes the keystroke to the window.
	PassOnToWindow
	// ProcessEventRaw processes the event raw (macOS only).
	ProcessEventRaw
	// ForcePassOnToWindow passes even system keys to the window (Windows only).
	ForcePassOnToWindow
	// ForceToMainWindowAccelTable forces the main window's accelerator table.
	ForceToMainWindowAccelTable
	// ForceToMainWindowAccelTableEvenIfTextField also applies inside text fields.
	ForceToMainWindowAccelTableEvenIfTextField
)

// Raw converts the result to the value the host expects.
func (r TranslateAccelResult) Raw() int32 {
	switch r {
	case Eat:
		return 1
	case PassOnToWindow:
		return -1
	case ProcessEventRaw:
		return -10
	case ForcePassOnToWindow:
		return -20
	case ForceToMainWindowAccelTable:
		return -666
	case ForceToMainWindowAccelTableEvenIfTextField:
		return -667
	default:
		return 0
	}
}

// Accel is an accelerator table entry: modifier flags, key and command.
type Accel struct {
	Behavior AcceleratorBehavior
	Key      uint16
	Cmd      uint16
}

// HasKey reports whether the entry carries a shortcut.
func (a Accel) HasKey() bool {
	return a.Key != 0
}

// String renders the shortcut as ParseAccel accepts it.
func (a Accel) String() string {
	if !a.HasKey() {
		return ""
	}
	var parts []string
	if a.Behavior.Has(BehaviorControl) {
		parts = append(parts, "Ctrl")
	}
	if a.Behavior.Has(BehaviorAlt) {
		parts = append(parts, "Alt")
	}
	if a.Behavior.Has(BehaviorShift) {
		parts = append(parts, "Shift")
	}
	parts = append(parts, keyName(a.Key))
	return strings.Join(parts, "+")
}

var namedKeys = map[string]uint16{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"return":    0x0D,
	"esc":       0x1B,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pagedown":  0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"insert":    0x2D,
	"delete":    0x2E,
}

const vkF1 = 0x70

func keyName(key uint16) string {
	switch {
	case key >= 'A' && key <= 'Z', key >= '0' && key <= '9':
		return string(rune(key))
	case key >= vkF1 && key < vkF1+24:
		return fmt.Sprintf("F%d", key-vkF1+1)
	}
	names := make([]string, 0, 1)
	for name, code := range namedKeys {
		if code == key {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("0x%02X", key)
	}
	sort.Strings(names)
	return strings.ToUpper(names[0][:1]) + names[0][1:]
}

// ParseAccel parses a shortcut such as "Ctrl+Shift+K" or "Alt+F5".
// Modifiers are case-insensitive; "Cmd" is an alias for "Ctrl" and "Opt" for "Alt".
func ParseAccel(s string) (Accel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Accel{}, fmt.Errorf("%w: empty", ErrInvalidAccel)
	}

	parts := strings.Split(s, "+")
	accel := Accel{Behavior: BehaviorVirtKey}
	for i, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			return Accel{}, fmt.Errorf("%w: %q", ErrInvalidAccel, s)
		}
		if i < len(parts)-1 {
			switch p {
			case "ctrl", "control", "cmd":
				accel.Behavior |= BehaviorControl
			case "shift":
				accel.Behavior |= BehaviorShift
			case "alt", "opt", "option":
				accel.Behavior |= BehaviorAlt
			default:
				return Accel{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidAccel, part)
			}
			continue
		}
		key, err := parseKey(p)
		if err != nil {
			return Accel{}, fmt.Errorf("%w: %v", ErrInvalidAccel, err)
		}
		accel.Key = key
	}
	return accel, nil
}

func parseKey(p string) (uint16, error) {
	if len(p) == 1 {
		c := p[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint16(c - 'a' + 'A'), nil
		case c >= '0' && c <= '9':
			return uint16(c), nil
		}
	}
	if code, ok := namedKeys[p]; ok {
		return code, nil
	}
	if len(p) >= 2 && p[0] == 'f' {
		var n int
		if _, err := fmt.Sscanf(p[1:], "%d", &n); err == nil && n >= 1 && n <= 24 && fmt.Sprintf("f%d", n) == p {
			return uint16(vkF1 + n - 1), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", p)
}

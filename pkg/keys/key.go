// Package keys defines the closed set of recognised keyboard keys and the
// hotkey binding types built on top of it.
package keys

import "fmt"

// Key is a platform-independent identifier for a single keyboard key.
type Key int

const (
	KeyUnknown Key = iota

	// modifiers, left/right variants tracked independently so that the
	// platform probe and the chord matcher can tell which physical key
	// is down without guessing.
	KeyCtrlLeft
	KeyCtrlRight
	KeyShiftLeft
	KeyShiftRight
	KeyAltLeft
	KeyAltRight
	KeySuperLeft
	KeySuperRight

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	KeyUp
	KeyDown
	KeyLeft
	KeyRight

	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete

	KeySpace
	KeyTab
	KeyEscape
	KeyReturn
	KeyBackspace
	KeyCapsLock
)

var keyNames = map[Key]string{
	KeyUnknown:   "Unknown",
	KeyCtrlLeft:  "CtrlLeft",
	KeyCtrlRight: "CtrlRight",
	KeyShiftLeft: "ShiftLeft",
	KeyShiftRight: "ShiftRight",
	KeyAltLeft:   "AltLeft",
	KeyAltRight:  "AltRight",
	KeySuperLeft: "SuperLeft",
	KeySuperRight: "SuperRight",
	KeyF1: "F1", KeyF2: "F2", KeyF3: "F3", KeyF4: "F4",
	KeyF5: "F5", KeyF6: "F6", KeyF7: "F7", KeyF8: "F8",
	KeyF9: "F9", KeyF10: "F10", KeyF11: "F11", KeyF12: "F12",
	KeySpace: "Space", KeyTab: "Tab", KeyEscape: "Escape",
	KeyReturn: "Return", KeyBackspace: "Backspace", KeyCapsLock: "CapsLock",
	KeyUp: "Up", KeyDown: "Down", KeyLeft: "Left", KeyRight: "Right",
	KeyHome: "Home", KeyEnd: "End", KeyPageUp: "PageUp", KeyPageDown: "PageDown",
	KeyInsert: "Insert", KeyDelete: "Delete",
}

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	if k >= KeyA && k <= KeyZ {
		return string(rune('A' + (k - KeyA)))
	}
	if k >= Key0 && k <= Key9 {
		return fmt.Sprintf("%d", int(k-Key0))
	}
	return "Unknown"
}

// IsModifier reports whether k is one of the eight tracked modifier keys.
func (k Key) IsModifier() bool {
	switch k {
	case KeyCtrlLeft, KeyCtrlRight, KeyShiftLeft, KeyShiftRight,
		KeyAltLeft, KeyAltRight, KeySuperLeft, KeySuperRight:
		return true
	default:
		return false
	}
}

// IsFunction reports whether k is one of the twelve F-keys.
func (k Key) IsFunction() bool {
	return k >= KeyF1 && k <= KeyF12
}

// ModifierVariants lists every modifier key the platform probe polls when
// releasing modifiers defensively.
func ModifierVariants() []Key {
	return []Key{
		KeyCtrlLeft, KeyCtrlRight,
		KeyShiftLeft, KeyShiftRight,
		KeyAltLeft, KeyAltRight,
		KeySuperLeft, KeySuperRight,
	}
}

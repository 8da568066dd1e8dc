//go:build windows

package platform

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/pushtotalk/pushtotalkd/pkg/keys"
)

// keyDelay is the inter-event delay for synthesized chords; conservative
// enough to stay reliable across target applications.
const keyDelay = 15 * time.Millisecond

var vkByKey = map[keys.Key]uint16{
	keys.KeyCtrlLeft: 0xA2, keys.KeyCtrlRight: 0xA3,
	keys.KeyShiftLeft: 0xA0, keys.KeyShiftRight: 0xA1,
	keys.KeyAltLeft: 0xA4, keys.KeyAltRight: 0xA5,
	keys.KeySuperLeft: 0x5B, keys.KeySuperRight: 0x5C,
	keys.KeyF1: 0x70, keys.KeyF2: 0x71, keys.KeyF3: 0x72, keys.KeyF4: 0x73,
	keys.KeyF5: 0x74, keys.KeyF6: 0x75, keys.KeyF7: 0x76, keys.KeyF8: 0x77,
	keys.KeyF9: 0x78, keys.KeyF10: 0x79, keys.KeyF11: 0x7A, keys.KeyF12: 0x7B,
	keys.KeySpace: 0x20, keys.KeyTab: 0x09, keys.KeyEscape: 0x1B,
	keys.KeyReturn: 0x0D, keys.KeyBackspace: 0x08, keys.KeyCapsLock: 0x14,
	keys.KeyUp: 0x26, keys.KeyDown: 0x28, keys.KeyLeft: 0x25, keys.KeyRight: 0x27,
	keys.KeyHome: 0x24, keys.KeyEnd: 0x23, keys.KeyPageUp: 0x21, keys.KeyPageDown: 0x22,
	keys.KeyInsert: 0x2D, keys.KeyDelete: 0x2E,
}

const (
	vkC = 0x43
	vkV = 0x56
)

func init() {
	for k := keys.KeyA; k <= keys.KeyZ; k++ {
		vkByKey[k] = uint16('A' + (k - keys.KeyA))
	}
	for k := keys.Key0; k <= keys.Key9; k++ {
		vkByKey[k] = uint16('0' + (k - keys.Key0))
	}
}

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState       = user32.NewProc("GetAsyncKeyState")
	procSendInput              = user32.NewProc("SendInput")
	procGetForegroundWindow    = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow    = user32.NewProc("SetForegroundWindow")
	procIsWindow               = user32.NewProc("IsWindow")
	procAttachThreadInput      = user32.NewProc("AttachThreadInput")
	procGetWindowThreadProcess = user32.NewProc("GetWindowThreadProcessId")
)

const (
	inputKeyboard   = 1
	keyEventFKeyUp  = 0x0002
	wmKeyDown       = 0x0100 // unused directly, documents intent of dwFlags=0 below
	sizeofInputUnit = unsafe.Sizeof(input{})
)

// keyBdInput mirrors the Win32 KEYBDINPUT layout.
type keyBdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uint64
}

// input mirrors the Win32 INPUT structure for the keyboard-event union
// member, padded to the size the OS expects for the union on 64-bit.
type input struct {
	inputType uint32
	_         uint32 // align ki to 8 bytes, matching the real union layout
	ki        keyBdInput
	_         [8]byte // pad the union to MOUSEINPUT's 32 bytes, its largest member
}

type winProbe struct{}

// New constructs the Windows platform probe.
func New() Probe { return &winProbe{} }

func (p *winProbe) IsPhysicallyDown(k keys.Key) bool {
	vk, ok := vkByKey[k]
	if !ok {
		return false
	}
	return isVKPressed(vk)
}

func isVKPressed(vk uint16) bool {
	r, _, _ := procGetAsyncKeyState.Call(uintptr(int32(vk)))
	return uint16(r)&0x8000 != 0
}

func sendKeyEvent(vk uint16, up bool) error {
	var flags uint32
	if up {
		flags = keyEventFKeyUp
	}
	in := input{
		inputType: inputKeyboard,
		ki: keyBdInput{
			wVk:     vk,
			dwFlags: flags,
		},
	}
	ret, _, _ := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), sizeofInputUnit)
	if ret == 0 {
		dir := "down"
		if up {
			dir = "up"
		}
		return fmt.Errorf("platform: SendInput failed for key %s (vk=0x%x)", dir, vk)
	}
	return nil
}

func sendChord(modVK, letterVK uint16) error {
	if err := sendKeyEvent(modVK, false); err != nil {
		return err
	}
	time.Sleep(keyDelay)
	if err := sendKeyEvent(letterVK, false); err != nil {
		return err
	}
	time.Sleep(keyDelay)
	if err := sendKeyEvent(letterVK, true); err != nil {
		return err
	}
	time.Sleep(keyDelay)
	return sendKeyEvent(modVK, true)
}

func (p *winProbe) SendChordCopy() error  { return sendChord(vkByKey[keys.KeyCtrlLeft], vkC) }
func (p *winProbe) SendChordPaste() error { return sendChord(vkByKey[keys.KeyCtrlLeft], vkV) }

// ReleaseAllModifiers only synthesizes a key-up for modifiers that
// is_vk_pressed confirms are down — an unconditional key-up on the
// superkey can trigger the Start menu.
func (p *winProbe) ReleaseAllModifiers() error {
	var firstErr error
	for _, k := range keys.ModifierVariants() {
		vk := vkByKey[k]
		if isVKPressed(vk) {
			if err := sendKeyEvent(vk, true); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (p *winProbe) ForegroundWindow() (WindowHandle, error) {
	h, _, _ := procGetForegroundWindow.Call()
	return WindowHandle(h), nil
}

func (p *winProbe) IsWindowValid(h WindowHandle) bool {
	r, _, _ := procIsWindow.Call(uintptr(h))
	return r != 0
}

// ForceForeground cascades: a direct SetForegroundWindow request, then the
// thread-input-attach trick (Windows only honours SetForegroundWindow from
// the thread that owns the current foreground window unless attached),
// then a short modifier tap to "wake" focus-stealing prevention, verifying
// after each step.
func (p *winProbe) ForceForeground(h WindowHandle) error {
	if h == 0 {
		return fmt.Errorf("platform: zero window handle")
	}

	ret, _, _ := procSetForegroundWindow.Call(uintptr(h))
	if ret != 0 && p.foregroundIs(h) {
		return nil
	}

	if p.attachAndRetry(h) {
		return nil
	}

	_ = sendKeyEvent(vkByKey[keys.KeyAltLeft], false)
	_ = sendKeyEvent(vkByKey[keys.KeyAltLeft], true)
	ret, _, _ = procSetForegroundWindow.Call(uintptr(h))
	if ret != 0 && p.foregroundIs(h) {
		return nil
	}

	return fmt.Errorf("platform: all foreground-reclamation strategies failed")
}

func (p *winProbe) attachAndRetry(h WindowHandle) bool {
	fg, _, _ := procGetForegroundWindow.Call()
	var fgPID uint32
	fgTID, _, _ := procGetWindowThreadProcess.Call(fg, uintptr(unsafe.Pointer(&fgPID)))
	curTID := windows.GetCurrentThreadId()

	if fgTID == 0 || fgTID == uintptr(curTID) {
		return false
	}

	procAttachThreadInput.Call(uintptr(curTID), fgTID, 1)
	defer procAttachThreadInput.Call(uintptr(curTID), fgTID, 0)

	ret, _, _ := procSetForegroundWindow.Call(uintptr(h))
	return ret != 0 && p.foregroundIs(h)
}

func (p *winProbe) foregroundIs(h WindowHandle) bool {
	fg, _ := p.ForegroundWindow()
	return fg == h
}

func (p *winProbe) RestoreFocusWithVerify(h WindowHandle, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := p.ForceForeground(h); err != nil {
			lastErr = err
		} else {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
		if p.foregroundIs(h) {
			return nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("platform: focus restore verification failed after %d attempts", maxRetries)
	}
	return lastErr
}

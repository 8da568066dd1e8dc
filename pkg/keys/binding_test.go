package keys

import "testing"

func TestBindingValidateEmpty(t *testing.T) {
	b := &Binding{Keys: map[Key]struct{}{}}
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for empty binding")
	}
}

func TestBindingValidateTooManyKeys(t *testing.T) {
	b := NewBinding(Press, KeyCtrlLeft, KeyShiftLeft, KeyAltLeft, KeySuperLeft, KeyA)
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for >4 keys")
	}
}

func TestBindingValidateNoModifierOrFunction(t *testing.T) {
	b := NewBinding(Press, KeyA, KeyB)
	if err := b.Validate(); err == nil {
		t.Fatal("expected error: no modifier or function key")
	}
}

func TestBindingValidateOK(t *testing.T) {
	b := NewBinding(Press, KeyCtrlLeft, KeySuperLeft)
	if err := b.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBindingReleaseLockMustDiffer(t *testing.T) {
	b := NewBinding(Press, KeyCtrlLeft, KeySuperLeft).WithReleaseLock(KeyCtrlLeft, KeySuperLeft)
	if err := b.Validate(); err == nil {
		t.Fatal("expected error: release-lock chord equal to main chord")
	}
}

func TestDualBindingRejectsIdentical(t *testing.T) {
	d := &DualBinding{
		Dictation:   NewBinding(Press, KeyCtrlLeft, KeySuperLeft),
		AiAssistant: NewBinding(Press, KeyCtrlLeft, KeySuperLeft),
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error: identical chords")
	}
}

func TestDualBindingRejectsSubset(t *testing.T) {
	d := &DualBinding{
		Dictation:   NewBinding(Press, KeyCtrlLeft),
		AiAssistant: NewBinding(Press, KeyCtrlLeft, KeyShiftLeft),
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error: subset chords")
	}
}

func TestDualBindingOK(t *testing.T) {
	d := &DualBinding{
		Dictation:   NewBinding(Press, KeyCtrlLeft, KeySuperLeft),
		AiAssistant: NewBinding(Press, KeyAltLeft, KeySpace),
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStrictMatchCountEquality(t *testing.T) {
	chord := map[Key]struct{}{KeyCtrlLeft: {}, KeySpace: {}}
	tracked := map[Key]struct{}{KeyCtrlLeft: {}, KeySpace: {}, KeyShiftLeft: {}}

	pressedExact := map[Key]struct{}{KeyCtrlLeft: {}, KeySpace: {}}
	if !StrictMatch(chord, pressedExact, tracked) {
		t.Fatal("expected exact chord press to match")
	}

	pressedExtra := map[Key]struct{}{KeyCtrlLeft: {}, KeySpace: {}, KeyShiftLeft: {}}
	if StrictMatch(chord, pressedExtra, tracked) {
		t.Fatal("expected Ctrl+Shift+Space held to NOT match Ctrl+Space chord")
	}
}

func TestStrictMatchMissingKey(t *testing.T) {
	chord := map[Key]struct{}{KeyCtrlLeft: {}, KeySpace: {}}
	tracked := chord
	pressed := map[Key]struct{}{KeyCtrlLeft: {}}
	if StrictMatch(chord, pressed, tracked) {
		t.Fatal("expected partial chord to not match")
	}
}

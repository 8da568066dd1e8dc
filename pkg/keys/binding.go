package keys

import "fmt"

// TriggerMode selects how a hotkey binding's stop edge is interpreted.
type TriggerMode int

const (
	// Press ends the session on the chord's falling edge.
	Press TriggerMode = iota
	// Toggle ends the session on the chord's next rising edge.
	Toggle
)

func (m TriggerMode) String() string {
	if m == Toggle {
		return "toggle"
	}
	return "press"
}

// Role tags which half of a DualBinding a Binding belongs to.
type Role int

const (
	RoleDictation Role = iota
	RoleAiAssistant
)

func (r Role) String() string {
	if r == RoleAiAssistant {
		return "ai_assistant"
	}
	return "dictation"
}

// Binding is an unordered set of keys plus a trigger mode and an optional
// release-lock chord, per §3 of the hotkey data model.
type Binding struct {
	Keys        map[Key]struct{}
	Mode        TriggerMode
	ReleaseLock map[Key]struct{} // nil if this binding has no release-lock chord
}

// NewBinding builds a Binding from a key slice, deduplicating as it goes.
func NewBinding(mode TriggerMode, keys ...Key) *Binding {
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &Binding{Keys: set, Mode: mode}
}

// WithReleaseLock attaches a release-lock chord and returns the receiver for
// chaining.
func (b *Binding) WithReleaseLock(keys ...Key) *Binding {
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	b.ReleaseLock = set
	return b
}

func sameSet(a, b map[Key]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func isSubset(a, b map[Key]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func hasModifierOrFunction(set map[Key]struct{}) bool {
	for k := range set {
		if k.IsModifier() || k.IsFunction() {
			return true
		}
	}
	return false
}

// Validate enforces the Binding invariants from §3: non-empty, at most four
// keys, at least one modifier or function key, no duplicates (guaranteed by
// the set representation), and a release-lock chord distinct from the main
// chord when both are present.
func (b *Binding) Validate() error {
	if len(b.Keys) == 0 {
		return fmt.Errorf("hotkey binding: keys must not be empty")
	}
	if len(b.Keys) > 4 {
		return fmt.Errorf("hotkey binding: at most 4 keys allowed, got %d", len(b.Keys))
	}
	if !hasModifierOrFunction(b.Keys) {
		return fmt.Errorf("hotkey binding: must contain at least one modifier or function key")
	}
	if b.ReleaseLock != nil {
		if len(b.ReleaseLock) == 0 {
			return fmt.Errorf("hotkey binding: release-lock chord must not be empty when set")
		}
		if sameSet(b.Keys, b.ReleaseLock) {
			return fmt.Errorf("hotkey binding: release-lock chord must differ from the main chord")
		}
	}
	return nil
}

// DualBinding pairs a Dictation binding with an AiAssistant binding.
type DualBinding struct {
	Dictation   *Binding
	AiAssistant *Binding
}

// Validate enforces per-binding invariants plus the cross-binding invariant
// that neither key set may equal or be a subset of the other.
func (d *DualBinding) Validate() error {
	if err := d.Dictation.Validate(); err != nil {
		return fmt.Errorf("dictation: %w", err)
	}
	if err := d.AiAssistant.Validate(); err != nil {
		return fmt.Errorf("ai_assistant: %w", err)
	}
	if sameSet(d.Dictation.Keys, d.AiAssistant.Keys) {
		return fmt.Errorf("dual binding: dictation and ai_assistant chords must not be identical")
	}
	if isSubset(d.Dictation.Keys, d.AiAssistant.Keys) || isSubset(d.AiAssistant.Keys, d.Dictation.Keys) {
		return fmt.Errorf("dual binding: neither chord may be a subset of the other")
	}
	return nil
}

// TrackedKeys returns the union of every key referenced by either binding,
// including both release-lock chords — the set the polling observer rebuilds
// currently_pressed from on each tick.
func (d *DualBinding) TrackedKeys() map[Key]struct{} {
	union := make(map[Key]struct{})
	add := func(s map[Key]struct{}) {
		for k := range s {
			union[k] = struct{}{}
		}
	}
	add(d.Dictation.Keys)
	add(d.AiAssistant.Keys)
	if d.Dictation.ReleaseLock != nil {
		add(d.Dictation.ReleaseLock)
	}
	if d.AiAssistant.ReleaseLock != nil {
		add(d.AiAssistant.ReleaseLock)
	}
	return union
}

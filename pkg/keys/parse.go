package keys

import "strconv"

var keyByName = func() map[string]Key {
	m := make(map[string]Key, len(keyNames)+36)
	for k, name := range keyNames {
		m[name] = k
	}
	for k := KeyA; k <= KeyZ; k++ {
		m[k.String()] = k
	}
	for k := Key0; k <= Key9; k++ {
		m[k.String()] = k
	}
	return m
}()

// ParseKey resolves the on-disk key name (§6's config.json "keys" arrays)
// back into a Key. Unknown names report ok=false so callers can surface a
// ConfigurationInvalid error instead of silently dropping a key.
func ParseKey(name string) (Key, bool) {
	k, ok := keyByName[name]
	return k, ok
}

// ParseTriggerMode resolves the on-disk "mode" string ("press" | "toggle");
// an unrecognised value defaults to Press, matching Config's forward-fill
// migration philosophy for other fields.
func ParseTriggerMode(s string) TriggerMode {
	if s == "toggle" {
		return Toggle
	}
	return Press
}

// ParseKeys resolves a slice of on-disk key names, reporting the first
// unrecognised name it encounters.
func ParseKeys(names []string) ([]Key, error) {
	out := make([]Key, 0, len(names))
	for _, n := range names {
		k, ok := ParseKey(n)
		if !ok {
			return nil, &ParseError{Name: n}
		}
		out = append(out, k)
	}
	return out, nil
}

// ParseError reports an on-disk key name that does not match any known Key.
type ParseError struct {
	Name string
}

func (e *ParseError) Error() string {
	return "keys: unrecognised key name " + strconv.Quote(e.Name)
}

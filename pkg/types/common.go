package types

import "strings"

const (
	KeySepCh = "."
)

// Key is a dot-separated setting key, e.g. "token.0.replacement".
type Key []string

func (key Key) String() string {
	return strings.Join(key, KeySepCh)
}

func NewKey(str string) Key {
	if len(str) == 0 {
		return Key(nil)
	}
	return Key(strings.Split(str, KeySepCh))
}

// HasPrefix returns true if the key starts with the given segment.
func (key Key) HasPrefix(segment string) bool {
	return len(key) > 0 && key[0] == segment
}

// Value is a raw or validated setting value. A nil Value stands for an unset
// setting.
type Value interface{}

type KeyValue struct {
	Key   Key
	Value Value
}

type Params map[string]Value

package types

// Stanza is a named section of key-value settings as produced by a
// configuration source. Key order follows the declaration order.
type Stanza struct {
	Name   string
	Params []*KeyValue
}

func NewStanza(name string) *Stanza {
	return &Stanza{Name: name, Params: make([]*KeyValue, 0)}
}

// Set overrides the value of an existing key in place or appends a new one.
func (s *Stanza) Set(key string, value Value) {
	for _, kv := range s.Params {
		if kv.Key.String() == key {
			kv.Value = value
			return
		}
	}
	s.Params = append(s.Params, &KeyValue{Key: NewKey(key), Value: value})
}

func (s *Stanza) Get(key string) (Value, bool) {
	for _, kv := range s.Params {
		if kv.Key.String() == key {
			return kv.Value, true
		}
	}
	return nil, false
}

func (s *Stanza) Len() int {
	return len(s.Params)
}

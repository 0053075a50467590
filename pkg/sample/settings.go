package sample

import (
	"reflect"
	"sort"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// Settings is a set of validated setting values. A missing key and a nil
// value both mean "unset".
type Settings struct {
	values map[string]types.Value
}

func NewSettings() *Settings {
	return &Settings{values: make(map[string]types.Value)}
}

func (s *Settings) Get(name string) types.Value {
	return s.values[name]
}

func (s *Settings) Set(name string, value types.Value) {
	if value == nil {
		delete(s.values, name)
		return
	}
	s.values[name] = value
}

// IsSet returns true if the setting holds a non-nil value.
func (s *Settings) IsSet(name string) bool {
	return s.values[name] != nil
}

// Equal compares a setting value with v deeply.
func (s *Settings) Equal(name string, v types.Value) bool {
	return reflect.DeepEqual(s.values[name], v)
}

func (s *Settings) Str(name string) string {
	if v, ok := s.values[name].(string); ok {
		return v
	}
	return ""
}

// IntOr returns the int value of the setting or def if it is unset.
func (s *Settings) IntOr(name string, def int) int {
	if v, ok := s.values[name].(int); ok {
		return v
	}
	return def
}

func (s *Settings) FloatOr(name string, def float64) float64 {
	if v, ok := s.values[name].(float64); ok {
		return v
	}
	return def
}

func (s *Settings) Bool(name string) bool {
	v, _ := s.values[name].(bool)
	return v
}

func (s *Settings) StrOr(name, def string) string {
	if v, ok := s.values[name].(string); ok && len(v) > 0 {
		return v
	}
	return def
}

// Names returns the sorted names of all set settings.
func (s *Settings) Names() []string {
	res := make([]string, 0, len(s.values))
	for name, v := range s.values {
		if v != nil {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}

func (s *Settings) Clone() *Settings {
	cp := NewSettings()
	for name, v := range s.values {
		cp.values[name] = copyValue(v)
	}
	return cp
}

func copyValue(v types.Value) types.Value {
	switch tv := v.(type) {
	case map[string]interface{}:
		cp := make(map[string]interface{}, len(tv))
		for k, sub := range tv {
			cp[k] = copyValue(sub)
		}
		return cp
	case []interface{}:
		cp := make([]interface{}, len(tv))
		for i, sub := range tv {
			cp[i] = copyValue(sub)
		}
		return cp
	}
	return v
}

// CopyFrom copies a single setting value from other.
func (s *Settings) CopyFrom(other *Settings, name string) {
	s.Set(name, copyValue(other.Get(name)))
}

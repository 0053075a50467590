package settings

import "github.com/awesome-flow/eventgen/pkg/types"

// Kind defines how a raw setting value is coerced.
type Kind uint8

const (
	// KindString values are passed through as strings.
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	// KindJSON values are decoded into nested maps and slices.
	KindJSON
	// KindEnum values must belong to the descriptor choices.
	KindEnum
	// KindDelegate values are coerced by the descriptor delegate.
	KindDelegate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindJSON:
		return "json"
	case KindEnum:
		return "enum"
	case KindDelegate:
		return "delegate"
	}
	return "unknown"
}

// DelegateFunc coerces a raw value of a KindDelegate setting.
type DelegateFunc func(raw types.Value) (types.Value, error)

// Descriptor describes a single setting: its coercion rule and whether the
// global stanza value serves as a default for samples leaving it unset.
type Descriptor struct {
	Name        string
	Kind        Kind
	Choices     []string
	Delegate    DelegateFunc
	Defaultable bool
}

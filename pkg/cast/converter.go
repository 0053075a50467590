package cast

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// Converter is a primary interface for converting actors. It represents an
// act of best-effort converstion: either converts or gives up.
type Converter interface {
	// Convert is the function a Converter is expected to define. Returns
	// a converted value and a boolean flag indicating whether the conversion
	// took a place.
	Convert(kv *types.KeyValue) (*types.KeyValue, bool)
}

// IdentityConverter represents an identity function returning the original
// value and a success flag.
type IdentityConverter struct{}

var _ Converter = (*IdentityConverter)(nil)

// Convert returns the kv pair itself and true, no matter what value is provided.
func (*IdentityConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	return kv, true
}

// StrToBoolConverter converts a string to a bool the way sample stanzas
// expect it: "0", "false", "False" and the empty string are false, any other
// string is true.
type StrToBoolConverter struct{}

var _ Converter = (*StrToBoolConverter)(nil)

func (*StrToBoolConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if sv, ok := kv.Value.(string); ok {
		switch strings.TrimSpace(sv) {
		case "", "0", "false", "False":
			return &types.KeyValue{Key: kv.Key, Value: false}, true
		}
		return &types.KeyValue{Key: kv.Key, Value: true}, true
	}
	return nil, false
}

// StrToIntConverter performs conventional conversion from a string to int.
type StrToIntConverter struct{}

var _ Converter = (*StrToIntConverter)(nil)

// Convert returns an int, true if the trimmed argument value can be parsed
// with strconv.Atoi. Returns nil, false otherwise.
func (*StrToIntConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if sv, ok := kv.Value.(string); ok {
		s, err := strconv.Atoi(strings.TrimSpace(sv))
		if err == nil {
			return &types.KeyValue{Key: kv.Key, Value: s}, true
		}
	}
	return nil, false
}

// StrToFloatConverter converts a string to float64.
type StrToFloatConverter struct{}

var _ Converter = (*StrToFloatConverter)(nil)

func (*StrToFloatConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if sv, ok := kv.Value.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(sv), 64)
		if err == nil {
			return &types.KeyValue{Key: kv.Key, Value: f}, true
		}
	}
	return nil, false
}

// StrToJSONConverter decodes a JSON document into nested maps and slices.
type StrToJSONConverter struct{}

var _ Converter = (*StrToJSONConverter)(nil)

// Convert returns the decoded document, true if the argument value is a
// string holding valid JSON. Returns nil, false otherwise.
func (*StrToJSONConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if sv, ok := kv.Value.(string); ok {
		var v interface{}
		if err := json.Unmarshal([]byte(sv), &v); err == nil {
			return &types.KeyValue{Key: kv.Key, Value: v}, true
		}
	}
	return nil, false
}

// IntToBoolConverter converts an int to bool: zero is false, anything else
// is true.
type IntToBoolConverter struct{}

var _ Converter = (*IntToBoolConverter)(nil)

func (*IntToBoolConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if iv, ok := kv.Value.(int); ok {
		return &types.KeyValue{Key: kv.Key, Value: iv != 0}, true
	}
	return nil, false
}

// IntToStrConverter performs an int to string conversion.
type IntToStrConverter struct{}

var _ Converter = (*IntToStrConverter)(nil)

func (*IntToStrConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if iv, ok := kv.Value.(int); ok {
		return &types.KeyValue{Key: kv.Key, Value: strconv.Itoa(iv)}, true
	}
	return nil, false
}

// IntToFloatConverter widens an int to float64.
type IntToFloatConverter struct{}

var _ Converter = (*IntToFloatConverter)(nil)

func (*IntToFloatConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if iv, ok := kv.Value.(int); ok {
		return &types.KeyValue{Key: kv.Key, Value: float64(iv)}, true
	}
	return nil, false
}

// IfIntConverter performs int type enforcement: marks the conversion as
// successful if the value is already an int.
type IfIntConverter struct{}

var _ Converter = (*IfIntConverter)(nil)

func (*IfIntConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if _, ok := kv.Value.(int); ok {
		return kv, true
	}
	return nil, false
}

// IfFloatConverter marks the conversion as successful if the value is
// already a float64.
type IfFloatConverter struct{}

var _ Converter = (*IfFloatConverter)(nil)

func (*IfFloatConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if _, ok := kv.Value.(float64); ok {
		return kv, true
	}
	return nil, false
}

// IfStrConverter performs string type enforcement: marks the conversion as
// successful if the value is already a string.
type IfStrConverter struct{}

var _ Converter = (*IfStrConverter)(nil)

func (*IfStrConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if _, ok := kv.Value.(string); ok {
		return kv, true
	}
	return nil, false
}

// IfBoolConverter performs bool type enforcement: marks the conversion as
// successful if the value is already a bool.
type IfBoolConverter struct{}

var _ Converter = (*IfBoolConverter)(nil)

func (*IfBoolConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	if _, ok := kv.Value.(bool); ok {
		return kv, true
	}
	return nil, false
}

// IfJSONConverter accepts values that are already decoded JSON containers.
type IfJSONConverter struct{}

var _ Converter = (*IfJSONConverter)(nil)

func (*IfJSONConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	switch kv.Value.(type) {
	case map[string]interface{}, []interface{}:
		return kv, true
	}
	return nil, false
}

// EnumConverter accepts a string value that belongs to a fixed list of
// choices.
type EnumConverter struct {
	choices []string
}

var _ Converter = (*EnumConverter)(nil)

func NewEnumConverter(choices ...string) *EnumConverter {
	return &EnumConverter{choices: choices}
}

func (ec *EnumConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	sv, ok := kv.Value.(string)
	if !ok {
		return nil, false
	}
	for _, choice := range ec.choices {
		if sv == choice {
			return kv, true
		}
	}
	return nil, false
}

//======== Composite converters =======

// CompositionStrategy is a family of constants defining the logic of a
// composition chain.
type CompositionStrategy uint8

const (
	// CompNone means none of the chain components have to succeed. A no-op
	// logic, the chain always returns success.
	CompNone CompositionStrategy = iota
	// CompAnd means all components of the chain have to succeed in order to
	// mark the conversion successful. Returns the last successful conversion
	// result.
	CompAnd
	// CompOr means at least 1 component of the chain have to succeed in order
	// to mark the conversion successful. Returns the first successful conversion
	// result.
	CompOr
)

// CompositeConverter implements a composite conversion logic defined by some
// specific conversion strategy.
type CompositeConverter struct {
	strategy   CompositionStrategy
	converters []Converter
}

// NewCompositeConverter is the constructor for a new CompositeStrategy chain.
// Accepts the conversion strategy and a list of conversion chain components.
func NewCompositeConverter(strategy CompositionStrategy, convs ...Converter) *CompositeConverter {
	return &CompositeConverter{
		strategy:   strategy,
		converters: convs,
	}
}

// Convert executes the conversion logic defined by the conversion strategy.
func (cc *CompositeConverter) Convert(kv *types.KeyValue) (*types.KeyValue, bool) {
	switch cc.strategy {
	case CompNone:
		return kv, true
	case CompAnd:
		mkv := kv
		var ok bool
		for _, conv := range cc.converters {
			mkv, ok = conv.Convert(mkv)
			if !ok {
				return nil, false
			}
		}
		return mkv, ok
	case CompOr:
		for _, conv := range cc.converters {
			if mkv, ok := conv.Convert(kv); ok {
				return mkv, ok
			}
		}
		return nil, false
	}
	return nil, false
}

var (
	// Identity is an initialized instance of IdentityConverter
	Identity *IdentityConverter

	StrToBool  *StrToBoolConverter
	StrToInt   *StrToIntConverter
	StrToFloat *StrToFloatConverter
	StrToJSON  *StrToJSONConverter
	IntToBool  *IntToBoolConverter
	IntToStr   *IntToStrConverter
	IntToFloat *IntToFloatConverter

	IfInt   *IfIntConverter
	IfFloat *IfFloatConverter
	IfStr   *IfStrConverter
	IfBool  *IfBoolConverter
	IfJSON  *IfJSONConverter

	// ToInt enforces an int or a string holding an int to int.
	ToInt *CompositeConverter
	// ToFloat enforces a float, an int or a numeric string to float64.
	ToFloat *CompositeConverter
	// ToStr enforces a string or an int to string.
	ToStr *CompositeConverter
	// ToBool enforces a bool, a string or an int to bool.
	ToBool *CompositeConverter
	// ToJSON enforces a decoded JSON container or a JSON string to a
	// decoded container.
	ToJSON *CompositeConverter
)

func init() {
	ToInt = NewCompositeConverter(CompOr, IfInt, StrToInt)
	ToFloat = NewCompositeConverter(CompOr, IfFloat, IntToFloat, StrToFloat)
	ToStr = NewCompositeConverter(CompOr, IfStr, IntToStr)
	ToBool = NewCompositeConverter(CompOr, IfBool, StrToBool, IntToBool)
	ToJSON = NewCompositeConverter(CompOr, IfJSON, StrToJSON)
}

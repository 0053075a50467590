package settings

import (
	"fmt"
	"time"

	"github.com/awesome-flow/eventgen/pkg/cast"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Timezone is a validated timezone setting: either the local zone or a fixed
// offset from UTC.
type Timezone struct {
	Local  bool
	Offset time.Duration
}

var LocalTimezone = Timezone{Local: true}

// ParseTimezone accepts "local" or a signed HHMM offset, e.g. "-0830".
func ParseTimezone(raw types.Value) (types.Value, error) {
	if s, ok := raw.(string); ok && s == "local" {
		return LocalTimezone, nil
	}
	kv, ok := cast.ToInt.Convert(&types.KeyValue{Value: raw})
	if !ok {
		return nil, fmt.Errorf("timezone must be \"local\" or a HHMM offset, got %v", raw)
	}
	v := kv.Value.(int)
	return Timezone{
		Offset: time.Duration(v/100)*time.Hour + time.Duration(v%100)*time.Minute,
	}, nil
}

// ParseCount coerces count to int. Zero means "all events" and is stored as -1.
func ParseCount(raw types.Value) (types.Value, error) {
	kv, ok := cast.ToInt.Convert(&types.KeyValue{Value: raw})
	if !ok {
		return nil, fmt.Errorf("count must be an integer, got %v", raw)
	}
	if kv.Value.(int) == 0 {
		return -1, nil
	}
	return kv.Value, nil
}

package settings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/cast"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// TokenField is the validation result of a "token.<index>.<field>" key.
type TokenField struct {
	Index int
	Field string
	Value string
}

// HostField is the validation result of a "host.<field>" key.
type HostField struct {
	Field string
	Value string
}

// ACL is the validation result of the access-control key carrying the app
// identity of a stanza.
type ACL struct {
	App string
}

var (
	tokenKeyRe = regexp.MustCompile(`^token\.(\d+)\.(\w+)$`)
	hostKeyRe  = regexp.MustCompile(`^host\.(\w+)$`)
)

// Validate coerces a raw stanza value to the type the catalog declares for
// key. Token, host and ACL keys are returned as TokenField, HostField and ACL
// respectively. Unknown keys are passed through with a warning. A nil raw
// value stands for an unset setting and validates to nil.
func (c *Catalog) Validate(stanza, key string, raw types.Value) (types.Value, error) {
	if raw == nil {
		return nil, nil
	}
	fail := func(err error) (types.Value, error) {
		return nil, &ValidationError{Stanza: stanza, Key: key, Value: raw, Err: err}
	}

	switch {
	case strings.HasPrefix(key, "token."):
		return c.validateToken(key, raw, fail)
	case strings.HasPrefix(key, "host."):
		return validateHost(key, raw, fail)
	case key == ACLKey:
		return validateACL(raw, fail)
	}

	desc, ok := c.Lookup(key)
	if !ok {
		log.WithFields(log.Fields{"module": "settings", "sample": stanza}).
			Warnf("Unknown setting %q, passing the value through", key)
		return raw, nil
	}

	in := &types.KeyValue{Key: types.NewKey(key), Value: raw}
	var conv cast.Converter
	switch desc.Kind {
	case KindString:
		if kv, ok := cast.ToStr.Convert(in); ok {
			return kv.Value, nil
		}
		return raw, nil
	case KindInt:
		conv = cast.ToInt
	case KindFloat:
		conv = cast.ToFloat
	case KindBool:
		conv = cast.ToBool
	case KindJSON:
		conv = cast.ToJSON
	case KindEnum:
		conv = cast.NewCompositeConverter(cast.CompAnd, cast.ToStr, cast.NewEnumConverter(desc.Choices...))
	case KindDelegate:
		v, err := desc.Delegate(raw)
		if err != nil {
			return fail(err)
		}
		return v, nil
	}
	kv, ok := conv.Convert(in)
	if !ok {
		if desc.Kind == KindEnum {
			return fail(fmt.Errorf("value is not one of %v", desc.Choices))
		}
		return fail(fmt.Errorf("value is not a valid %s", desc.Kind))
	}
	return kv.Value, nil
}

func (c *Catalog) validateToken(key string, raw types.Value, fail func(error) (types.Value, error)) (types.Value, error) {
	match := tokenKeyRe.FindStringSubmatch(key)
	if match == nil {
		return fail(ErrStructuralKey)
	}
	ix, err := strconv.Atoi(match[1])
	if err != nil {
		return fail(ErrStructuralKey)
	}
	field := match[2]
	kv, ok := cast.ToStr.Convert(&types.KeyValue{Value: raw})
	if !ok {
		return fail(fmt.Errorf("token value must be a string"))
	}
	val := kv.Value.(string)
	switch field {
	case FieldToken, FieldReplacement:
	case FieldReplacementType:
		if !contains(ReplacementTypes, val) {
			return fail(fmt.Errorf("unknown replacement type %q", val))
		}
	default:
		return fail(fmt.Errorf("unknown token field %q", field))
	}
	return TokenField{Index: ix, Field: field, Value: val}, nil
}

func validateHost(key string, raw types.Value, fail func(error) (types.Value, error)) (types.Value, error) {
	match := hostKeyRe.FindStringSubmatch(key)
	if match == nil {
		return fail(fmt.Errorf("malformed host token key"))
	}
	field := match[1]
	if field != FieldToken && field != FieldReplacement {
		return fail(fmt.Errorf("unknown host token field %q", field))
	}
	kv, ok := cast.ToStr.Convert(&types.KeyValue{Value: raw})
	if !ok {
		return fail(fmt.Errorf("host token value must be a string"))
	}
	return HostField{Field: field, Value: kv.Value.(string)}, nil
}

func validateACL(raw types.Value, fail func(error) (types.Value, error)) (types.Value, error) {
	var app interface{}
	switch v := raw.(type) {
	case ACL:
		return v, nil
	case string:
		app = v
	case map[string]interface{}:
		app = v["app"]
	case map[string]string:
		app = v["app"]
	}
	if s, ok := app.(string); ok && len(s) > 0 {
		return ACL{App: s}, nil
	}
	return fail(fmt.Errorf("access control entry carries no app"))
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

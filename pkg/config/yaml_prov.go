package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// YamlProv reads stanzas from a YAML document mapping stanza names to
// settings:
//
//   global:
//     outputMode: stdout
//   web.*:
//     interval: 10
//     token.0.token: \d{2}
type YamlProv struct {
	path     string
	app      string
	weight   uint32
	optional bool
	stanzas  []*types.Stanza
}

var _ Provider = (*YamlProv)(nil)

func NewYamlProv(path, app string, weight uint32, optional bool) *YamlProv {
	return &YamlProv{
		path:     path,
		app:      app,
		weight:   weight,
		optional: optional,
	}
}

func (y *YamlProv) Setup() error {
	return nil
}

func (y *YamlProv) Resolve() error {
	rawData, err := ioutil.ReadFile(y.path)
	if err != nil {
		if os.IsNotExist(err) && y.optional {
			y.stanzas = nil
			return nil
		}
		return errors.Wrapf(err, "failed to read %s", y.path)
	}
	stanzas, err := parseYamlStanzas(rawData)
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", y.path)
	}
	for _, st := range stanzas {
		attributeApp(st, y.app)
	}
	y.stanzas = stanzas
	return nil
}

func parseYamlStanzas(rawData []byte) ([]*types.Stanza, error) {
	doc := yaml.MapSlice{}
	if err := yaml.Unmarshal(rawData, &doc); err != nil {
		return nil, err
	}
	stanzas := make([]*types.Stanza, 0, len(doc))
	for _, item := range doc {
		name := fmt.Sprintf("%v", item.Key)
		st := types.NewStanza(name)
		if item.Value != nil {
			params, ok := item.Value.(yaml.MapSlice)
			if !ok {
				return nil, fmt.Errorf("stanza %q is not a mapping", name)
			}
			for _, kv := range params {
				st.Set(fmt.Sprintf("%v", kv.Key), normalize(kv.Value))
			}
		}
		stanzas = append(stanzas, st)
	}
	return stanzas, nil
}

// normalize converts YAML containers to JSON-like maps and slices.
func normalize(v interface{}) interface{} {
	switch tv := v.(type) {
	case yaml.MapSlice:
		res := make(map[string]interface{}, len(tv))
		for _, item := range tv {
			res[fmt.Sprintf("%v", item.Key)] = normalize(item.Value)
		}
		return res
	case map[interface{}]interface{}:
		res := make(map[string]interface{}, len(tv))
		for k, sub := range tv {
			res[fmt.Sprintf("%v", k)] = normalize(sub)
		}
		return res
	case []interface{}:
		res := make([]interface{}, len(tv))
		for i, sub := range tv {
			res[i] = normalize(sub)
		}
		return res
	}
	return v
}

func (y *YamlProv) Stanzas() []*types.Stanza {
	return y.stanzas
}

func (y *YamlProv) GetWeight() uint32 {
	return y.weight
}

func (y *YamlProv) DependsOn() []string {
	return []string{}
}

func (y *YamlProv) GetName() string {
	return "yaml:" + y.path
}

package explain

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v2"

	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/sample"
)

// Explainer renders a human readable view of its input.
type Explainer interface {
	Explain(in interface{}) ([]byte, error)
}

// Config dumps a resolved configuration as YAML: the global settings first,
// then one document section per sample in resolution order.
type Config struct{}

var _ Explainer = (*Config)(nil)

func (c *Config) Explain(in interface{}) ([]byte, error) {
	cfg, ok := in.(*resolver.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected input type: %s", reflect.TypeOf(in))
	}
	samples := make(yaml.MapSlice, 0, len(cfg.Samples))
	for _, s := range cfg.Samples {
		samples = append(samples, yaml.MapItem{Key: s.Name, Value: explainSample(s)})
	}
	doc := yaml.MapSlice{
		{Key: resolver.GlobalStanza, Value: explainSettings(cfg.Global)},
		{Key: "samples", Value: samples},
	}
	return yaml.Marshal(doc)
}

func explainSettings(s *sample.Settings) yaml.MapSlice {
	res := make(yaml.MapSlice, 0)
	for _, name := range s.Names() {
		res = append(res, yaml.MapItem{Key: name, Value: s.Get(name)})
	}
	return res
}

func explainSample(s *sample.Sample) yaml.MapSlice {
	res := yaml.MapSlice{
		{Key: "stanza", Value: s.OrigName},
		{Key: "app", Value: s.App},
		{Key: "priority", Value: s.Priority},
	}
	if len(s.FilePath) > 0 {
		res = append(res, yaml.MapItem{Key: "file", Value: s.FilePath})
	}
	if len(s.Tokens) > 0 {
		tokens := make([]yaml.MapSlice, 0, len(s.Tokens))
		for _, t := range s.Tokens {
			tokens = append(tokens, yaml.MapSlice{
				{Key: "index", Value: t.Index},
				{Key: "token", Value: t.Token},
				{Key: "replacementType", Value: t.ReplacementType},
				{Key: "replacement", Value: t.Replacement},
			})
		}
		res = append(res, yaml.MapItem{Key: "tokens", Value: tokens})
	}
	if s.HostToken != nil {
		res = append(res, yaml.MapItem{Key: "host", Value: yaml.MapSlice{
			{Key: "token", Value: s.HostToken.Token},
			{Key: "replacement", Value: s.HostToken.Replacement},
		}})
	}
	res = append(res, yaml.MapItem{Key: "settings", Value: explainSettings(s.Settings)})
	return res
}

package config

import (
	"os"

	"github.com/pkg/errors"
	ini "gopkg.in/ini.v1"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// IniProv reads stanzas from an INI-style .conf file.
type IniProv struct {
	path     string
	app      string
	weight   uint32
	optional bool
	stanzas  []*types.Stanza
}

var _ Provider = (*IniProv)(nil)

// NewIniProv creates a provider for path. Every stanza is attributed to app.
// A missing optional file yields no stanzas.
func NewIniProv(path, app string, weight uint32, optional bool) *IniProv {
	return &IniProv{
		path:     path,
		app:      app,
		weight:   weight,
		optional: optional,
	}
}

func (p *IniProv) Setup() error {
	return nil
}

func (p *IniProv) Resolve() error {
	if _, err := os.Stat(p.path); os.IsNotExist(err) && p.optional {
		p.stanzas = nil
		return nil
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		IgnoreContinuation:  true,
		KeyValueDelimiters:  "=",
	}, p.path)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", p.path)
	}
	stanzas := make([]*types.Stanza, 0)
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		st := types.NewStanza(sec.Name())
		for _, key := range sec.Keys() {
			st.Set(key.Name(), key.String())
		}
		attributeApp(st, p.app)
		stanzas = append(stanzas, st)
	}
	p.stanzas = stanzas
	return nil
}

func (p *IniProv) Stanzas() []*types.Stanza {
	return p.stanzas
}

func (p *IniProv) GetWeight() uint32 {
	return p.weight
}

func (p *IniProv) DependsOn() []string {
	return []string{}
}

func (p *IniProv) GetName() string {
	return "ini:" + p.path
}

func attributeApp(st *types.Stanza, app string) {
	if len(app) == 0 {
		return
	}
	if _, ok := st.Get(ACLKey); ok {
		return
	}
	st.Set(ACLKey, map[string]interface{}{"app": app})
}

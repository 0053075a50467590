package config

import (
	"os"
	"strings"

	"github.com/awesome-flow/eventgen/pkg/types"
)

const (
	EnvProvName = "env"
	// EnvGlobalPrefix marks environment variables overriding global
	// settings, e.g. EVENTGEN_GLOBAL_outputMode=file.
	EnvGlobalPrefix = "EVENTGEN_GLOBAL_"

	GlobalStanzaName = "global"
)

type EnvProv struct {
	environ func() []string
	stanza  *types.Stanza
}

var _ Provider = (*EnvProv)(nil)

func NewEnvProv() *EnvProv {
	return &EnvProv{environ: os.Environ}
}

func (e *EnvProv) Setup() error {
	return nil
}

func (e *EnvProv) Resolve() error {
	stanza := types.NewStanza(GlobalStanzaName)
	for _, kvPair := range e.environ() {
		if !strings.HasPrefix(kvPair, EnvGlobalPrefix) {
			continue
		}
		kvPair = kvPair[len(EnvGlobalPrefix):]
		ix := strings.Index(kvPair, "=")
		if ix <= 0 {
			continue
		}
		stanza.Set(kvPair[:ix], kvPair[ix+1:])
	}
	e.stanza = stanza
	return nil
}

func (e *EnvProv) Stanzas() []*types.Stanza {
	if e.stanza == nil || e.stanza.Len() == 0 {
		return nil
	}
	return []*types.Stanza{e.stanza}
}

func (e *EnvProv) GetWeight() uint32 {
	return 40
}

func (e *EnvProv) DependsOn() []string {
	return []string{}
}

func (e *EnvProv) GetName() string {
	return EnvProvName
}

package config

import "github.com/awesome-flow/eventgen/pkg/types"

const (
	DefaultProvName = "default"
)

// defaultGlobal holds the built-in global settings every configuration
// starts from.
var defaultGlobal = [][2]string{
	{"disabled", "false"},
	{"blacklist", `.*\.part`},
	{"spoolDir", "spool"},
	{"spoolFile", "<SAMPLE>"},
	{"breaker", `[^\r\n\s]+`},
	{"mode", "sample"},
	{"sampletype", "raw"},
	{"interval", "60"},
	{"delay", "0"},
	{"timeMultiple", "1"},
	{"count", "0"},
	{"earliest", "now"},
	{"latest", "now"},
	{"randomizeCount", "0.2"},
	{"randomizeEvents", "false"},
	{"outputMode", "stdout"},
	{"fileMaxBytes", "10485760"},
	{"fileBackupFiles", "5"},
	{"index", "main"},
	{"source", "eventgen"},
	{"sourcetype", "eventgen"},
	{"host", "127.0.0.1"},
	{"generator", "default"},
	{"rater", "config"},
	{"timeField", "_raw"},
	{"threading", "thread"},
	{"queueing", "inprocess"},
	{"outputWorkers", "1"},
	{"generatorWorkers", "1"},
	{"maxIntervalsBeforeFlush", "3"},
	{"maxQueueLength", "0"},
	{"useOutputQueue", "true"},
	{"queueBaseName", "eventgen"},
}

type DefaultProv struct {
	stanza *types.Stanza
}

var _ Provider = (*DefaultProv)(nil)

func NewDefaultProv() *DefaultProv {
	return &DefaultProv{}
}

func (d *DefaultProv) Setup() error {
	d.stanza = types.NewStanza(GlobalStanzaName)
	for _, kv := range defaultGlobal {
		d.stanza.Set(kv[0], kv[1])
	}
	return nil
}

func (d *DefaultProv) Stanzas() []*types.Stanza {
	return []*types.Stanza{d.stanza}
}

func (d *DefaultProv) GetWeight() uint32 {
	return 0
}

func (d *DefaultProv) Resolve() error {
	return nil
}

func (d *DefaultProv) DependsOn() []string {
	return []string{}
}

func (d *DefaultProv) GetName() string {
	return DefaultProvName
}

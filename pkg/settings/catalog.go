package settings

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog is the registry of known settings. It is extended during startup
// (plugins contribute descriptors and choices) and frozen before the first
// configuration is resolved.
type Catalog struct {
	mx          sync.RWMutex
	descriptors map[string]*Descriptor
	frozen      bool
}

func NewCatalog() *Catalog {
	cat := &Catalog{descriptors: make(map[string]*Descriptor)}
	if err := cat.Register(builtins()...); err != nil {
		panic(err)
	}
	return cat
}

// Register adds new setting descriptors. Registering a name twice is an error
// unless both descriptors are of the same kind, in which case the choices are
// merged.
func (c *Catalog) Register(descs ...Descriptor) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.frozen {
		return fmt.Errorf("settings catalog is frozen")
	}
	for _, desc := range descs {
		if len(desc.Name) == 0 {
			return fmt.Errorf("setting descriptor with an empty name")
		}
		if desc.Kind == KindDelegate && desc.Delegate == nil {
			return fmt.Errorf("delegate setting %q has no delegate func", desc.Name)
		}
		if prev, ok := c.descriptors[desc.Name]; ok {
			if prev.Kind != desc.Kind {
				return fmt.Errorf("setting %q is already registered as %s", desc.Name, prev.Kind)
			}
			prev.Choices = appendUnique(prev.Choices, desc.Choices...)
			continue
		}
		d := desc
		d.Choices = append([]string(nil), desc.Choices...)
		c.descriptors[d.Name] = &d
	}
	return nil
}

// AddChoices widens the list of accepted values of an enum setting.
func (c *Catalog) AddChoices(name string, choices ...string) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.frozen {
		return fmt.Errorf("settings catalog is frozen")
	}
	desc, ok := c.descriptors[name]
	if !ok {
		return fmt.Errorf("unknown setting %q", name)
	}
	if desc.Kind != KindEnum {
		return fmt.Errorf("setting %q is not an enum", name)
	}
	desc.Choices = appendUnique(desc.Choices, choices...)
	return nil
}

// Freeze makes the catalog read-only.
func (c *Catalog) Freeze() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.frozen = true
}

func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	c.mx.RLock()
	defer c.mx.RUnlock()
	desc, ok := c.descriptors[name]
	if !ok {
		return Descriptor{}, false
	}
	return *desc, true
}

// Defaultable returns the sorted names of the settings samples inherit from
// the global stanza.
func (c *Catalog) Defaultable() []string {
	c.mx.RLock()
	defer c.mx.RUnlock()
	res := make([]string, 0)
	for name, desc := range c.descriptors {
		if desc.Defaultable {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}

func (c *Catalog) Names() []string {
	c.mx.RLock()
	defer c.mx.RUnlock()
	res := make([]string, 0, len(c.descriptors))
	for name := range c.descriptors {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func appendUnique(to []string, vals ...string) []string {
	for _, v := range vals {
		found := false
		for _, existing := range to {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			to = append(to, v)
		}
	}
	return to
}

func builtins() []Descriptor {
	str := func(name string, defaultable bool) Descriptor {
		return Descriptor{Name: name, Kind: KindString, Defaultable: defaultable}
	}
	typed := func(name string, kind Kind, defaultable bool) Descriptor {
		return Descriptor{Name: name, Kind: kind, Defaultable: defaultable}
	}
	enum := func(name string, defaultable bool, choices ...string) Descriptor {
		return Descriptor{Name: name, Kind: KindEnum, Choices: choices, Defaultable: defaultable}
	}

	return []Descriptor{
		typed(Disabled, KindBool, true),
		str(Blacklist, false),
		str(UserNameKey, false),
		str(AppNameKey, false),
		str(SpoolDir, true),
		str(SpoolFile, true),
		str("breaker", true),
		enum("sampletype", true, "raw", "csv"),
		typed(Interval, KindInt, true),
		typed("delay", KindFloat, true),
		{Name: Count, Kind: KindDelegate, Delegate: ParseCount, Defaultable: true},
		typed("bundlelines", KindBool, true),
		str(Earliest, true),
		str(Latest, true),
		typed(HourOfDayRate, KindJSON, true),
		typed(DayOfWeekRate, KindJSON, true),
		typed(MinuteOfHourRate, KindJSON, true),
		typed(DayOfMonthRate, KindJSON, true),
		typed(MonthOfYearRate, KindJSON, true),
		typed(RandomizeCount, KindFloat, true),
		typed("randomizeEvents", KindBool, true),
		enum(OutputMode, true),
		str(FileName, false),
		typed(FileMaxBytes, KindInt, true),
		typed(FileBackupFiles, KindInt, true),
		str("splunkHost", true),
		str("splunkPort", true),
		str("splunkMethod", true),
		str("index", true),
		str("source", true),
		str("sourcetype", true),
		str("host", true),
		str("hostRegex", true),
		str("projectID", true),
		str("accessToken", true),
		str("sessionKey", true),
		enum(Mode, true, ModeSample, ModeReplay),
		str("backfill", false),
		str("backfillSearch", false),
		typed("timeMultiple", KindFloat, true),
		typed(Debug, KindBool, false),
		typed(Verbose, KindBool, false),
		typed("profiler", KindBool, false),
		{Name: TimezoneKey, Kind: KindDelegate, Delegate: ParseTimezone},
		enum(Generator, true),
		enum(Rater, true),
		str("timeField", true),
		str(SampleDir, false),
		enum(Threading, false, ThreadingThread, ThreadingProcess),
		enum(Queueing, false, QueueingInProcess, QueueingNATS, QueueingRedis),
		typed(OutputWorkers, KindInt, false),
		typed(GeneratorWorkers, KindInt, false),
		typed("maxIntervalsBeforeFlush", KindInt, true),
		typed(MaxQueueLength, KindInt, true),
		typed(UseOutputQueue, KindBool, false),
		str(NatsURL, false),
		str(RedisAddr, false),
		str(QueueBaseName, false),
		str(MetricsLog, false),
		str(GraphiteHost, false),
		typed(GraphitePort, KindInt, false),
		str(GraphitePrefix, false),
		typed(GraphiteInterval, KindInt, false),
	}
}

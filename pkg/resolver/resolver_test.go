package resolver

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

var acl = map[string]interface{}{"app": "myapp"}

var ignoreAssigned = cmpopts.IgnoreUnexported(sample.Token{})

func stanza(name string, params ...interface{}) *types.Stanza {
	st := types.NewStanza(name)
	for i := 0; i+1 < len(params); i += 2 {
		st.Set(params[i].(string), params[i+1])
	}
	return st
}

// sampleHome creates an app home with a samples directory holding files.
func sampleHome(t *testing.T, files ...string) string {
	home := t.TempDir()
	dir := filepath.Join(home, SamplesDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create sample dir: %s", err)
	}
	for _, f := range files {
		if err := ioutil.WriteFile(filepath.Join(dir, f), []byte("line\n"), 0644); err != nil {
			t.Fatalf("failed to create sample file: %s", err)
		}
	}
	return home
}

func newTestResolver(t *testing.T, home string) *Resolver {
	cat := settings.NewCatalog()
	if err := cat.AddChoices(settings.OutputMode, "stdout", "file", "spool", "devnull"); err != nil {
		t.Fatalf("failed to extend the catalog: %s", err)
	}
	if err := cat.AddChoices(settings.Generator, "default", "replay"); err != nil {
		t.Fatalf("failed to extend the catalog: %s", err)
	}
	r, err := New(cat, Options{Home: home, WorkDir: filepath.Join(home, "bin")})
	if err != nil {
		t.Fatalf("failed to create resolver: %s", err)
	}
	return r
}

func resolve(t *testing.T, home string, stanzas ...*types.Stanza) *Config {
	cfg, err := newTestResolver(t, home).Resolve(stanzas)
	if err != nil {
		t.Fatalf("unexpected resolution error: %s", err)
	}
	return cfg
}

func TestResolve_SingleSampleSingleToken(t *testing.T) {
	home := sampleHome(t, "sample")
	cfg := resolve(t, home,
		stanza("global", "outputMode", nil, "disabled", "false"),
		stanza("sample",
			"eai:acl", acl,
			"token.0.token", "foo",
			"token.0.replacementType", "static",
			"token.0.replacement", "bar",
		),
	)
	if len(cfg.Samples) != 1 {
		t.Fatalf("unexpected number of samples: got: %d, want: 1", len(cfg.Samples))
	}
	s := cfg.Samples[0]
	want := []*sample.Token{{Index: 0, Token: "foo", ReplacementType: "static", Replacement: "bar"}}
	if diff := cmp.Diff(want, s.Tokens, ignoreAssigned); diff != "" {
		t.Errorf("unexpected tokens (-want +got):\n%s", diff)
	}
	if s.App != "myapp" {
		t.Errorf("unexpected app: %q", s.App)
	}
	if s.FilePath != filepath.Join(home, SamplesDirName, "sample") {
		t.Errorf("unexpected file path: %q", s.FilePath)
	}
	if s.Priority != 1 {
		t.Errorf("unexpected priority: %d", s.Priority)
	}
	if cfg.Report != nil {
		t.Errorf("unexpected report: %s", cfg.Report)
	}
}

func TestResolve_TokenCompaction(t *testing.T) {
	home := sampleHome(t, "web.log")
	cfg := resolve(t, home,
		stanza("web.log",
			"eai:acl", acl,
			"token.0.token", "a", "token.0.replacementType", "static", "token.0.replacement", "A",
			"token.2.token", "c", "token.2.replacementType", "random", "token.2.replacement", "integer[0:9]",
			"token.5.token", "f", "token.5.replacementType", "static",
		),
	)
	want := []*sample.Token{
		{Index: 0, Token: "a", ReplacementType: "static", Replacement: "A"},
		{Index: 1, Token: "c", ReplacementType: "random", Replacement: "integer[0:9]"},
	}
	if diff := cmp.Diff(want, cfg.Samples[0].Tokens, ignoreAssigned); diff != "" {
		t.Errorf("unexpected tokens (-want +got):\n%s", diff)
	}
}

func TestResolve_EmptyReplacementIsKept(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "sampleA"),
		stanza("sampleA",
			"eai:acl", acl,
			"token.0.token", "DEBUG ",
			"token.0.replacementType", "static",
			"token.0.replacement", "",
		),
	)
	if len(cfg.Samples) != 1 {
		t.Fatalf("unexpected number of samples: got: %d, want: 1", len(cfg.Samples))
	}
	want := []*sample.Token{{Index: 0, Token: "DEBUG ", ReplacementType: "static", Replacement: ""}}
	if diff := cmp.Diff(want, cfg.Samples[0].Tokens, ignoreAssigned); diff != "" {
		t.Errorf("unexpected tokens (-want +got):\n%s", diff)
	}
}

func TestResolve_LiteralBeatsPattern(t *testing.T) {
	tests := []struct {
		name    string
		stanzas []*types.Stanza
	}{
		{"pattern first", []*types.Stanza{
			stanza("a*", "eai:acl", acl),
			stanza("abc", "eai:acl", acl),
		}},
		{"literal first", []*types.Stanza{
			stanza("abc", "eai:acl", acl),
			stanza("a*", "eai:acl", acl),
		}},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := resolve(t, sampleHome(t, "abc"), testCase.stanzas...)
			if len(cfg.Samples) != 1 {
				t.Fatalf("unexpected number of samples: got: %d, want: 1", len(cfg.Samples))
			}
			if got := cfg.Samples[0].OrigName; got != "abc" {
				t.Errorf("unexpected winner: got: %q, want: %q", got, "abc")
			}
		})
	}
}

func TestResolve_LongerPatternWins(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "access.log"),
		stanza("acc.*", "eai:acl", acl),
		stanza("access.*", "eai:acl", acl),
	)
	if len(cfg.Samples) != 1 || cfg.Samples[0].OrigName != "access.*" {
		t.Fatalf("unexpected winners: %+v", cfg.Samples)
	}
}

func TestResolve_EqualLengthPatternsEarliestWins(t *testing.T) {
	tests := []struct {
		name    string
		stanzas []*types.Stanza
		want    string
	}{
		{
			"ab. declared first",
			[]*types.Stanza{stanza("ab.", "eai:acl", acl), stanza("a.c", "eai:acl", acl)},
			"ab.",
		},
		{
			"a.c declared first",
			[]*types.Stanza{stanza("a.c", "eai:acl", acl), stanza("ab.", "eai:acl", acl)},
			"a.c",
		},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := resolve(t, sampleHome(t, "abc"), testCase.stanzas...)
			if len(cfg.Samples) != 1 {
				t.Fatalf("unexpected number of samples: got: %d, want: 1", len(cfg.Samples))
			}
			if got := cfg.Samples[0].OrigName; got != testCase.want {
				t.Errorf("unexpected winner: got: %q, want: %q", got, testCase.want)
			}
		})
	}
}

func TestResolve_RemoteMetadataIsNotCascaded(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "log.txt"),
		stanza("log.*", "eai:acl", acl, "eai:userName", "admin", "eai:appName", "search", "sourcetype", "generic"),
		stanza("log.txt", "eai:acl", acl),
	)
	if len(cfg.Samples) != 1 {
		t.Fatalf("unexpected number of samples: %d", len(cfg.Samples))
	}
	s := cfg.Samples[0]
	for _, key := range []string{settings.UserNameKey, settings.AppNameKey} {
		if s.IsSet(key) {
			t.Errorf("%s was cascaded: %v", key, s.Get(key))
		}
	}
	if got := s.Str("sourcetype"); got != "generic" {
		t.Errorf("unexpected sourcetype: got: %q, want: %q", got, "generic")
	}
}

func TestResolve_LockedSettingIsKept(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "log.txt"),
		stanza("global", "outputMode", "stdout"),
		stanza("log.*", "eai:acl", acl, "outputMode", "file", "fileName", "/tmp/out"),
		stanza("log.txt", "eai:acl", acl, "outputMode", "stdout"),
	)
	if len(cfg.Samples) != 1 {
		t.Fatalf("unexpected number of samples: %d", len(cfg.Samples))
	}
	s := cfg.Samples[0]
	if s.OutputMode() != "stdout" {
		t.Errorf("locked setting was overwritten: got: %q, want: %q", s.OutputMode(), "stdout")
	}
	if got := s.Str(settings.FileName); got != "/tmp/out" {
		t.Errorf("unlocked setting was not cascaded: got: %q", got)
	}
}

func TestResolve_CascadeFromPattern(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "log.txt"),
		stanza("global", "sourcetype", "eventgen"),
		stanza("log*", "eai:acl", acl, "sourcetype", "generic",
			"token.0.token", "p", "token.0.replacementType", "static", "token.0.replacement", "P"),
		stanza("log.txt", "eai:acl", acl,
			"token.0.token", "l", "token.0.replacementType", "static", "token.0.replacement", "L"),
	)
	if len(cfg.Samples) != 1 {
		t.Fatalf("unexpected number of samples: %d", len(cfg.Samples))
	}
	s := cfg.Samples[0]
	if s.Name != "log.txt" || s.OrigName != "log.txt" {
		t.Errorf("unexpected winner: %q from %q", s.Name, s.OrigName)
	}
	if got := s.Str("sourcetype"); got != "generic" {
		t.Errorf("unexpected sourcetype: got: %q, want: %q", got, "generic")
	}
	want := []*sample.Token{
		{Index: 0, Token: "p", ReplacementType: "static", Replacement: "P"},
		{Index: 1, Token: "l", ReplacementType: "static", Replacement: "L"},
	}
	if diff := cmp.Diff(want, s.Tokens, ignoreAssigned); diff != "" {
		t.Errorf("unexpected tokens (-want +got):\n%s", diff)
	}
}

func TestResolve_ReplayPolicy(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "replay.log"),
		stanza("replay.log", "eai:acl", acl,
			"mode", "replay",
			"count", "5",
			"interval", "30",
			"earliest", "-1h",
			"randomizeCount", "0.3",
			"hourOfDayRate", `{"0": 0.5}`,
			"dayOfMonthRate", `{"1": 1.0}`,
		),
	)
	s := cfg.Samples[0]
	if s.Count() != 1 {
		t.Errorf("unexpected count: %d", s.Count())
	}
	if s.Interval() != 0 {
		t.Errorf("unexpected interval: %d", s.Interval())
	}
	if s.Generator() != "replay" {
		t.Errorf("unexpected generator: %q", s.Generator())
	}
	for _, name := range []string{settings.Earliest, settings.Latest} {
		if got := s.Str(name); got != "now" {
			t.Errorf("unexpected %s: %q", name, got)
		}
	}
	for _, name := range []string{settings.RandomizeCount, settings.HourOfDayRate, settings.DayOfMonthRate} {
		if s.IsSet(name) {
			t.Errorf("expected %s to be unset, got: %v", name, s.Get(name))
		}
	}
}

func TestResolve_StanzaErrors(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "a", "b", "c"),
		stanza("a"),
		stanza("b", "eai:acl", acl, "token.x.token", "foo"),
		stanza("c", "eai:acl", acl, "interval", "soon"),
	)
	if len(cfg.Samples) != 1 || cfg.Samples[0].Name != "c" {
		t.Fatalf("unexpected samples: %+v", cfg.Samples)
	}
	if cfg.Samples[0].IsSet(settings.Interval) {
		t.Errorf("invalid value must be skipped")
	}
	if cfg.Report == nil {
		t.Fatalf("expected a resolution report")
	}
	var se *StanzaError
	if !errors.As(cfg.Report, &se) {
		t.Errorf("expected a stanza error in the report: %s", cfg.Report)
	}
}

func TestResolve_DefaultsAndDisabled(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "on", "off"),
		stanza("global", "interval", "15", "blacklist", "nothing", "disabled", "false"),
		stanza("default", "eai:acl", acl),
		stanza("on", "eai:acl", acl),
		stanza("off", "eai:acl", acl, "disabled", "true"),
		stanza("on", "eai:acl", acl, "interval", "99"),
	)
	if len(cfg.Samples) != 1 {
		t.Fatalf("unexpected number of samples: %d", len(cfg.Samples))
	}
	s := cfg.Samples[0]
	if s.Interval() != 15 {
		t.Errorf("unexpected interval: got: %d, want: 15", s.Interval())
	}
	if s.IsLocked(settings.Interval) {
		t.Errorf("inherited setting must not be locked")
	}
	if s.IsSet(settings.Blacklist) {
		t.Errorf("blacklist is not defaultable")
	}
}

func TestResolve_UnmatchedPlaceholder(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "other"),
		stanza("missing.*", "eai:acl", acl),
		stanza("gone", "eai:acl", acl),
	)
	if len(cfg.Samples) != 2 {
		t.Fatalf("unexpected number of samples: %d", len(cfg.Samples))
	}
	for _, s := range cfg.Samples {
		if s.FilePath != "" {
			t.Errorf("placeholder must have no file: %q", s.FilePath)
		}
	}
}

func TestResolve_Blacklist(t *testing.T) {
	cfg := resolve(t, sampleHome(t, "web.log", "web.log.part"),
		stanza("global", "blacklist", `.*\.part`),
		stanza("web.*", "eai:acl", acl),
	)
	if len(cfg.Samples) != 1 || cfg.Samples[0].Name != "web.log" {
		t.Fatalf("unexpected samples: %+v", cfg.Samples)
	}
}

func TestResolve_OutputPathSubstitution(t *testing.T) {
	home := sampleHome(t, "a.log", "b.log")
	cfg := resolve(t, home,
		stanza("global", "spoolFile", "<SAMPLE>", "spoolDir", "/var/spool"),
		stanza("a.*", "eai:acl", acl, "outputMode", "spool"),
		stanza("b.*", "eai:acl", acl, "outputMode", "file"),
	)
	a, ok := cfg.Sample("a.log")
	if !ok {
		t.Fatalf("sample a.log is missing")
	}
	if got := a.Str(settings.SpoolFile); got != "a.log" {
		t.Errorf("unexpected spool file: %q", got)
	}
	b, ok := cfg.Sample("b.log")
	if !ok {
		t.Fatalf("sample b.log is missing")
	}
	if got, want := b.Str(settings.FileName), filepath.Join("/var/spool", "b.log"); got != want {
		t.Errorf("unexpected file name: got: %q, want: %q", got, want)
	}
}

func TestResolve_IntegerIDState(t *testing.T) {
	home := sampleHome(t, "ids.log")
	if err := ioutil.WriteFile(filepath.Join(home, SamplesDirName, "state.user%20id"), []byte("1234"), 0644); err != nil {
		t.Fatalf("failed to write state: %s", err)
	}
	cfg := resolve(t, home,
		stanza("ids.log", "eai:acl", acl,
			"token.0.token", "user id", "token.0.replacementType", "integerid", "token.0.replacement", "1",
			"token.1.token", "other", "token.1.replacementType", "integerid", "token.1.replacement", "7",
		),
	)
	s := cfg.Samples[0]
	if s.Tokens[0].Replacement != "1234" {
		t.Errorf("state was not loaded: %q", s.Tokens[0].Replacement)
	}
	if s.Tokens[1].Replacement != "7" {
		t.Errorf("configured value must be kept without state: %q", s.Tokens[1].Replacement)
	}
}

func TestResolve_SampleDirResolution(t *testing.T) {
	home := t.TempDir()
	custom := filepath.Join(home, "tests", "fixtures")
	if err := os.MkdirAll(custom, 0755); err != nil {
		t.Fatalf("failed to create dir: %s", err)
	}
	if err := ioutil.WriteFile(filepath.Join(custom, "fx.log"), nil, 0644); err != nil {
		t.Fatalf("failed to write file: %s", err)
	}

	cfg := resolve(t, home, stanza("fx.log", "eai:acl", acl, "sampleDir", "tests/fixtures"))
	if got := cfg.Samples[0].SampleDir; got != custom {
		t.Errorf("unexpected sample dir: got: %q, want: %q", got, custom)
	}

	_, err := newTestResolver(t, home).Resolve([]*types.Stanza{stanza("fx.log", "eai:acl", acl)})
	var fatal *ConfigurationFatalError
	if !errors.As(err, &fatal) {
		t.Errorf("expected a fatal configuration error, got: %v", err)
	}
}

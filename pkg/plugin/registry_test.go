package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

type testOutput struct {
	sample string
	sent   [][]types.Event
}

func (o *testOutput) Flush(batch []types.Event) error {
	o.sent = append(o.sent, batch)
	return nil
}

type testGenerator struct{}

func (testGenerator) Generate(*sample.Sample, int) ([]types.Event, error) {
	return nil, nil
}

func testOutputDesc(name string) Descriptor {
	return Descriptor{
		Kind: KindOutput,
		Name: name,
		Settings: []settings.Descriptor{
			{Name: name + "Endpoint", Kind: settings.KindString, Defaultable: true},
		},
		NewOutput: func(s *sample.Sample) (Output, error) {
			return &testOutput{sample: s.Name}, nil
		},
	}
}

func sampleWithMode(name, mode string) *sample.Sample {
	s := sample.New(name)
	s.Set(settings.OutputMode, mode)
	return s
}

func TestRegistry_RegisterExtendsCatalog(t *testing.T) {
	cat := settings.NewCatalog()
	reg := NewRegistry(cat)
	if err := reg.Register(testOutputDesc("httpevent")); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if _, ok := cat.Lookup("httpeventEndpoint"); !ok {
		t.Errorf("Plugin setting is not in the catalog")
	}
	if v, err := cat.Validate("s", settings.OutputMode, "httpevent"); err != nil || v != "httpevent" {
		t.Errorf("Unexpected outputMode validation: %v, %v", v, err)
	}
	if _, err := cat.Validate("s", settings.OutputMode, "kafka"); err == nil {
		t.Errorf("Expected an unregistered outputMode to be rejected")
	}
}

func TestRegistry_RegisterRejects(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{"no name", Descriptor{Kind: KindOutput, NewOutput: testOutputDesc("x").NewOutput}},
		{"uppercase", testOutputDesc("Stdout")},
		{"no builder", Descriptor{Kind: KindGenerator, Name: "gen"}},
		{"unknown kind", Descriptor{Kind: "sink", Name: "x"}},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			reg := NewRegistry(settings.NewCatalog())
			if err := reg.Register(testCase.desc); err == nil {
				t.Errorf("Expected registration to fail")
			}
		})
	}

	reg := NewRegistry(settings.NewCatalog())
	if err := reg.Register(testOutputDesc("stdout")); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if err := reg.Register(testOutputDesc("stdout")); err == nil {
		t.Errorf("Expected a duplicate registration to fail")
	}
}

func TestRegistry_Bind(t *testing.T) {
	reg := NewRegistry(settings.NewCatalog())
	if err := reg.Register(testOutputDesc("stdout")); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if err := reg.Bind(sampleWithMode("web.log", "STDOUT")); err != nil {
		t.Fatalf("Unexpected bind error: %s", err)
	}
	out, err := reg.LookupOutput("web.log")
	if err != nil {
		t.Fatalf("Unexpected lookup error: %s", err)
	}
	if out.(*testOutput).sample != "web.log" {
		t.Errorf("Output was built for a wrong sample: %+v", out)
	}

	err = reg.Bind(sampleWithMode("db.log", "kafka"))
	var fatal *resolver.ConfigurationFatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Expected a fatal configuration error, got: %v", err)
	}
	if _, err := reg.LookupOutput("db.log"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestRegistry_LookupKinds(t *testing.T) {
	reg := NewRegistry(settings.NewCatalog())
	if err := reg.Register(Descriptor{
		Kind:         KindGenerator,
		Name:         "default",
		NewGenerator: func() Generator { return testGenerator{} },
	}); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if _, err := reg.LookupGenerator("default"); err != nil {
		t.Errorf("Unexpected generator lookup error: %s", err)
	}
	if _, err := reg.LookupRater("config"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}

	if _, err := reg.LookupRole(OutputWorker); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unset role, got: %v", err)
	}
	reg.SetRole(OutputWorker, func(ix int) (types.Runner, error) {
		return nil, fmt.Errorf("worker %d", ix)
	})
	factory, err := reg.LookupRole(OutputWorker)
	if err != nil {
		t.Fatalf("Unexpected role lookup error: %s", err)
	}
	if _, err := factory(3); err == nil || err.Error() != "worker 3" {
		t.Errorf("Unexpected factory result: %v", err)
	}
	if inst, err := reg.Lookup(string(OutputWorker)); err != nil || inst == nil {
		t.Errorf("Expected the role to be visible through Lookup: %v", err)
	}
}

func TestRegistry_NamespacesDoNotCollide(t *testing.T) {
	reg := NewRegistry(settings.NewCatalog())
	if err := reg.Register(testOutputDesc("stdout")); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	if err := reg.Register(Descriptor{
		Kind:         KindGenerator,
		Name:         "default",
		NewGenerator: func() Generator { return testGenerator{} },
	}); err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	reg.SetRole(OutputWorker, func(int) (types.Runner, error) { return nil, nil })

	for _, name := range []string{string(OutputWorker), "generator.default"} {
		if err := reg.Bind(sampleWithMode(name, "stdout")); err != nil {
			t.Fatalf("Unexpected bind error for %s: %s", name, err)
		}
		out, err := reg.LookupOutput(name)
		if err != nil {
			t.Fatalf("Output of sample %s is not found: %s", name, err)
		}
		if got := out.(*testOutput).sample; got != name {
			t.Errorf("Unexpected output: bound to %s, want %s", got, name)
		}
	}
	gen, err := reg.LookupGenerator("default")
	if err != nil {
		t.Fatalf("Unexpected generator lookup error: %s", err)
	}
	if _, ok := gen.(testGenerator); !ok {
		t.Errorf("Generator instance was replaced by a bound output: %T", gen)
	}
	if _, err := reg.LookupRole(OutputWorker); err != nil {
		t.Errorf("Role factory is lost: %s", err)
	}
}

type testModule struct {
	syms map[string]Symbol
}

func (m *testModule) Load() error { return nil }

func (m *testModule) Lookup(name string) (Symbol, error) {
	sym, ok := m.syms[name]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", name)
	}
	return sym, nil
}

func TestRegistry_DiscoverDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"kafka.so", "README"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	desc := testOutputDesc("kafka")
	var loaded []string
	loader := func(path string) (Module, error) {
		loaded = append(loaded, filepath.Base(path))
		return &testModule{syms: map[string]Symbol{DescriptorSymbol: &desc}}, nil
	}

	reg := NewRegistry(settings.NewCatalog())
	if err := reg.DiscoverDir(dir, loader); err != nil {
		t.Fatalf("Unexpected discovery error: %s", err)
	}
	if len(loaded) != 1 || loaded[0] != "kafka.so" {
		t.Errorf("Unexpected loaded modules: %v", loaded)
	}
	if err := reg.Bind(sampleWithMode("web.log", "kafka")); err != nil {
		t.Errorf("Discovered plugin cannot be bound: %s", err)
	}

	broken := func(string) (Module, error) {
		return &testModule{syms: map[string]Symbol{DescriptorSymbol: "not a descriptor"}}, nil
	}
	if err := NewRegistry(settings.NewCatalog()).DiscoverDir(dir, broken); err == nil {
		t.Errorf("Expected a malformed descriptor to fail discovery")
	}
	if err := NewRegistry(settings.NewCatalog()).DiscoverDir(filepath.Join(dir, "missing"), loader); err != nil {
		t.Errorf("Unexpected error for a missing directory: %s", err)
	}
}

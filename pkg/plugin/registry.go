package plugin

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
)

// ErrNotFound is returned by lookups of unknown names.
var ErrNotFound = errors.New("plugin not found")

// Registry maps plugin names to builders and keeps the instances bound to
// resolved samples. It is populated during startup and read-only afterwards.
type Registry struct {
	catalog     *settings.Catalog
	descriptors map[string]Descriptor
	// outputs are keyed by sample name, plugins by qualified plugin name.
	outputs     map[string]Output
	plugins     map[string]interface{}
	roles       map[Role]RoleFactory
	lock        sync.RWMutex
	logger      *log.Entry
}

func NewRegistry(catalog *settings.Catalog) *Registry {
	return &Registry{
		catalog:     catalog,
		descriptors: make(map[string]Descriptor),
		outputs:     make(map[string]Output),
		plugins:     make(map[string]interface{}),
		roles:       make(map[Role]RoleFactory),
		logger:      log.WithField("module", "plugin"),
	}
}

func qualify(kind Kind, name string) string {
	return string(kind) + "." + strings.ToLower(name)
}

// Register adds a plugin. Its extra settings are added to the catalog and
// its name becomes an accepted value of the outputMode, generator or rater
// setting.
func (r *Registry) Register(desc Descriptor) error {
	if len(desc.Name) == 0 {
		return fmt.Errorf("plugin of kind %s has no name", desc.Kind)
	}
	if desc.Name != strings.ToLower(desc.Name) {
		return fmt.Errorf("plugin name %q is not lowercase", desc.Name)
	}
	var choiceOf string
	switch desc.Kind {
	case KindOutput:
		if desc.NewOutput == nil {
			return fmt.Errorf("output plugin %q has no builder", desc.Name)
		}
		choiceOf = settings.OutputMode
	case KindGenerator:
		if desc.NewGenerator == nil {
			return fmt.Errorf("generator plugin %q has no builder", desc.Name)
		}
		choiceOf = settings.Generator
	case KindRater:
		if desc.NewRater == nil {
			return fmt.Errorf("rater plugin %q has no builder", desc.Name)
		}
		choiceOf = settings.Rater
	default:
		return fmt.Errorf("plugin %q has an unknown kind %q", desc.Name, desc.Kind)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	key := qualify(desc.Kind, desc.Name)
	if _, ok := r.descriptors[key]; ok {
		return fmt.Errorf("plugin %s is already registered", key)
	}
	if err := r.catalog.Register(desc.Settings...); err != nil {
		return err
	}
	if err := r.catalog.AddChoices(choiceOf, desc.Name); err != nil {
		return err
	}
	r.descriptors[key] = desc
	switch desc.Kind {
	case KindGenerator:
		r.plugins[key] = desc.NewGenerator()
	case KindRater:
		r.plugins[key] = desc.NewRater()
	}
	r.logger.Debugf("Registered plugin %s", key)
	return nil
}

// SetRole installs the factory of an infrastructure role.
func (r *Registry) SetRole(role Role, factory RoleFactory) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.roles[role] = factory
}

// Bind instantiates the output plugin named by the sample output mode and
// stores it under the sample name. A missing plugin is fatal.
func (r *Registry) Bind(s *sample.Sample) error {
	mode := strings.ToLower(s.OutputMode())
	key := qualify(KindOutput, mode)
	r.lock.Lock()
	defer r.lock.Unlock()
	desc, ok := r.descriptors[key]
	if !ok {
		return &resolver.ConfigurationFatalError{
			Reason: fmt.Sprintf("sample %q: no output plugin for outputMode %q", s.Name, mode),
		}
	}
	out, err := desc.NewOutput(s)
	if err != nil {
		return &resolver.ConfigurationFatalError{
			Reason: fmt.Sprintf("sample %q: failed to create output %s", s.Name, key),
			Err:    err,
		}
	}
	r.outputs[s.Name] = out
	r.logger.WithField("sample", s.Name).Debugf("Bound to %s", key)
	return nil
}

// Lookup returns the output bound to a sample name, the instance of a
// "generator.<name>" or "rater.<name>" plugin or the factory of a role, in
// this order. The typed lookups below never cross namespaces.
func (r *Registry) Lookup(name string) (interface{}, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if out, ok := r.outputs[name]; ok {
		return out, nil
	}
	if inst, ok := r.plugins[name]; ok {
		return inst, nil
	}
	if factory, ok := r.roles[Role(name)]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// LookupOutput returns the output bound to a sample name.
func (r *Registry) LookupOutput(name string) (Output, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	out, ok := r.outputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: output of %s", ErrNotFound, name)
	}
	return out, nil
}

func (r *Registry) lookupPlugin(kind Kind, name string) (interface{}, error) {
	key := qualify(kind, name)
	r.lock.RLock()
	defer r.lock.RUnlock()
	inst, ok := r.plugins[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return inst, nil
}

func (r *Registry) LookupGenerator(name string) (Generator, error) {
	inst, err := r.lookupPlugin(KindGenerator, name)
	if err != nil {
		return nil, err
	}
	return inst.(Generator), nil
}

func (r *Registry) LookupRater(name string) (Rater, error) {
	inst, err := r.lookupPlugin(KindRater, name)
	if err != nil {
		return nil, err
	}
	return inst.(Rater), nil
}

func (r *Registry) LookupRole(role Role) (RoleFactory, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	factory, ok := r.roles[role]
	if !ok {
		return nil, fmt.Errorf("%w: role %s", ErrNotFound, role)
	}
	return factory, nil
}

// Names returns the qualified names of the registered plugins.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	res := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		res = append(res, name)
	}
	return res
}

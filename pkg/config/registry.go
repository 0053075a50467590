package config

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	data "github.com/awesome-flow/eventgen/pkg/util/data"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Registry layers the stanzas of registered providers.
type Registry struct {
	providers map[string]Provider
	lock      sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(prov Provider) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	name := prov.GetName()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("config provider %q is already registered", name)
	}
	if err := prov.Setup(); err != nil {
		return err
	}
	r.providers[name] = prov
	return nil
}

// Resolve resolves every provider after the providers it depends on.
func (r *Registry) Resolve() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	traversed, err := r.traverseProviders()
	if err != nil {
		return err
	}
	for _, prov := range traversed {
		log.Debugf("Resolving config provider %s", prov.GetName())
		if err := prov.Resolve(); err != nil {
			return fmt.Errorf("config provider %s failed: %s", prov.GetName(), err)
		}
	}
	return nil
}

// Stanzas merges the stanzas of all providers. Stanza order follows the first
// appearance walking providers from the lightest to the heaviest. Keys of a
// heavier provider override the keys of a lighter one.
func (r *Registry) Stanzas() []*types.Stanza {
	r.lock.Lock()
	defer r.lock.Unlock()

	provs := make(ProviderList, 0, len(r.providers))
	for _, prov := range r.providers {
		provs = append(provs, prov)
	}
	sort.Stable(provs)

	res := make([]*types.Stanza, 0)
	index := make(map[string]*types.Stanza)
	for _, prov := range provs {
		for _, st := range prov.Stanzas() {
			merged, ok := index[st.Name]
			if !ok {
				merged = types.NewStanza(st.Name)
				index[st.Name] = merged
				res = append(res, merged)
			}
			for _, kv := range st.Params {
				merged.Set(kv.Key.String(), kv.Value)
			}
		}
	}
	return res
}

func (r *Registry) traverseProviders() ([]Provider, error) {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	provList := make([]data.TopologyNode, 0, len(names))
	for _, name := range names {
		provList = append(provList, r.providers[name])
	}
	top := data.NewTopology(provList...)
	for _, name := range names {
		prov := r.providers[name]
		for _, dep := range prov.DependsOn() {
			depProv, ok := r.providers[dep]
			if !ok {
				return nil, fmt.Errorf("config provider %s depends on unknown provider %s", prov.GetName(), dep)
			}
			if err := top.Connect(prov, depProv); err != nil {
				return nil, err
			}
		}
	}
	resolved, err := top.Sort()
	if err != nil {
		return nil, err
	}
	res := make([]Provider, len(resolved))
	for ix, prov := range resolved {
		res[ix] = prov.(Provider)
	}
	return res, nil
}

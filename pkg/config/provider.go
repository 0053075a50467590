package config

import "github.com/awesome-flow/eventgen/pkg/types"

// Provider is a source of configuration stanzas. Providers are resolved in
// dependency order and layered by weight: a heavier provider overrides the
// keys of a lighter one.
type Provider interface {
	Setup() error
	DependsOn() []string
	Resolve() error
	GetName() string
	GetWeight() uint32
	// Stanzas returns the resolved stanzas in declaration order.
	Stanzas() []*types.Stanza
}

type ProviderList []Provider

func (p ProviderList) Len() int {
	return len(p)
}

func (p ProviderList) Swap(i, j int) {
	p[i], p[j] = p[j], p[i]
}

func (p ProviderList) Less(i, j int) bool {
	return p[i].GetWeight() < p[j].GetWeight()
}

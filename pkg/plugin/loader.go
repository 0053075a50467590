package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"sort"
)

// DescriptorSymbol is the symbol a shared-object plugin exports. It must be
// a Descriptor variable.
const DescriptorSymbol = "Descriptor"

type Symbol interface{}

// Module is a loadable plugin binary.
type Module interface {
	Load() error
	Lookup(string) (Symbol, error)
}

type GoPlugin struct {
	path string
	plug *goplugin.Plugin
}

var _ Module = (*GoPlugin)(nil)

func NewGoPlugin(path string) *GoPlugin {
	return &GoPlugin{
		path: path,
	}
}

func (g *GoPlugin) Load() error {
	if _, err := os.Stat(g.path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("failed to load plugin shared library from %s", g.path)
		}
		return err
	}
	p, err := goplugin.Open(g.path)
	if err != nil {
		return err
	}
	g.plug = p
	return nil
}

func (g *GoPlugin) Lookup(symName string) (Symbol, error) {
	return g.plug.Lookup(symName)
}

type Loader func(string) (Module, error)

func GoPluginLoader(path string) (Module, error) {
	p := NewGoPlugin(path)
	if err := p.Load(); err != nil {
		return nil, err
	}

	return p, nil
}

// DiscoverDir loads every *.so file of dir and registers the descriptor it
// exports. A missing directory registers nothing.
func (r *Registry) DiscoverDir(dir string, loader Loader) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return err
	}
	sort.Strings(paths)
	for _, path := range paths {
		mod, err := loader(path)
		if err != nil {
			return fmt.Errorf("failed to load plugin %s: %s", path, err)
		}
		sym, err := mod.Lookup(DescriptorSymbol)
		if err != nil {
			return fmt.Errorf("plugin %s does not export %s: %s", path, DescriptorSymbol, err)
		}
		desc, ok := sym.(*Descriptor)
		if !ok {
			return fmt.Errorf("plugin %s exports %s of an unexpected type %T", path, DescriptorSymbol, sym)
		}
		if err := r.Register(*desc); err != nil {
			return fmt.Errorf("failed to register plugin %s: %s", path, err)
		}
	}
	return nil
}

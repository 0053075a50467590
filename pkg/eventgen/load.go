package eventgen

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/awesome-flow/eventgen/pkg/config"
	"github.com/awesome-flow/eventgen/pkg/generator"
	"github.com/awesome-flow/eventgen/pkg/output"
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/resolver"
	"github.com/awesome-flow/eventgen/pkg/settings"
)

const (
	ConfFileName      = "eventgen.conf"
	RemoteCacheName   = ".eventgen-remote.json"
	RemoteCacheTTL    = 24 * time.Hour
	DefaultConfWeight = 10
	LocalConfWeight   = 20
	OverrideWeight    = 30
)

// Options are the process-level options of an eventgen app.
type Options struct {
	// Home is the app directory holding default/, local/ and samples/.
	Home string
	// ConfigFile is an extra .conf or .yml file overriding the app files.
	ConfigFile string
	// Embedded reads stanzas from RemoteURL and samples from
	// <AppsRoot>/<app>/samples.
	Embedded  bool
	RemoteURL string
	AppsRoot  string
	// PluginDir holds optional *.so plugins.
	PluginDir string
	WorkDir   string
}

// AppName is the name stanzas read from local files are attributed to.
func (opts Options) AppName() string {
	return filepath.Base(filepath.Clean(opts.Home))
}

func providers(opts Options) []config.Provider {
	app := opts.AppName()
	provs := []config.Provider{
		config.NewDefaultProv(),
		config.NewEnvProv(),
	}
	if opts.Embedded && len(opts.RemoteURL) > 0 {
		cache := config.NewCacheFile(filepath.Join(opts.Home, RemoteCacheName), RemoteCacheTTL)
		provs = append(provs, config.NewRemoteProv(opts.RemoteURL, LocalConfWeight, cache))
	} else {
		provs = append(provs,
			config.NewIniProv(filepath.Join(opts.Home, "default", ConfFileName), app, DefaultConfWeight, true),
			config.NewIniProv(filepath.Join(opts.Home, "local", ConfFileName), app, LocalConfWeight, true),
		)
	}
	if len(opts.ConfigFile) > 0 {
		switch strings.ToLower(filepath.Ext(opts.ConfigFile)) {
		case ".yml", ".yaml":
			provs = append(provs, config.NewYamlProv(opts.ConfigFile, app, OverrideWeight, false))
		default:
			provs = append(provs, config.NewIniProv(opts.ConfigFile, app, OverrideWeight, false))
		}
	}
	return provs
}

// ConfigFiles lists the local files the configuration is read from.
func ConfigFiles(opts Options) []string {
	files := []string{
		filepath.Join(opts.Home, "default", ConfFileName),
		filepath.Join(opts.Home, "local", ConfFileName),
	}
	if len(opts.ConfigFile) > 0 {
		files = append(files, opts.ConfigFile)
	}
	return files
}

// NewPlugins creates the settings catalog and the plugin registry holding
// the bundled plugins and the ones found in pluginDir.
func NewPlugins(pluginDir string) (*settings.Catalog, *plugin.Registry, error) {
	catalog := settings.NewCatalog()
	registry := plugin.NewRegistry(catalog)
	if err := output.Register(registry); err != nil {
		return nil, nil, err
	}
	if err := generator.Register(registry); err != nil {
		return nil, nil, err
	}
	if len(pluginDir) > 0 {
		if err := registry.DiscoverDir(pluginDir, plugin.GoPluginLoader); err != nil {
			return nil, nil, err
		}
	}
	catalog.Freeze()
	return catalog, registry, nil
}

// Load reads the stanzas of every source and resolves them.
func Load(opts Options, catalog *settings.Catalog) (*resolver.Config, error) {
	reg := config.NewRegistry()
	for _, prov := range providers(opts) {
		if err := reg.Register(prov); err != nil {
			return nil, err
		}
	}
	if err := reg.Resolve(); err != nil {
		return nil, &resolver.ConfigurationFatalError{Reason: "failed to read the configuration", Err: err}
	}
	res, err := resolver.New(catalog, resolver.Options{
		Home:     opts.Home,
		WorkDir:  opts.WorkDir,
		Embedded: opts.Embedded,
		AppsRoot: opts.AppsRoot,
	})
	if err != nil {
		return nil, err
	}
	return res.Resolve(reg.Stanzas())
}

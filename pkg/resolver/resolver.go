package resolver

import (
	"fmt"
	"os"

	multierror "github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

const (
	GlobalStanza  = "global"
	DefaultStanza = "default"
)

// Options locate sample directories on disk.
type Options struct {
	// Home is the app home directory holding default/, local/ and
	// samples/.
	Home string
	// WorkDir defaults to the process working directory.
	WorkDir string
	// Embedded switches sample lookup to <AppsRoot>/<app>/samples.
	Embedded bool
	AppsRoot string
}

// Config is the resolved configuration. It is immutable once returned by
// Resolve and is shared by reference between the pipeline components.
type Config struct {
	Global  *sample.Settings
	Samples []*sample.Sample
	// Report collects the non-fatal validation and stanza errors met during
	// resolution. Nil if there were none.
	Report error
}

// Sample looks a resolved sample up by its name.
func (cfg *Config) Sample(name string) (*sample.Sample, bool) {
	for _, s := range cfg.Samples {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

type Resolver struct {
	catalog *settings.Catalog
	opts    Options
	logger  *log.Entry
}

func New(catalog *settings.Catalog, opts Options) (*Resolver, error) {
	if len(opts.WorkDir) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts.WorkDir = wd
	}
	return &Resolver{
		catalog: catalog,
		opts:    opts,
		logger:  log.WithField("module", "resolver"),
	}, nil
}

// Resolve turns an ordered list of stanzas into the resolved configuration:
// one enabled sample per matched sample file plus un-filed placeholders for
// stanzas matching no file.
func (r *Resolver) Resolve(stanzas []*types.Stanza) (*Config, error) {
	var report *multierror.Error

	global := sample.NewSettings()
	for _, st := range stanzas {
		if st.Name != GlobalStanza {
			continue
		}
		for _, kv := range st.Params {
			key := kv.Key.String()
			v, err := r.catalog.Validate(GlobalStanza, key, kv.Value)
			if err != nil {
				r.logger.Warn(err)
				report = multierror.Append(report, err)
				continue
			}
			switch v.(type) {
			case settings.TokenField, settings.HostField, settings.ACL:
				continue
			}
			global.Set(key, v)
		}
		break
	}

	accepted := make([]*sample.Sample, 0)
	seen := make(map[string]bool)
	for _, st := range stanzas {
		if st.Name == GlobalStanza || st.Name == DefaultStanza {
			continue
		}
		if seen[st.Name] {
			r.logger.Warnf("Stanza %q is declared more than once, keeping the first one", st.Name)
			continue
		}
		seen[st.Name] = true

		s, errs := r.buildSample(st)
		for _, err := range errs {
			report = multierror.Append(report, err)
		}
		if s == nil {
			continue
		}
		for _, name := range r.catalog.Defaultable() {
			if !s.IsSet(name) && global.IsSet(name) {
				s.CopyFrom(global, name)
			}
		}
		if s.Disabled() {
			r.logger.WithField("sample", s.Name).Infof("Sample is disabled")
			continue
		}
		s.Priority = len(accepted) + 1
		accepted = append(accepted, s)
	}

	matcher := newMatcher(r.opts, global)
	clones := make([]*sample.Sample, 0, len(accepted))
	for _, s := range accepted {
		matched, err := matcher.Match(s)
		if err != nil {
			return nil, err
		}
		clones = append(clones, matched...)
	}

	winners := Select(clones)
	Merge(winners, clones, global, r.catalog)
	for _, s := range winners {
		if s.Mode() == settings.ModeReplay {
			ApplyReplay(s)
		}
	}

	return &Config{
		Global:  global,
		Samples: winners,
		Report:  report.ErrorOrNil(),
	}, nil
}

func (r *Resolver) buildSample(st *types.Stanza) (*sample.Sample, []error) {
	logger := r.logger.WithField("sample", st.Name)
	errs := make([]error, 0)
	s := sample.New(st.Name)
	tokens := make([]*sample.Token, 0)

	for _, kv := range st.Params {
		key := kv.Key.String()
		v, err := r.catalog.Validate(st.Name, key, kv.Value)
		if err != nil {
			if settings.IsStructural(err) {
				return nil, append(errs, &StanzaError{Stanza: st.Name, Err: err})
			}
			logger.Warn(err)
			errs = append(errs, err)
			continue
		}
		switch tv := v.(type) {
		case settings.TokenField:
			for len(tokens) <= tv.Index {
				tokens = append(tokens, nil)
			}
			if tokens[tv.Index] == nil {
				tokens[tv.Index] = &sample.Token{Index: tv.Index}
			}
			tokens[tv.Index].Set(tv.Field, tv.Value)
		case settings.HostField:
			if s.HostToken == nil {
				s.HostToken = sample.NewHostToken()
			}
			s.HostToken.Set(tv.Field, tv.Value)
		case settings.ACL:
			s.App = tv.App
		default:
			if v == nil {
				continue
			}
			s.Set(key, v)
			s.Lock(key)
		}
	}

	for ix, t := range tokens {
		if t.Valid() {
			s.Tokens = append(s.Tokens, t)
			continue
		}
		logger.Infof("Token at index %d is incomplete, dropping it", ix)
	}
	s.Reindex()

	if len(s.App) == 0 {
		return nil, append(errs, &StanzaError{Stanza: st.Name, Err: fmt.Errorf("app is not set")})
	}

	return s, errs
}

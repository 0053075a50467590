package resolver

import (
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
)

const (
	SamplesDirName = "samples"
	StateFilePref  = "state."

	patternCacheSize = 256
)

// Matcher expands a sample into one clone per matching sample file.
type Matcher struct {
	opts     Options
	global   *sample.Settings
	patterns *lru.Cache
	logger   *log.Entry
}

func newMatcher(opts Options, global *sample.Settings) *Matcher {
	cache, err := lru.New(patternCacheSize)
	if err != nil {
		panic(err)
	}
	return &Matcher{
		opts:     opts,
		global:   global,
		patterns: cache,
		logger:   log.WithField("module", "matcher"),
	}
}

// SampleDir returns the directory holding the sample files of s.
func (m *Matcher) SampleDir(s *sample.Sample) (string, error) {
	logger := m.logger.WithField("sample", s.Name)
	if dir := s.Str(settings.SampleDir); len(dir) > 0 {
		if isDir(dir) {
			return dir, nil
		}
		if rel := filepath.Join(m.opts.Home, dir); isDir(rel) {
			return rel, nil
		}
		logger.Warnf("Sample directory %q does not exist, falling back to the standard locations", dir)
	}

	var candidates []string
	if m.opts.Embedded {
		candidates = []string{filepath.Join(m.opts.AppsRoot, s.App, SamplesDirName)}
	} else {
		candidates = []string{
			filepath.Join(m.opts.WorkDir, SamplesDirName),
			filepath.Join(filepath.Dir(m.opts.WorkDir), SamplesDirName),
			filepath.Join(m.opts.Home, SamplesDirName),
		}
	}
	for _, dir := range candidates {
		if isDir(dir) {
			return dir, nil
		}
		logger.Debugf("Path not found for samples: %q", dir)
	}

	return "", &ConfigurationFatalError{
		Reason: "sample directory for " + s.Name + " can not be resolved",
	}
}

// Match returns the clones of s for every regular, non-blacklisted file in
// its sample directory whose name matches the sample name pattern. If no file
// matches, a single un-filed clone is returned.
func (m *Matcher) Match(s *sample.Sample) ([]*sample.Sample, error) {
	logger := m.logger.WithField("sample", s.Name)

	dir, err := m.SampleDir(s)
	if err != nil {
		return nil, err
	}
	m.loadState(s, dir)

	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, &ConfigurationFatalError{Reason: "failed to list sample directory", Err: err}
	}

	pattern := m.compile(s.Name)
	var blacklist *regexp.Regexp
	if bl := m.global.Str(settings.Blacklist); len(bl) > 0 {
		blacklist = m.compile(bl)
	}

	res := make([]*sample.Sample, 0)
	for _, entry := range entries {
		fname := entry.Name()
		if !pattern.MatchString(fname) {
			continue
		}
		if blacklist != nil && blacklist.MatchString(fname) {
			logger.Debugf("File %q is blacklisted", fname)
			continue
		}
		if !entry.Mode().IsRegular() {
			continue
		}
		logger.Debugf("Found sample file %q for app %q with priority %d", fname, s.App, s.Priority)
		res = append(res, m.clone(s, dir, fname))
	}

	if len(res) == 0 {
		logger.Warnf("Sample is configured but no matching files were found in %s", dir)
		placeholder := s.Clone()
		placeholder.SampleDir = dir
		res = append(res, placeholder)
	}

	return res, nil
}

func (m *Matcher) clone(s *sample.Sample, dir, fname string) *sample.Sample {
	news := s.Clone()
	news.SampleDir = dir
	news.FilePath = filepath.Join(dir, fname)

	defaultSpool := m.global.Get(settings.SpoolFile)
	spoolIsDefault := s.Equal(settings.SpoolFile, defaultSpool)
	switch s.OutputMode() {
	case "spool":
		if spoolIsDefault {
			news.Set(settings.SpoolFile, fname)
		}
	case "file":
		if !s.IsSet(settings.FileName) {
			if spoolIsDefault {
				news.Set(settings.FileName, filepath.Join(s.Str(settings.SpoolDir), fname))
			} else if s.IsSet(settings.SpoolFile) {
				news.Set(settings.FileName, filepath.Join(s.Str(settings.SpoolDir), s.Str(settings.SpoolFile)))
			}
		}
	}

	news.OrigName = s.Name
	news.Name = fname
	return news
}

// loadState restores integerid token counters persisted next to the sample
// files. A missing or unreadable state file keeps the configured value.
func (m *Matcher) loadState(s *sample.Sample, dir string) {
	for _, t := range s.Tokens {
		if t.ReplacementType != settings.ReplacementIntegerID {
			continue
		}
		path := filepath.Join(dir, StateFilePref+url.PathEscape(t.Token))
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				m.logger.WithField("sample", s.Name).Warn(errors.Wrapf(err, "failed to read token state %s", path))
			}
			continue
		}
		t.Replacement = string(data)
	}
}

// compile turns a sample name into a regex anchored at the beginning of the
// file name. Names that are not valid regexes match literally.
func (m *Matcher) compile(pattern string) *regexp.Regexp {
	if re, ok := m.patterns.Get(pattern); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		m.logger.Warnf("Sample name %q is not a valid pattern, matching it literally: %s", pattern, err)
		re = regexp.MustCompile("^" + regexp.QuoteMeta(pattern))
	}
	m.patterns.Add(pattern, re)
	return re
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

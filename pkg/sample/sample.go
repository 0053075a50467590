package sample

import (
	"github.com/awesome-flow/eventgen/pkg/settings"
)

// Sample is the unit of generation configuration. After resolution there is
// exactly one enabled Sample per physical sample file.
type Sample struct {
	*Settings

	// Name is the stanza name before file matching and the matched file
	// name afterwards.
	Name string
	// OrigName is the stanza name the sample was matched from.
	OrigName  string
	App       string
	SampleDir string
	// FilePath is empty for samples that matched no file.
	FilePath string
	// Priority is the declaration ordinal of the stanza, starting at 1.
	Priority int

	Tokens    []*Token
	HostToken *HostToken

	locked map[string]struct{}
}

func New(name string) *Sample {
	return &Sample{
		Settings: NewSettings(),
		Name:     name,
		OrigName: name,
		Tokens:   make([]*Token, 0),
		locked:   make(map[string]struct{}),
	}
}

// Lock marks a setting as explicitly configured by the sample stanza. Locked
// settings are never overwritten by the override cascade.
func (s *Sample) Lock(name string) {
	s.locked[name] = struct{}{}
}

func (s *Sample) IsLocked(name string) bool {
	_, ok := s.locked[name]
	return ok
}

// IsLiteral returns true if the sample name equals the pattern it was matched
// from, i.e. the stanza named the file exactly.
func (s *Sample) IsLiteral() bool {
	return s.Name == s.OrigName
}

// Clone returns a deep copy of the sample.
func (s *Sample) Clone() *Sample {
	cp := *s
	cp.Settings = s.Settings.Clone()
	cp.Tokens = make([]*Token, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		cp.Tokens = append(cp.Tokens, t.Clone())
	}
	cp.HostToken = s.HostToken.Clone()
	cp.locked = make(map[string]struct{}, len(s.locked))
	for name := range s.locked {
		cp.locked[name] = struct{}{}
	}
	return &cp
}

// Reindex renumbers the tokens after their current order.
func (s *Sample) Reindex() {
	for ix, t := range s.Tokens {
		t.Index = ix
	}
}

func (s *Sample) OutputMode() string { return s.Str(settings.OutputMode) }
func (s *Sample) Mode() string       { return s.StrOr(settings.Mode, settings.ModeSample) }
func (s *Sample) Generator() string  { return s.Str(settings.Generator) }
func (s *Sample) Rater() string      { return s.Str(settings.Rater) }
func (s *Sample) Disabled() bool     { return s.Bool(settings.Disabled) }
func (s *Sample) Interval() int      { return s.IntOr(settings.Interval, 0) }

// Count returns the number of events per interval, -1 meaning all.
func (s *Sample) Count() int { return s.IntOr(settings.Count, -1) }

package resolver

import (
	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
)

// mergeExcluded settings never travel between stanzas.
var mergeExcluded = map[string]bool{
	settings.ACLKey:      true,
	settings.UserNameKey: true,
	settings.AppNameKey:  true,
	settings.Blacklist:   true,
	settings.Disabled:    true,
	settings.Name:        true,
}

// beats returns true if other takes the file of s away from it. A literal
// name wins over any pattern, a longer pattern wins over a shorter one and
// among patterns of the same length the one declared first wins.
func beats(other, s *sample.Sample) bool {
	if other.FilePath != s.FilePath || other.OrigName == s.OrigName {
		return false
	}
	if other.IsLiteral() {
		return true
	}
	lo, ls := len(other.OrigName), len(s.OrigName)
	return lo > ls || (lo == ls && other.Priority < s.Priority)
}

// Select picks exactly one winning clone per sample file. Un-filed clones
// are always kept.
func Select(clones []*sample.Sample) []*sample.Sample {
	logger := log.WithField("module", "cascade")
	winners := make([]*sample.Sample, 0, len(clones))
	for _, s := range clones {
		if len(s.FilePath) == 0 || s.IsLiteral() {
			winners = append(winners, s)
			continue
		}
		beaten := false
		for _, other := range clones {
			if beats(other, s) {
				logger.Debugf("Pattern %q (priority %d) loses file %q to %q (priority %d)",
					s.OrigName, s.Priority, s.Name, other.OrigName, other.Priority)
				beaten = true
				break
			}
		}
		if !beaten {
			winners = append(winners, s)
		}
	}
	return winners
}

// Merge folds the settings and tokens of every clone sharing a file with a
// winner into the winner. Clones are visited from the last declared to the
// first. A setting is copied only if the winner's value is unset or still
// equals the global default, the source value is set and differs from the
// global default, and the winner did not lock the setting. Source tokens are
// put ahead of the winner's tokens.
func Merge(winners, clones []*sample.Sample, global *sample.Settings, catalog *settings.Catalog) {
	logger := log.WithField("module", "cascade")
	for _, s := range winners {
		if len(s.FilePath) == 0 {
			continue
		}
		for ix := len(clones) - 1; ix >= 0; ix-- {
			src := clones[ix]
			if src.FilePath != s.FilePath || src.OrigName == s.OrigName {
				continue
			}
			for _, name := range src.Names() {
				if mergeExcluded[name] || s.IsLocked(name) {
					continue
				}
				if _, known := catalog.Lookup(name); !known {
					continue
				}
				def := global.Get(name)
				if s.IsSet(name) && !s.Equal(name, def) {
					continue
				}
				if src.Equal(name, def) {
					continue
				}
				logger.WithField("sample", s.Name).Debugf("Overriding setting %q with %v from %q", name, src.Get(name), src.OrigName)
				s.CopyFrom(src.Settings, name)
			}

			tokens := make([]*sample.Token, 0, len(src.Tokens)+len(s.Tokens))
			for _, t := range src.Tokens {
				tokens = append(tokens, t.Clone())
			}
			s.Tokens = append(tokens, s.Tokens...)
		}
		s.Reindex()
	}
}

// ApplyReplay forces the replay policy on a sample: a single pass over the
// sample file driven by the replay generator, with no rating.
func ApplyReplay(s *sample.Sample) {
	s.Set(settings.Earliest, "now")
	s.Set(settings.Latest, "now")
	s.Set(settings.Count, 1)
	s.Set(settings.RandomizeCount, nil)
	s.Set(settings.HourOfDayRate, nil)
	s.Set(settings.DayOfWeekRate, nil)
	s.Set(settings.MinuteOfHourRate, nil)
	s.Set(settings.DayOfMonthRate, nil)
	s.Set(settings.MonthOfYearRate, nil)
	s.Set(settings.Interval, 0)
	s.Set(settings.Generator, settings.ModeReplay)
}

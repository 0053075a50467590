package plugin

import (
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Kind is the capability a plugin provides.
type Kind string

const (
	KindOutput    Kind = "output"
	KindGenerator Kind = "generator"
	KindRater     Kind = "rater"
)

// Output delivers batches of generated events. Flush must not split a batch.
type Output interface {
	Flush(batch []types.Event) error
}

// Generator produces up to count events for a sample. A negative count
// means the whole sample.
type Generator interface {
	Generate(s *sample.Sample, count int) ([]types.Event, error)
}

// Rater decides how many events a sample produces in the current interval.
type Rater interface {
	Rate(s *sample.Sample) int
}

type (
	OutputBuilder    func(s *sample.Sample) (Output, error)
	GeneratorBuilder func() Generator
	RaterBuilder     func() Rater
)

// Descriptor is the capability contract of a plugin: a unique lowercase name,
// the builder matching its kind and the settings it adds to the catalog.
type Descriptor struct {
	Kind     Kind
	Name     string
	Settings []settings.Descriptor

	NewOutput    OutputBuilder
	NewGenerator GeneratorBuilder
	NewRater     RaterBuilder
}

// Role names an infrastructure unit without sample affinity.
type Role string

const (
	OutputWorker    Role = "OutputWorker"
	GeneratorWorker Role = "GeneratorWorker"
)

// RoleFactory builds the index-th unit of a role.
type RoleFactory func(index int) (types.Runner, error)

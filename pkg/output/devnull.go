package output

import (
	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/types"
)

type DevNull struct{}

var _ plugin.Output = (*DevNull)(nil)

func (*DevNull) Flush([]types.Event) error {
	return nil
}

func DevNullDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Kind: plugin.KindOutput,
		Name: "devnull",
		NewOutput: func(*sample.Sample) (plugin.Output, error) {
			return &DevNull{}, nil
		},
	}
}

package output

import (
	"bytes"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Builtins returns the descriptors of the bundled output plugins.
func Builtins() []plugin.Descriptor {
	return []plugin.Descriptor{
		DevNullDescriptor(),
		StdoutDescriptor(),
		FileDescriptor(),
		SpoolDescriptor(),
		TCPDescriptor(),
	}
}

// Register adds the bundled output plugins to a registry.
func Register(reg *plugin.Registry) error {
	for _, desc := range Builtins() {
		if err := reg.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

// render joins the raw bodies of a batch, one event per line.
func render(batch []types.Event) []byte {
	var b bytes.Buffer
	for _, e := range batch {
		raw := e.Raw()
		b.WriteString(raw)
		if len(raw) == 0 || raw[len(raw)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	return b.Bytes()
}

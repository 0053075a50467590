package output

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// Stdout writes event bodies to a shared writer, one batch at a time.
type Stdout struct {
	*bufio.Writer
	*sync.Mutex
}

var _ plugin.Output = (*Stdout)(nil)

func NewStdout(w io.Writer) *Stdout {
	return &Stdout{bufio.NewWriter(w), &sync.Mutex{}}
}

func (s *Stdout) Flush(batch []types.Event) error {
	s.Lock()
	defer s.Unlock()
	if _, err := s.Write(render(batch)); err != nil {
		return err
	}
	return s.Writer.Flush()
}

func StdoutDescriptor() plugin.Descriptor {
	var once sync.Once
	var shared *Stdout
	return plugin.Descriptor{
		Kind: plugin.KindOutput,
		Name: "stdout",
		NewOutput: func(*sample.Sample) (plugin.Output, error) {
			once.Do(func() { shared = NewStdout(os.Stdout) })
			return shared, nil
		},
	}
}

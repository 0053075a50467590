package output

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

// SamplePlaceholder in spoolFile stands for the sample name.
const SamplePlaceholder = "<SAMPLE>"

// Spool drops every batch into the spool directory as a complete file:
// written to a hidden temporary name first, then renamed, so a process
// watching the directory never picks up a partial batch.
type Spool struct {
	dir  string
	name string
	lock sync.Mutex
}

var _ plugin.Output = (*Spool)(nil)

func NewSpool(dir, name string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Spool{dir: dir, name: name}, nil
}

func (sp *Spool) Flush(batch []types.Event) error {
	sp.lock.Lock()
	defer sp.lock.Unlock()
	tmp, err := os.CreateTemp(sp.dir, "."+sp.name+".*.part")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(render(batch)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	dst := filepath.Join(sp.dir, sp.name)
	if _, err := os.Stat(dst); err == nil {
		return sp.appendTo(dst, tmp.Name())
	}
	return os.Rename(tmp.Name(), dst)
}

func (sp *Spool) appendTo(dst, src string) error {
	defer os.Remove(src)
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SpoolDescriptor builds spool outputs. A relative spoolDir is resolved
// against the app directory holding the sample directory.
func SpoolDescriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Kind: plugin.KindOutput,
		Name: "spool",
		NewOutput: func(s *sample.Sample) (plugin.Output, error) {
			dir := s.StrOr(settings.SpoolDir, "spool")
			if !filepath.IsAbs(dir) && len(s.SampleDir) > 0 {
				dir = filepath.Join(filepath.Dir(s.SampleDir), dir)
			}
			name := s.StrOr(settings.SpoolFile, SamplePlaceholder)
			if name == SamplePlaceholder {
				name = s.Name
			}
			return NewSpool(dir, name)
		},
	}
}

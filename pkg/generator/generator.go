package generator

import (
	"bufio"
	"os"

	lru "github.com/hashicorp/golang-lru"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/types"
)

const linesCacheSize = 64

// Builtins returns the bundled generator and rater plugins.
func Builtins() []plugin.Descriptor {
	return []plugin.Descriptor{
		{
			Kind:         plugin.KindGenerator,
			Name:         "default",
			NewGenerator: func() plugin.Generator { return NewDefault() },
		},
		{
			Kind:         plugin.KindGenerator,
			Name:         "replay",
			NewGenerator: func() plugin.Generator { return NewReplay() },
		},
		{
			Kind:     plugin.KindRater,
			Name:     "config",
			NewRater: func() plugin.Rater { return &Config{} },
		},
	}
}

func Register(reg *plugin.Registry) error {
	for _, desc := range Builtins() {
		if err := reg.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

// lineReader keeps the lines of recently used sample files.
type lineReader struct {
	cache *lru.Cache
}

func newLineReader() *lineReader {
	cache, err := lru.New(linesCacheSize)
	if err != nil {
		panic(err)
	}
	return &lineReader{cache: cache}
}

func (lr *lineReader) lines(path string) ([]string, error) {
	if cached, ok := lr.cache.Get(path); ok {
		return cached.([]string), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines := make([]string, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	lr.cache.Add(path, lines)
	return lines, nil
}

// Default emits sample file lines verbatim, cycling over the file until count
// events are produced. A negative count emits every line once.
type Default struct {
	reader *lineReader
}

var _ plugin.Generator = (*Default)(nil)

func NewDefault() *Default {
	return &Default{reader: newLineReader()}
}

func (g *Default) Generate(s *sample.Sample, count int) ([]types.Event, error) {
	if len(s.FilePath) == 0 || count == 0 {
		return nil, nil
	}
	lines, err := g.reader.lines(s.FilePath)
	if err != nil || len(lines) == 0 {
		return nil, err
	}
	if count < 0 {
		count = len(lines)
	}
	batch := make([]types.Event, 0, count)
	for ix := 0; ix < count; ix++ {
		batch = append(batch, types.NewRawEvent(lines[ix%len(lines)]))
	}
	return batch, nil
}

// Replay emits the whole sample file once per call, whatever the count.
type Replay struct {
	reader *lineReader
}

var _ plugin.Generator = (*Replay)(nil)

func NewReplay() *Replay {
	return &Replay{reader: newLineReader()}
}

func (g *Replay) Generate(s *sample.Sample, _ int) ([]types.Event, error) {
	if len(s.FilePath) == 0 {
		return nil, nil
	}
	lines, err := g.reader.lines(s.FilePath)
	if err != nil {
		return nil, err
	}
	batch := make([]types.Event, 0, len(lines))
	for _, line := range lines {
		batch = append(batch, types.NewRawEvent(line))
	}
	return batch, nil
}

// Config rates a sample at its configured count.
type Config struct{}

var _ plugin.Rater = (*Config)(nil)

func (*Config) Rate(s *sample.Sample) int {
	return s.Count()
}

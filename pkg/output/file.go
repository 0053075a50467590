package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/awesome-flow/eventgen/pkg/plugin"
	"github.com/awesome-flow/eventgen/pkg/sample"
	"github.com/awesome-flow/eventgen/pkg/settings"
	"github.com/awesome-flow/eventgen/pkg/types"
)

const (
	FileCompression = "fileCompression"

	DefaultFileMaxBytes    = 10 * 1024 * 1024
	DefaultFileBackupFiles = 5
)

// File appends event bodies to a file and rotates it once it outgrows
// maxBytes. Rotated files are named <path>.1 (the newest) to
// <path>.<backups>, optionally compressed.
type File struct {
	path     string
	maxBytes int64
	backups  int
	suffix   string
	coder    CoderFunc

	f      *os.File
	size   int64
	lock   sync.Mutex
	logger *log.Entry
}

var _ plugin.Output = (*File)(nil)

func NewFile(path string, maxBytes int64, backups int, compression string) (*File, error) {
	suffix, err := suffixOf(compression)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file := &File{
		path:     path,
		maxBytes: maxBytes,
		backups:  backups,
		suffix:   suffix,
		coder:    Coders[compression],
		logger:   log.WithFields(log.Fields{"module": "output", "file": path}),
	}
	if err := file.open(); err != nil {
		return nil, err
	}
	return file, nil
}

func (file *File) open() error {
	f, err := os.OpenFile(file.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	file.f = f
	file.size = stat.Size()
	return nil
}

func (file *File) Flush(batch []types.Event) error {
	payload := render(batch)
	file.lock.Lock()
	defer file.lock.Unlock()
	if file.maxBytes > 0 && file.size > 0 && file.size+int64(len(payload)) > file.maxBytes {
		if err := file.rotate(); err != nil {
			return err
		}
	}
	n, err := file.f.Write(payload)
	file.size += int64(n)
	return err
}

func (file *File) backupName(ix int) string {
	return fmt.Sprintf("%s.%d%s", file.path, ix, file.suffix)
}

func (file *File) rotate() error {
	if err := file.f.Close(); err != nil {
		return err
	}
	if file.backups <= 0 {
		if err := os.Truncate(file.path, 0); err != nil {
			return err
		}
		return file.open()
	}
	os.Remove(file.backupName(file.backups))
	for ix := file.backups - 1; ix > 0; ix-- {
		if err := os.Rename(file.backupName(ix), file.backupName(ix+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if file.coder == nil {
		if err := os.Rename(file.path, file.backupName(1)); err != nil {
			return err
		}
	} else {
		data, err := os.ReadFile(file.path)
		if err != nil {
			return err
		}
		compressed, err := file.coder(data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(file.backupName(1), compressed, 0644); err != nil {
			return err
		}
		if err := os.Remove(file.path); err != nil {
			return err
		}
	}
	file.logger.Debugf("Rotated to %s", file.backupName(1))
	return file.open()
}

func (file *File) Close() error {
	file.lock.Lock()
	defer file.lock.Unlock()
	return file.f.Close()
}

// FileDescriptor builds file outputs writing to the sample fileName. Samples
// sharing a fileName share the output.
func FileDescriptor() plugin.Descriptor {
	files := make(map[string]*File)
	lock := sync.Mutex{}
	return plugin.Descriptor{
		Kind: plugin.KindOutput,
		Name: "file",
		Settings: []settings.Descriptor{
			{
				Name:        FileCompression,
				Kind:        settings.KindEnum,
				Choices:     []string{CompressionNone, CompressionZstd, CompressionSnappy},
				Defaultable: true,
			},
		},
		NewOutput: func(s *sample.Sample) (plugin.Output, error) {
			path := s.Str(settings.FileName)
			if len(path) == 0 {
				return nil, fmt.Errorf("sample %q has no %s", s.Name, settings.FileName)
			}
			lock.Lock()
			defer lock.Unlock()
			if file, ok := files[path]; ok {
				return file, nil
			}
			file, err := NewFile(
				path,
				int64(s.IntOr(settings.FileMaxBytes, DefaultFileMaxBytes)),
				s.IntOr(settings.FileBackupFiles, DefaultFileBackupFiles),
				s.StrOr(FileCompression, CompressionNone),
			)
			if err != nil {
				return nil, err
			}
			files[path] = file
			return file, nil
		},
	}
}

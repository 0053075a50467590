package output

import (
	"bytes"
	"fmt"

	"github.com/DataDog/zstd"
	"github.com/golang/snappy"
)

// Compression values of the fileCompression setting.
const (
	CompressionNone   = "none"
	CompressionZstd   = "zstd"
	CompressionSnappy = "snappy"
)

type CoderFunc func([]byte) ([]byte, error)

// Coders compress rotated backup files. The key doubles as the file suffix.
var Coders = map[string]CoderFunc{
	CompressionZstd: func(payload []byte) ([]byte, error) {
		var b bytes.Buffer
		w := zstd.NewWriterLevel(&b, zstd.DefaultCompression)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	},
	CompressionSnappy: func(payload []byte) ([]byte, error) {
		var b bytes.Buffer
		w := snappy.NewBufferedWriter(&b)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	},
}

func suffixOf(compression string) (string, error) {
	switch compression {
	case "", CompressionNone:
		return "", nil
	case CompressionZstd:
		return ".zst", nil
	case CompressionSnappy:
		return ".sz", nil
	}
	return "", fmt.Errorf("unknown compression %q", compression)
}

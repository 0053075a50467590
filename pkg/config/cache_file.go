package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// CacheFile keeps the last successfully fetched remote configuration on disk.
type CacheFile struct {
	path string
	ttl  time.Duration
}

func NewCacheFile(path string, ttl time.Duration) *CacheFile {
	return &CacheFile{
		path: path,
		ttl:  ttl,
	}
}

// Read returns the cached data unless the file is missing or older than the
// TTL. A zero TTL never expires.
func (f *CacheFile) Read() ([]byte, error) {
	stat, err := os.Stat(f.path)
	if err != nil {
		log.Debugf("Failed to stat cache file %s: %s", f.path, err)
		return nil, err
	}

	if modSince := time.Since(stat.ModTime()); f.ttl > 0 && modSince > f.ttl {
		return nil, fmt.Errorf("file %s has expired (TTL: %s, modified %s ago)",
			f.path, f.ttl, modSince)
	}

	return ioutil.ReadFile(f.path)
}

// Consolidate replaces the cached data atomically.
func (f *CacheFile) Consolidate(data []byte) error {
	tmp, err := ioutil.TempFile(filepath.Dir(f.path), filepath.Base(f.path)+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *CacheFile) GetPath() string {
	return f.path
}

package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher notifies about changes of configuration files. The parent
// directories are watched so that files replaced by a rename are still
// tracked.
type Watcher struct {
	paths   map[string]struct{}
	watcher *fsnotify.Watcher
	changes chan string
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(paths ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	vw := &Watcher{
		paths:   make(map[string]struct{}),
		watcher: w,
		changes: make(chan string, 1),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.Close()
			return nil, err
		}
		vw.paths[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		log.Infof("Deploying a watcher for path: %s", dir)
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
	}
	go vw.loop()
	return vw, nil
}

func (vw *Watcher) loop() {
	for {
		select {
		case <-vw.done:
			return
		case ev, ok := <-vw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			path := filepath.Clean(ev.Name)
			if _, ok := vw.paths[path]; !ok {
				continue
			}
			select {
			case vw.changes <- path:
			default:
			}
		case err, ok := <-vw.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Config watcher error: %s", err)
		}
	}
}

// Changes delivers the path of a changed file. Bursts of changes are
// coalesced.
func (vw *Watcher) Changes() <-chan string {
	return vw.changes
}

func (vw *Watcher) Close() error {
	var err error
	vw.once.Do(func() {
		close(vw.done)
		err = vw.watcher.Close()
	})
	return err
}

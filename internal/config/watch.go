package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch monitors the config file at path and invokes onChange with the
// freshly loaded configuration after each write. Load errors from a
// half-written file are skipped; the next write triggers another reload.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file: editors that replace
	// the file on save would otherwise detach the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func(*Config)) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&fsnotify.Create == 0 && event.Op&fsnotify.Write == 0 {
				continue
			}
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				continue
			}
			onChange(cfg)
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}

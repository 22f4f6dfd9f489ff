// Package watch observes the config and order files for out-of-band edits.
package watch

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/spacecycle/internal/logger"
)

// Watcher invokes a callback whenever one of the watched files is written,
// created or renamed. The parent directories are watched rather than the
// files themselves because saves replace the files atomically via rename.
type Watcher struct {
	fsw      *fsnotify.Watcher
	paths    map[string]bool
	onChange func(path string)
	stop     chan struct{}
}

// New starts watching the given files. Paths that do not exist yet are fine;
// their directory is watched and the callback fires once they appear.
func New(paths []string, onChange func(string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		paths:    make(map[string]bool, len(paths)),
		onChange: onChange,
		stop:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			logger.Warn("cannot watch %s: %v", dir, err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				name = event.Name
			}
			if w.paths[name] {
				w.onChange(name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("file watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsw.Close()
}

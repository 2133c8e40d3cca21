package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/promptdeck/internal/logging"
)

var log = logging.ForComponent(logging.CompConfig)

// Watcher reloads the config when the file changes on disk and
// notifies subscribers. Editors save via rename/temp-file dances that
// produce bursts of events, so reloads are rate limited.
type Watcher struct {
	fsw     *fsnotify.Watcher
	limiter *rate.Limiter
	onload  func(*Config)
	done    chan struct{}
}

// Watch starts watching the config file. onload is called from the
// watcher goroutine with the freshly loaded config after each change.
func Watch(onload func(*Config)) (*Watcher, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: renames replace the inode and
	// a file-level watch dies with the old one.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw: fsw,
		// One reload per second with a small burst absorbs editor
		// write storms without missing the final state.
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		onload:  onload,
		done:    make(chan struct{}),
	}
	go w.loop(filepath.Base(path))
	return w, nil
}

func (w *Watcher) loop(name string) {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !w.limiter.Allow() {
				continue
			}
			cfg, err := Reload()
			if err != nil {
				log.Warn("config reload failed", "error", err)
				continue
			}
			log.Debug("config reloaded")
			if w.onload != nil {
				w.onload(cfg)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

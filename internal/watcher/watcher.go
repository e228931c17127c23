// Package watcher observes the selected photo folder and nudges the daemon
// to rescan after files settle. Events are debounced so a bulk photo import
// triggers one rescan, not hundreds.
package watcher

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"faceframe/internal/logging"
)

// imageExtensions are the files worth rescanning for.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".bmp":  {},
	".tiff": {},
}

// Watcher debounces filesystem events on one folder into change callbacks.
type Watcher struct {
	debounce time.Duration
	onChange func(folder string)
	logger   *slog.Logger

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	folder string
	timer  *time.Timer
	closed bool
}

// New builds a watcher. onChange runs on the watcher goroutine after events
// on the watched folder have been quiet for the debounce interval.
func New(debounce time.Duration, onChange func(folder string), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		debounce: debounce,
		onChange: onChange,
		logger:   logging.WithComponent(logger, "watcher"),
		fsw:      fsw,
	}
	go w.run()
	return w, nil
}

// Watch replaces the watched folder. An empty folder stops watching.
func (w *Watcher) Watch(folder string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	if w.folder == folder {
		return nil
	}
	if w.folder != "" {
		_ = w.fsw.Remove(w.folder)
	}
	w.stopTimerLocked()
	w.folder = folder
	if folder == "" {
		return nil
	}
	if err := w.fsw.Add(folder); err != nil {
		w.folder = ""
		return err
	}
	w.logger.Info("watching folder", logging.String(logging.FieldFolder, folder))
	return nil
}

// Close stops the watcher. Pending debounce timers are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.stopTimerLocked()
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.bump()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := strings.ToLower(ev.Name)
	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return false
	}
	_, ok := imageExtensions[name[dot:]]
	return ok
}

func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.folder == "" {
		return
	}
	folder := w.folder
	w.stopTimerLocked()
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Debug("folder settled", logging.String(logging.FieldFolder, folder))
		w.onChange(folder)
	})
}

func (w *Watcher) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Package monitor implements a file-change publisher/subscriber, the Go
// translation of zif_release's use of GFileMonitor plus its
// zif_release_file_monitor_cb callback. A Watcher holds no ownership of
// what it notifies: callers register a channel and the Watcher only ever
// sends on it, matching the original's weak back-reference from the file
// monitor to the ZifRelease instance it invalidates.
package monitor

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const defaultPollInterval = 2 * time.Second

// Watcher polls the mtime of a set of registered paths and publishes a
// notification on a per-path channel whenever mtime (or existence)
// changes. It is a polling implementation rather than an inotify one:
// see DESIGN.md for why no third-party watch library was pulled in for
// this.
type Watcher struct {
	mu       sync.Mutex
	interval time.Duration
	entries  map[string]*entry
	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	ch      chan struct{}
	modTime time.Time
	exists  bool
}

// New returns a Watcher polling at the default interval. Call Close when
// done to stop its background goroutine.
func New() *Watcher {
	return NewWithInterval(defaultPollInterval)
}

// NewWithInterval returns a Watcher polling at the given interval.
func NewWithInterval(interval time.Duration) *Watcher {
	w := &Watcher{
		interval: interval,
		entries:  make(map[string]*entry),
		stop:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// Watch registers path for monitoring, returning a channel that receives
// a value each time the file's mtime or existence changes. Calling Watch
// again for the same path is a no-op returning the existing channel
// (idempotent per path).
func (w *Watcher) Watch(path string) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.entries[path]; ok {
		return e.ch, nil
	}

	modTime, exists, err := stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "monitor: watching %s", path)
	}

	e := &entry{
		ch:      make(chan struct{}, 1),
		modTime: modTime,
		exists:  exists,
	}
	w.entries[path] = e
	return e.ch, nil
}

// Unwatch stops monitoring path and closes its channel.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[path]; ok {
		close(e.ch)
		delete(w.entries, path)
	}
}

// Close stops the background poll goroutine. Safe to call more than once.
func (w *Watcher) Close() {
	w.stopOnce.Do(func() { close(w.stop) })
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, e := range w.entries {
		modTime, exists, err := stat(path)
		if err != nil {
			continue
		}
		if exists != e.exists || !modTime.Equal(e.modTime) {
			e.exists = exists
			e.modTime = modTime
			select {
			case e.ch <- struct{}{}:
			default:
			}
		}
	}
}

func stat(path string) (time.Time, bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return fi.ModTime(), true, nil
}

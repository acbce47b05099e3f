package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher emits one debounced notification per burst of writes to a file.
// The parent directory is watched, not the file itself, so the signal
// survives rename-replace writes and also covers the sqlite journal
// siblings (<name>-journal, <name>-wal).
type Watcher struct {
	fsw    *fsnotify.Watcher
	base   string
	events chan struct{}
	errs   chan error
	ctx    context.Context
	cancel context.CancelFunc
}

func New(ctx context.Context, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	wctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		fsw:    fsw,
		base:   filepath.Base(path),
		events: make(chan struct{}, 1),
		errs:   make(chan error, 1),
		ctx:    wctx,
		cancel: cancel,
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		cancel()
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return w, nil
}

// Start launches the event loop. Call it once.
func (w *Watcher) Start(debounce time.Duration) {
	go w.run(debounce)
}

func (w *Watcher) run(debounce time.Duration) {
	defer close(w.events)
	defer close(w.errs)
	var timer *time.Timer
	// The timer callback signals through fire, never w.events directly;
	// only this goroutine sends on the channels it closes.
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.matches(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-w.ctx.Done():
				return
			}
		}
	}
}

func (w *Watcher) matches(name string) bool {
	return strings.HasPrefix(filepath.Base(name), w.base)
}

// Events delivers at most one pending notification at a time.
func (w *Watcher) Events() <-chan struct{} { return w.events }

func (w *Watcher) Errors() <-chan error { return w.errs }

func (w *Watcher) Stop() error {
	w.cancel()
	return w.fsw.Close()
}

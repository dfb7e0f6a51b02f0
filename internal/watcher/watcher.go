// Package watcher implements the File Watcher (C9): it watches a project's
// model directory recursively with fsnotify, debounces bursts of events
// into a single trigger, and runs reconciliation passes serially -- at most
// one in flight, at most one pending, any further events collapsed into
// that single pending pass (§4.9).
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dcmcore/dcm/internal/core"
)

// ReconcileFunc runs one reconciliation pass.
type ReconcileFunc func(ctx context.Context) error

// Watcher drives ReconcileFunc off filesystem changes under a root directory.
type Watcher struct {
	log       zerolog.Logger
	fsw       *fsnotify.Watcher
	debounce  time.Duration
	reconcile ReconcileFunc

	mu      sync.Mutex
	running bool
	pending bool
}

// New creates a Watcher over root, calling reconcile after debounce settles.
func New(log zerolog.Logger, root string, reconcile ReconcileFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.NewInternalError("create filesystem watcher", err)
	}

	w := &Watcher{
		log:       log.With().Str("component", "watcher").Logger(),
		fsw:       fsw,
		debounce:  core.WatchDebounce,
		reconcile: reconcile,
	}

	if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	}); err != nil {
		fsw.Close()
		return nil, core.NewInternalError("walk project directory for watching", err).WithResource(root)
	}

	return w, nil
}

// Run blocks, reacting to filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.trigger(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("<DCM> filesystem watch error")
		}
	}
}

// relevant filters out pure metadata events (chmod) that don't represent a
// content change worth reconciling over.
func relevant(ev fsnotify.Event) bool {
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// trigger runs a reconciliation pass, or marks one pending if a pass is
// already in flight (§4.9: at most one running, at most one pending).
func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.runPass(ctx)
}

func (w *Watcher) runPass(ctx context.Context) {
	for {
		if err := w.reconcile(ctx); err != nil {
			w.log.Error().Err(err).Msg("<DCM> reconciliation pass failed")
		}

		w.mu.Lock()
		if !w.pending {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.pending = false
		w.mu.Unlock()
	}
}

// Package watcher turns OS file notifications for one document into
// ChangeEvents.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/livedoc/livedoc/internal/event"
	"github.com/livedoc/livedoc/internal/logging"
)

// Options controls watcher behavior.
type Options struct {
	// Debounce collapses a burst of qualifying events into one ChangeEvent
	// emitted once the burst has been quiet for this long. Zero disables it:
	// every qualifying event produces exactly one ChangeEvent.
	Debounce time.Duration
	// FollowReplace also treats a file created under the target's name as a
	// content change, for editors that save by rename.
	FollowReplace bool
}

// Stats is a snapshot of watcher counters.
type Stats struct {
	Events     uint64    `json:"events"`
	Errors     uint64    `json:"errors"`
	LastChange time.Time `json:"lastChange,omitzero"`
}

// Watcher watches a Target's parent directory and calls onChange for every
// content modification of the target.
type Watcher struct {
	watcher  *fsnotify.Watcher
	target   Target
	onChange func(event.ChangeEvent)
	opts     Options
	debounce *debouncer

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	events     atomic.Uint64
	errors     atomic.Uint64
	lastChange atomic.Int64
}

// Start begins monitoring target.Dir (non-recursive). onChange is called
// synchronously from the watch goroutine, so it must not block.
// If the watch cannot be established Start returns a *SetupError.
func Start(target Target, onChange func(event.ChangeEvent), opts Options) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher: nil change callback")
	}

	info, err := os.Stat(target.Path)
	if err != nil {
		return nil, &SetupError{Path: target.Path, Err: err}
	}
	if info.IsDir() {
		return nil, &SetupError{Path: target.Path, Err: fmt.Errorf("is a directory")}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &SetupError{Path: target.Path, Err: err}
	}

	// Watch the directory, not the file: a rename-on-save would orphan a
	// watch on the original inode.
	if err := fsw.Add(target.Dir); err != nil {
		fsw.Close()
		return nil, &SetupError{Path: target.Dir, Err: err}
	}

	w := &Watcher{
		watcher:  fsw,
		target:   target,
		onChange: onChange,
		opts:     opts,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if opts.Debounce > 0 {
		w.debounce = newDebouncer(opts.Debounce, w.emit)
	}

	logging.Info().
		Str("path", target.Path).
		Str("dir", target.Dir).
		Dur("debounce", opts.Debounce).
		Msg("document watcher initialized")

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(Classify(ev))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Read errors are not fatal; the watch keeps running.
			w.errors.Add(1)
			logging.Warn().Err(err).Str("path", w.target.Path).Msg("document watcher error")
		}
	}
}

// handle filters one raw event and emits or schedules a ChangeEvent.
func (w *Watcher) handle(raw RawEvent) {
	if !Qualifies(w.target, raw, w.opts.FollowReplace) {
		logging.Debug().
			Str("kind", raw.Kind.String()).
			Strs("paths", raw.Paths).
			Msg("ignoring file event")
		return
	}

	if w.debounce != nil {
		w.debounce.schedule()
		return
	}
	w.emit()
}

func (w *Watcher) emit() {
	ev := event.NewChangeEvent(w.target.Path)
	w.events.Add(1)
	w.lastChange.Store(ev.OccurredAt.UnixNano())
	w.onChange(ev)
}

// Target returns the watched document.
func (w *Watcher) Target() Target {
	return w.target
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() Stats {
	s := Stats{
		Events: w.events.Load(),
		Errors: w.errors.Load(),
	}
	if ns := w.lastChange.Load(); ns != 0 {
		s.LastChange = time.Unix(0, ns)
	}
	return s
}

// Stop releases the OS watch. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		if w.debounce != nil {
			w.debounce.stop()
		}
		err = w.watcher.Close()
		logging.Info().Str("path", w.target.Path).Msg("document watcher stopped")
	})
	return err
}

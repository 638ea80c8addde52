package watcher

import (
	"sync"
	"time"
)

// debouncer fires flush once no schedule call has happened for duration.
type debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
	flush    func()
	stopped  bool
	inflight sync.WaitGroup
}

func newDebouncer(duration time.Duration, flush func()) *debouncer {
	return &debouncer{
		duration: duration,
		flush:    flush,
	}
}

// schedule starts or extends the quiet window.
func (d *debouncer) schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.duration, d.fire)
		return
	}
	d.timer.Reset(d.duration)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	d.flush()
}

// stop cancels a pending flush and waits for a running one to return. It
// must not be called from flush.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.inflight.Wait()
}

// Package syncworker batches index.Resync calls behind a debounce-and-
// throttle window (4.H), so a burst of workspace writes (a run streaming
// a dozen events a second) triggers one resync instead of a dozen.
// Grounded on the debounced-save pattern the teacher used to flush its
// dashboard JSON store (saveTimer/saveMu around a single pending-write
// flag) — the same shape, retargeted at the SQLite projection.
package syncworker

import (
	"sync"
	"time"

	"github.com/CLIAIMONITOR/internal/obslog"
)

var log = obslog.New("syncworker")

const (
	defaultDebounce     = 250 * time.Millisecond
	defaultMinInterval  = 1000 * time.Millisecond
)

// Counters tracks how often the worker actually ran vs. how often it was
// asked to, for doctor/status reporting.
type Counters struct {
	Notified int64
	Flushed  int64
	Errors   int64
}

// Worker coalesces Notify calls into periodic calls to Sync.
type Worker struct {
	debounce    time.Duration
	minInterval time.Duration
	sync        func() error

	mu        sync.Mutex
	timer     *time.Timer
	lastFlush time.Time
	pending   bool
	closed    bool
	counters  Counters
}

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithDebounce overrides the default 250ms debounce window.
func WithDebounce(d time.Duration) Option { return func(w *Worker) { w.debounce = d } }

// WithMinInterval overrides the default 1000ms minimum interval between
// flushes.
func WithMinInterval(d time.Duration) Option { return func(w *Worker) { w.minInterval = d } }

// New builds a Worker that calls syncFn to actually flush.
func New(syncFn func() error, opts ...Option) *Worker {
	w := &Worker{
		debounce:    defaultDebounce,
		minInterval: defaultMinInterval,
		sync:        syncFn,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Notify schedules a flush w.debounce from now, stopping any pending
// timer first, so a burst of calls yields one flush after the last of
// them. If a flush happened within the last minInterval, the timer is
// pushed out so flushes never run closer together than minInterval.
func (w *Worker) Notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.counters.Notified++
	w.pending = true

	delay := w.debounce
	if since := time.Since(w.lastFlush); !w.lastFlush.IsZero() && since < w.minInterval {
		if wait := w.minInterval - since; wait > delay {
			delay = wait
		}
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(delay, w.flush)
}

func (w *Worker) flush() {
	w.mu.Lock()
	if w.closed || !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	if err := w.sync(); err != nil {
		log.Errorf("sync failed: %v", err)
		w.mu.Lock()
		w.counters.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.lastFlush = time.Now()
	w.counters.Flushed++
	w.mu.Unlock()
}

// Flush forces an immediate synchronous flush, bypassing the debounce
// timer. Used by callers that need the projection current right now
// (e.g. before answering a doctor request).
func (w *Worker) Flush() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = false
	w.mu.Unlock()

	err := w.sync()
	w.mu.Lock()
	if err != nil {
		w.counters.Errors++
	} else {
		w.lastFlush = time.Now()
		w.counters.Flushed++
	}
	w.mu.Unlock()
	return err
}

// Status returns a snapshot of the worker's counters.
func (w *Worker) Status() Counters {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counters
}

// Close stops any pending timer and marks the worker closed; further
// Notify calls are no-ops.
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.closed = true
}

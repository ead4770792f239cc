package syncworker

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNotifyDebouncesBurst(t *testing.T) {
	var calls int64
	w := New(func() error {
		atomic.AddInt64(&calls, 1)
		return nil
	}, WithDebounce(20*time.Millisecond), WithMinInterval(0))

	for i := 0; i < 10; i++ {
		w.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(60 * time.Millisecond)
	w.Close()

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("calls = %d, want exactly 1 for a debounced burst", got)
	}
}

func TestFlushRunsImmediately(t *testing.T) {
	var calls int64
	w := New(func() error {
		atomic.AddInt64(&calls, 1)
		return nil
	}, WithDebounce(time.Hour))

	w.Notify()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Errorf("calls = %d, want 1 after explicit Flush", got)
	}
	w.Close()
}

func TestStatusCountsFlushesAndErrors(t *testing.T) {
	fail := true
	w := New(func() error {
		if fail {
			return errBoom
		}
		return nil
	}, WithDebounce(time.Millisecond))

	w.Notify()
	time.Sleep(20 * time.Millisecond)
	status := w.Status()
	if status.Errors != 1 {
		t.Errorf("Errors = %d, want 1", status.Errors)
	}

	fail = false
	w.Notify()
	time.Sleep(20 * time.Millisecond)
	status = w.Status()
	if status.Flushed != 1 {
		t.Errorf("Flushed = %d, want 1", status.Flushed)
	}
	w.Close()
}

func TestCloseStopsFurtherFlushes(t *testing.T) {
	var calls int64
	w := New(func() error {
		atomic.AddInt64(&calls, 1)
		return nil
	}, WithDebounce(10*time.Millisecond))

	w.Close()
	w.Notify()
	time.Sleep(30 * time.Millisecond)

	if got := atomic.LoadInt64(&calls); got != 0 {
		t.Errorf("calls = %d, want 0 after Close", got)
	}
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }

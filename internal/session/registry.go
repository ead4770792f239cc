package session

import (
	"context"
	"sync"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/types"
)

// handle tracks one in-flight session launched by the registry.
type handle struct {
	run    types.Run
	cancel context.CancelFunc
	done   chan Outcome
}

// Registry is the process-wide table of running sessions, keyed by run
// id. A daemon process holds exactly one Registry; it is what lets an
// operator stop a run or list what's currently active without reaching
// into the filesystem.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*handle
	rt      *Runtime
}

// NewRegistry builds an empty Registry backed by rt for actually driving
// subprocesses.
func NewRegistry(rt *Runtime) *Registry {
	return &Registry{handles: map[string]*handle{}, rt: rt}
}

// Start launches spec's command under a cancelable context and tracks it
// under spec.Run.ID. It returns *corerr.UserError if a session with that
// run id is already registered.
func (r *Registry) Start(spec LaunchSpec) error {
	r.mu.Lock()
	if _, exists := r.handles[spec.Run.ID]; exists {
		r.mu.Unlock()
		return corerr.NewUserError("session already running for run %s", spec.Run.ID)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{run: spec.Run, cancel: cancel, done: make(chan Outcome, 1)}
	r.handles[spec.Run.ID] = h
	r.mu.Unlock()

	go func() {
		outcome := r.rt.Launch(ctx, spec)
		h.done <- outcome
		r.mu.Lock()
		delete(r.handles, spec.Run.ID)
		r.mu.Unlock()
	}()
	return nil
}

// Stop requests cancellation of runID's session, returning
// *corerr.NotFoundError if it isn't registered. It does not block for
// the subprocess to actually exit; callers that need the outcome should
// use Await.
func (r *Registry) Stop(runID string) error {
	r.mu.RLock()
	h, ok := r.handles[runID]
	r.mu.RUnlock()
	if !ok {
		return &corerr.NotFoundError{Kind: "run", ID: runID}
	}
	h.cancel()
	return nil
}

// Await blocks until runID's session finishes and returns its Outcome.
// It returns *corerr.NotFoundError if runID was never started or has
// already finished: a session's handle is dropped when it finishes,
// whether or not its Outcome was awaited.
func (r *Registry) Await(runID string) (Outcome, error) {
	r.mu.RLock()
	h, ok := r.handles[runID]
	r.mu.RUnlock()
	if !ok {
		return Outcome{}, &corerr.NotFoundError{Kind: "run", ID: runID}
	}
	return <-h.done, nil
}

// List returns the runs currently tracked as in-flight.
func (r *Registry) List() []types.Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Run, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h.run)
	}
	return out
}

// IsRunning reports whether runID is currently tracked.
func (r *Registry) IsRunning(runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[runID]
	return ok
}

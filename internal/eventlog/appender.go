package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/fsys"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/types"
)

// fileState caches the last well-formed event's hash and a monotonic
// clock offset for one events.jsonl path, so repeated Append calls don't
// re-read the whole file.
type fileState struct {
	lastHash *string
	nextSeq  int
	startMs  int64 // process-relative offset added to ts_monotonic_ms
}

// Appender appends chained events to per-run events.jsonl files. One
// Appender may serve many run paths; per-path state is cached under a
// mutex, matching the "per-file last hash and monotonic clock offset"
// contract of spec.md §4.C.
type Appender struct {
	mu    sync.Mutex
	state map[string]*fileState
	ids   *idgen.Factory
}

// NewAppender returns an Appender with its own id factory.
func NewAppender() *Appender {
	return &Appender{state: map[string]*fileState{}, ids: idgen.NewFactory()}
}

// resetStateForTests clears cached per-file state, the test-only reset
// hook spec.md §5 calls for ("resetEventStateForTests-like hooks").
func (a *Appender) resetStateForTests() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = map[string]*fileState{}
}

// recoverState reads the last well-formed line of path to recover lastHash and
// nextSeq after a process restart, tolerating a torn trailing line.
func recoverState(path string) (*fileState, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &fileState{startMs: time.Now().UnixMilli()}, nil
	}
	if err != nil {
		return nil, &corerr.IOError{Op: "open " + path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lastHash *string
	seq := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env types.Event
		if err := json.Unmarshal(line, &env); err != nil {
			// Torn tail or corrupt line: ignored when determining
			// prev_event_hash, per spec.md §4.C recovery.
			continue
		}
		hash := env.EventHash
		lastHash = &hash
		seq++
	}
	return &fileState{lastHash: lastHash, nextSeq: seq, startMs: time.Now().UnixMilli()}, nil
}

func (a *Appender) stateFor(path string) (*fileState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.state[path]; ok {
		return st, nil
	}
	st, err := recoverState(path)
	if err != nil {
		return nil, err
	}
	a.state[path] = st
	return st, nil
}

// NewEventOpts carries the caller-supplied fields of a new envelope; the
// remaining fields (ULID event_id, hash chain, timestamps) are filled in
// by Append.
type NewEventOpts struct {
	CorrelationID string
	CausationID   string
	RunID         string
	SessionRef    string
	Actor         string
	Visibility    types.Visibility
	Type          string
	Payload       interface{}
}

// Append writes one new chained event to path under the workspace's
// per-file advisory lock, returning the finished envelope. Callers must
// have already checked run.Status for terminal state (spec.md §4.C's
// terminal-state invariant) — Append itself does not load run.yaml.
func (a *Appender) Append(path string, opts NewEventOpts) (types.Event, error) {
	st, err := a.stateFor(path)
	if err != nil {
		return types.Event{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	seq := st.nextSeq
	st.nextSeq++
	prev := st.lastHash

	env := types.Event{
		SchemaVersion: types.SchemaVersion,
		EventID:       a.ids.New(idgen.PrefixEvent),
		CorrelationID: opts.CorrelationID,
		CausationID:   opts.CausationID,
		TsWallclock:   time.Now().UTC().Format(time.RFC3339Nano),
		TsMonotonicMs: st.startMs + int64(seq),
		RunID:         opts.RunID,
		SessionRef:    opts.SessionRef,
		Actor:         opts.Actor,
		Visibility:    opts.Visibility,
		Type:          opts.Type,
		Payload:       opts.Payload,
	}

	chained, err := chainNext(env, prev)
	if err != nil {
		return types.Event{}, &corerr.Fatal{Message: "hash envelope: " + err.Error()}
	}

	line, err := json.Marshal(chained)
	if err != nil {
		return types.Event{}, &corerr.Fatal{Message: "marshal envelope: " + err.Error()}
	}
	if err := fsys.AppendEventJSONL(path, line); err != nil {
		return types.Event{}, err
	}

	hash := chained.EventHash
	st.lastHash = &hash

	return chained, nil
}

// EventsPath builds the events.jsonl path for a run directory.
func EventsPath(runDir string) string {
	return filepath.Join(runDir, "events.jsonl")
}

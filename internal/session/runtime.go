// Package session implements the subprocess session runtime (4.F): launch
// a provider CLI, stream its output into the event log, extract token
// usage and context-compaction signals, and finalize the run record — plus
// the process-wide session registry (4.L).
package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("session")

// killGrace is how long a stop request waits after SIGTERM before
// escalating to SIGKILL.
const killGrace = 5 * time.Second

var errEmptyArgv = errors.New("session: driver returned an empty argv")

// Runtime launches one provider CLI invocation and drives it to
// completion, streaming every line of stdout/stderr into the run's
// event log as provider.raw events and collecting usage/cycle signals
// along the way.
type Runtime struct {
	Appender *eventlog.Appender
	Config   types.MachineConfig
}

// NewRuntime builds a Runtime around an existing event appender.
func NewRuntime(appender *eventlog.Appender, cfg types.MachineConfig) *Runtime {
	return &Runtime{Appender: appender, Config: cfg}
}

// LaunchSpec describes what to run and where its events/run record live.
type LaunchSpec struct {
	Run          types.Run
	EventsPath   string
	Driver       Driver
	CorrelationID string
}

// Outcome is what Launch returns once the subprocess has exited (or been
// stopped) and every stream has been drained.
type Outcome struct {
	Status        types.RunStatus
	Usage         types.Usage
	ContextCycles types.ContextCycles
	FinalText     string
	Err           error
}

// Launch builds and runs spec.Driver's command, streaming its combined
// output into spec.EventsPath as provider.raw events. It blocks until the
// process exits or ctx is canceled (in which case it sends SIGTERM,
// waits killGrace, then SIGKILL).
func (rt *Runtime) Launch(ctx context.Context, spec LaunchSpec) Outcome {
	rt.emitLifecycleEvent(spec, types.EventTypeRunStarted, nil)

	built, err := spec.Driver.Build()
	if err != nil {
		return rt.finish(spec, Outcome{Status: types.RunFailed, Err: err})
	}
	if len(built.Argv) == 0 {
		return rt.finish(spec, Outcome{Status: types.RunFailed, Err: errEmptyArgv})
	}

	cmd := exec.Command(built.Argv[0], built.Argv[1:]...)
	if built.StdinText != "" {
		cmd.Stdin = strings.NewReader(built.StdinText)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return rt.finish(spec, Outcome{Status: types.RunFailed, Err: err})
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return rt.finish(spec, Outcome{Status: types.RunFailed, Err: err})
	}

	if err := cmd.Start(); err != nil {
		return rt.finish(spec, Outcome{Status: types.RunFailed, Err: err})
	}

	var (
		mu            sync.Mutex
		usageSamples  []types.Usage
		rawLines      [][]byte
		stdinChars    = len(built.StdinText)
		outChars      int
		wg            sync.WaitGroup
	)

	stream := func(r io.Reader, streamName string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)

			mu.Lock()
			outChars += len(line)
			rawLines = append(rawLines, line)
			if usage, ok := ExtractUsage(line); ok {
				usageSamples = append(usageSamples, usage)
			}
			mu.Unlock()

			if _, err := rt.Appender.Append(spec.EventsPath, eventlog.NewEventOpts{
				CorrelationID: spec.CorrelationID,
				RunID:         spec.Run.ID,
				Type:          types.EventTypeProviderRaw,
				Visibility:    types.VisibilityPrivateAgent,
				Payload: map[string]interface{}{
					"stream": streamName,
					"line":   string(line),
				},
			}); err != nil {
				log.Warnf("append provider.raw for run %s: %v", spec.Run.ID, err)
			}
		}
	}

	wg.Add(2)
	go stream(stdout, "stdout")
	go stream(stderr, "stderr")

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var runErr error
	select {
	case runErr = <-waitErr:
	case <-ctx.Done():
		runErr = rt.stopProcess(cmd, waitErr)
	}
	wg.Wait()

	mu.Lock()
	usage := MergeBestUsage(usageSamples, stdinChars, outChars)
	cycles := CollectContextCycles(rawLines, "stdout")
	mu.Unlock()

	cost, costSource := EstimateCostUSD(rt.Config, spec.Run.Provider, usage)
	usage.CostUSD = cost
	usage.CostSource = costSource

	finalText, parseErr := resolveFinalText(built, rawLines)

	status := types.RunEnded
	switch {
	case ctx.Err() != nil:
		status = types.RunStopped
	case runErr != nil:
		status = types.RunFailed
	case parseErr != nil:
		status = types.RunFailed
	}

	outcomeErr := runErr
	if outcomeErr == nil {
		outcomeErr = parseErr
	}

	return rt.finish(spec, Outcome{Status: status, Usage: usage, ContextCycles: cycles, FinalText: finalText, Err: outcomeErr})
}

// resolveFinalText prefers reading built.FinalTextFileAbs if the driver
// declared one (a provider that writes its final answer to a file rather
// than emitting it on stdout), falling back to built.FinalTextParser run
// over the joined raw stream. The parser's error is returned, not
// discarded, so a failed parse can fail the run per its caller.
func resolveFinalText(built BuiltCommand, rawLines [][]byte) (string, error) {
	if built.FinalTextFileAbs != "" {
		data, err := os.ReadFile(built.FinalTextFileAbs)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if built.FinalTextParser != nil {
		return built.FinalTextParser(joinLines(rawLines), "")
	}
	return "", nil
}

// emitLifecycleEvent appends a run.started/run.ended/run.failed/run.stopped
// event to the run's event log. Logging is best-effort: a failure to
// append must not abort or mask the run's actual outcome.
func (rt *Runtime) emitLifecycleEvent(spec LaunchSpec, eventType string, outcomeErr error) {
	payload := map[string]interface{}{"provider": spec.Run.Provider}
	if outcomeErr != nil {
		payload["error"] = outcomeErr.Error()
	}
	if _, err := rt.Appender.Append(spec.EventsPath, eventlog.NewEventOpts{
		CorrelationID: spec.CorrelationID,
		RunID:         spec.Run.ID,
		Type:          eventType,
		Visibility:    types.VisibilityPrivateAgent,
		Payload:       payload,
	}); err != nil {
		log.Warnf("append %s for run %s: %v", eventType, spec.Run.ID, err)
	}
}

// finish emits the terminal run.ended/run.failed/run.stopped event
// matching outcome.Status before returning it to the caller.
func (rt *Runtime) finish(spec LaunchSpec, outcome Outcome) Outcome {
	eventType := types.EventTypeRunEnded
	switch outcome.Status {
	case types.RunFailed:
		eventType = types.EventTypeRunFailed
	case types.RunStopped:
		eventType = types.EventTypeRunStopped
	}
	rt.emitLifecycleEvent(spec, eventType, outcome.Err)
	return outcome
}

// stopProcess sends SIGTERM and escalates to SIGKILL after killGrace if
// the process hasn't exited, waiting on the single cmd.Wait() goroutine's
// result channel rather than reaping the process itself.
func (rt *Runtime) stopProcess(cmd *exec.Cmd, waitErr <-chan error) error {
	if cmd.Process == nil {
		return <-waitErr
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	timer := time.NewTimer(killGrace)
	defer timer.Stop()
	select {
	case err := <-waitErr:
		return err
	case <-timer.C:
		_ = cmd.Process.Kill()
		return <-waitErr
	}
}

func joinLines(lines [][]byte) string {
	var out []byte
	for _, l := range lines {
		out = append(out, l...)
		out = append(out, '\n')
	}
	return string(out)
}

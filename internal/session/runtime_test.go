package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/types"
)

func echoDriver(payload string) Driver {
	return Driver{
		Provider: "test",
		Build: func() (BuiltCommand, error) {
			return BuiltCommand{Argv: []string{"/bin/echo", payload}}, nil
		},
	}
}

func TestLaunchStreamsProviderRawEvents(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")

	rt := NewRuntime(eventlog.NewAppender(), types.MachineConfig{})
	outcome := rt.Launch(context.Background(), LaunchSpec{
		Run:        types.Run{ID: "run_1", Provider: "test"},
		EventsPath: eventsPath,
		Driver:     echoDriver(`{"usage":{"input_tokens":10,"output_tokens":5,"total_tokens":15}}`),
	})

	if outcome.Status != types.RunEnded {
		t.Fatalf("Status = %q, want ended", outcome.Status)
	}
	if outcome.Usage.Total != 15 {
		t.Errorf("Usage.Total = %d, want 15", outcome.Usage.Total)
	}

	result, err := eventlog.Replay(eventsPath, true)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(result.Events) == 0 {
		t.Fatal("expected at least one event")
	}
	if len(result.VerificationIssues) != 0 {
		t.Errorf("VerificationIssues = %+v, want none", result.VerificationIssues)
	}

	var sawStarted, sawEnded, sawProviderRaw bool
	for _, ev := range result.Events {
		switch ev.Type {
		case types.EventTypeRunStarted:
			sawStarted = true
		case types.EventTypeRunEnded:
			sawEnded = true
		case types.EventTypeProviderRaw:
			sawProviderRaw = true
		default:
			t.Errorf("unexpected event type %q", ev.Type)
		}
	}
	if !sawStarted {
		t.Error("expected a run.started event")
	}
	if !sawEnded {
		t.Error("expected a run.ended event")
	}
	if !sawProviderRaw {
		t.Error("expected at least one provider.raw event")
	}
}

func TestLaunchContextCancelStopsProcess(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")

	rt := NewRuntime(eventlog.NewAppender(), types.MachineConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	driver := Driver{
		Provider: "test",
		Build: func() (BuiltCommand, error) {
			return BuiltCommand{Argv: []string{"/bin/sleep", "30"}}, nil
		},
	}

	done := make(chan Outcome, 1)
	go func() {
		done <- rt.Launch(ctx, LaunchSpec{
			Run:        types.Run{ID: "run_2", Provider: "test"},
			EventsPath: eventsPath,
			Driver:     driver,
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case outcome := <-done:
		if outcome.Status != types.RunStopped {
			t.Errorf("Status = %q, want stopped", outcome.Status)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Launch did not return after cancellation within 10s")
	}
}

func TestLaunchPrefersFinalTextFileOverParser(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")
	finalPath := filepath.Join(dir, "final.txt")
	if err := os.WriteFile(finalPath, []byte("the answer"), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := NewRuntime(eventlog.NewAppender(), types.MachineConfig{})
	driver := Driver{
		Provider: "test",
		Build: func() (BuiltCommand, error) {
			return BuiltCommand{
				Argv:             []string{"/bin/echo", "ignored"},
				FinalTextFileAbs: finalPath,
				FinalTextParser: func(stdout, stderr string) (string, error) {
					t.Fatal("parser should not run when FinalTextFileAbs is set")
					return "", nil
				},
			}, nil
		},
	}

	outcome := rt.Launch(context.Background(), LaunchSpec{
		Run:        types.Run{ID: "run_4", Provider: "test"},
		EventsPath: eventsPath,
		Driver:     driver,
	})
	if outcome.FinalText != "the answer" {
		t.Errorf("FinalText = %q, want %q", outcome.FinalText, "the answer")
	}
	if outcome.Status != types.RunEnded {
		t.Errorf("Status = %q, want ended", outcome.Status)
	}
}

func TestLaunchFinalTextParserErrorFailsRun(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")

	rt := NewRuntime(eventlog.NewAppender(), types.MachineConfig{})
	parseErr := errors.New("unparseable transcript")
	driver := Driver{
		Provider: "test",
		Build: func() (BuiltCommand, error) {
			return BuiltCommand{
				Argv:            []string{"/bin/echo", "hi"},
				FinalTextParser: func(stdout, stderr string) (string, error) { return "", parseErr },
			}, nil
		},
	}

	outcome := rt.Launch(context.Background(), LaunchSpec{
		Run:        types.Run{ID: "run_5", Provider: "test"},
		EventsPath: eventsPath,
		Driver:     driver,
	})
	if outcome.Status != types.RunFailed {
		t.Errorf("Status = %q, want failed", outcome.Status)
	}
	if outcome.Err == nil {
		t.Error("expected outcome.Err to carry the parser error")
	}
}

func TestLaunchEmptyArgvFails(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")

	rt := NewRuntime(eventlog.NewAppender(), types.MachineConfig{})
	driver := Driver{Build: func() (BuiltCommand, error) { return BuiltCommand{}, nil }}

	outcome := rt.Launch(context.Background(), LaunchSpec{
		Run:        types.Run{ID: "run_3"},
		EventsPath: eventsPath,
		Driver:     driver,
	})
	if outcome.Status != types.RunFailed || outcome.Err == nil {
		t.Errorf("outcome = %+v, want failed with an error", outcome)
	}
}

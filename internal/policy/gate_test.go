package policy

import (
	"path/filepath"
	"testing"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/types"
)

func TestGateEnforceDeniedAppendsAuditEvent(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")

	gate := NewGate(eventlog.NewAppender())
	wctx := WriteContext{
		RunID:         "run_1",
		RunEventsPath: eventsPath,
		Actor:         Actor{ActorID: "agent_a", Role: types.RoleWorker, TeamID: "team_a"},
	}
	resource := Resource{Visibility: types.VisibilityTeam, TeamID: "team_b"}

	_, err := gate.Enforce(wctx, ActionRead, resource)
	var denied *corerr.PolicyDenied
	if err == nil {
		t.Fatal("expected PolicyDenied error")
	}
	if de, ok := err.(*corerr.PolicyDenied); !ok {
		t.Fatalf("error type = %T, want *corerr.PolicyDenied", err)
	} else {
		denied = de
	}
	if denied.RuleID != "vis.team.mismatch" {
		t.Errorf("RuleID = %q, want vis.team.mismatch", denied.RuleID)
	}

	result, rerr := eventlog.Replay(eventsPath, false)
	if rerr != nil {
		t.Fatalf("Replay: %v", rerr)
	}
	if len(result.Events) != 1 {
		t.Fatalf("events logged = %d, want 1", len(result.Events))
	}
	if result.Events[0].Type != types.EventTypePolicyDenied {
		t.Errorf("event type = %q, want %q", result.Events[0].Type, types.EventTypePolicyDenied)
	}
}

func TestGateEnforceAllowedReturnsDecisionNoEvent(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")

	gate := NewGate(eventlog.NewAppender())
	wctx := WriteContext{
		RunID:         "run_1",
		RunEventsPath: eventsPath,
		Actor:         Actor{Role: types.RoleHuman},
	}
	resource := Resource{Visibility: types.VisibilityOrg}

	decision, err := gate.Enforce(wctx, ActionRead, resource)
	if err != nil {
		t.Fatalf("Enforce error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected allowed decision")
	}

	result, rerr := eventlog.Replay(eventsPath, false)
	if rerr != nil {
		t.Fatalf("Replay: %v", rerr)
	}
	if len(result.Events) != 0 {
		t.Errorf("events logged = %d, want 0 for an allowed decision", len(result.Events))
	}
}

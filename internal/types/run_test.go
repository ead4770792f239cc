package types

import "testing"

func TestRunStatusTerminal(t *testing.T) {
	cases := []struct {
		status   RunStatus
		terminal bool
	}{
		{RunRunning, false},
		{RunEnded, true},
		{RunFailed, true},
		{RunStopped, true},
	}
	for _, c := range cases {
		if got := c.status.Terminal(); got != c.terminal {
			t.Errorf("%q.Terminal() = %v, want %v", c.status, got, c.terminal)
		}
	}
}

func TestRunCanAppendEvents(t *testing.T) {
	running := Run{Status: RunRunning}
	if !running.CanAppendEvents() {
		t.Error("CanAppendEvents() = false for running run, want true")
	}

	ended := Run{Status: RunEnded}
	if ended.CanAppendEvents() {
		t.Error("CanAppendEvents() = true for ended run, want false")
	}
}

func TestRunValidate(t *testing.T) {
	ok := Run{ID: "run_1", ProjectID: "proj_1", AgentID: "agent_1", Status: RunRunning}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	bad := ok
	bad.AgentID = ""
	if err := bad.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing agent_id")
	}
}

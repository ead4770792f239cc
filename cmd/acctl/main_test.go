package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/types"
)

func TestExitCodeMapsKnownErrorTypes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&corerr.ValidationError{}, 2},
		{&corerr.NotFoundError{Kind: "run", ID: "run_1"}, 3},
		{&corerr.PolicyDenied{RuleID: "r1"}, 4},
		{&corerr.SensitiveTextError{}, 5},
		{&corerr.LockContended{}, 6},
		{corerr.NewUserError("bad flag"), 1},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Errorf("exitCode(%T) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestArgvFlagsAccumulates(t *testing.T) {
	var a argvFlags
	if err := a.Set("--foo"); err != nil {
		t.Fatal(err)
	}
	if err := a.Set("--bar"); err != nil {
		t.Fatal(err)
	}
	if len(a) != 2 || a[0] != "--foo" || a[1] != "--bar" {
		t.Fatalf("argvFlags = %v", a)
	}
}

func TestLoadMachineConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadMachineConfig(dir)
	if err != nil {
		t.Fatalf("loadMachineConfig: %v", err)
	}
	if cfg.ProviderBins == nil {
		t.Fatal("expected a default, non-nil ProviderBins map")
	}
}

func TestLoadMachineConfigParsesProviderBins(t *testing.T) {
	dir := t.TempDir()
	localDir := filepath.Join(dir, ".local")
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(localDir, "machine.yaml"), []byte("schema_version: 1\ntype: machine\nprovider_bins:\n  claude: /usr/bin/claude\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadMachineConfig(dir)
	if err != nil {
		t.Fatalf("loadMachineConfig: %v", err)
	}
	if cfg.ProviderBins["claude"] != "/usr/bin/claude" {
		t.Fatalf("ProviderBins[claude] = %q, want /usr/bin/claude", cfg.ProviderBins["claude"])
	}
}

func TestWriteRunYAMLRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	run := types.Run{SchemaVersion: types.SchemaVersion, ID: "run_1", ProjectID: "proj_1", AgentID: "agent_1", Status: types.RunRunning}

	if err := writeRunYAML(path, run); err != nil {
		t.Fatalf("writeRunYAML: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
	var got types.Run
	if err := types.StrictUnmarshalYAML(data, &got); err != nil {
		t.Fatalf("parse written run.yaml: %v", err)
	}
	if got.ID != run.ID || got.ProjectID != run.ProjectID || got.AgentID != run.AgentID || got.Status != run.Status {
		t.Errorf("round-tripped run = %+v, want %+v", got, run)
	}
}

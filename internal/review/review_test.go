package review

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CLIAIMONITOR/internal/artifactio"
	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/policy"
	"github.com/CLIAIMONITOR/internal/types"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	store, err := index.Open(filepath.Join(root, ".local", "index.sqlite"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	gate := policy.NewGate(eventlog.NewAppender())
	svc := NewService(root, store, gate, eventlog.NewAppender(), idgen.NewFactory(), nil, nil)
	return svc, root
}

func writeFixtureArtifact(t *testing.T, root, projectID string, art types.Artifact) {
	t.Helper()
	path := filepath.Join(root, "work", "projects", projectID, "artifacts", art.ID+".md")
	if err := artifactio.WriteFile(path, art); err != nil {
		t.Fatalf("artifactio.WriteFile: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "org", "agents", art.ProducedBy), 0o755); err != nil {
		t.Fatal(err)
	}
	agentYAML := "schema_version: 1\nid: " + art.ProducedBy + "\nname: Worker\nrole: worker\nprovider: codex\nlauncher: subprocess\nteam_id: team_a\ncreated_at: 2026-01-01T00:00:00Z\n"
	if err := os.WriteFile(filepath.Join(root, "org", "agents", art.ProducedBy, "agent.yaml"), []byte(agentYAML), 0o644); err != nil {
		t.Fatal(err)
	}
}

func seedPending(t *testing.T, svc *Service, projectID string, art types.Artifact) {
	t.Helper()
	if err := svc.Store.UpsertPendingReview(art.ID, art.Type, projectID, art.CreatedAt.Format(time.RFC3339Nano), art.ProducedBy); err != nil {
		t.Fatalf("UpsertPendingReview: %v", err)
	}
}

func memoryDeltaArtifact(id string) types.Artifact {
	return types.Artifact{
		SchemaVersion: types.SchemaVersion,
		Type:          types.ArtifactMemoryDelta,
		ID:            id,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Title:         "memory update",
		Visibility:    types.VisibilityTeam,
		ProducedBy:    "agent_1",
		RunID:         "run_1",
		Body:          "## Target\nwork/projects/proj_1/memory.md\n\n## Patch\n- learned something new\n",
	}
}

func TestResolveApprovedMemoryDeltaAppliesPatch(t *testing.T) {
	svc, root := newTestService(t)
	art := memoryDeltaArtifact("art_1")
	writeFixtureArtifact(t, root, "proj_1", art)
	seedPending(t, svc, "proj_1", art)

	rv, err := svc.Resolve(ResolveRequest{
		ArtifactID: "art_1",
		Decision:   types.DecisionApproved,
		ActorID:    "dir_1",
		ActorRole:  types.RoleDirector,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rv.Decision != types.DecisionApproved {
		t.Errorf("Decision = %q, want approved", rv.Decision)
	}

	memPath := filepath.Join(root, "work", "projects", "proj_1", "memory.md")
	data, err := os.ReadFile(memPath)
	if err != nil {
		t.Fatalf("reading applied memory.md: %v", err)
	}
	if got := string(data); got != "- learned something new\n" {
		t.Errorf("memory.md = %q, want patch content", got)
	}

	pending, err := svc.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after resolve = %d, want 0", len(pending))
	}

	decisions, err := svc.RecentDecisions(0)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].ID != rv.ID {
		t.Errorf("RecentDecisions = %+v, want one entry matching %s", decisions, rv.ID)
	}
}

func TestResolveDeniedByPolicyLeavesArtifactPending(t *testing.T) {
	svc, root := newTestService(t)
	art := memoryDeltaArtifact("art_2")
	writeFixtureArtifact(t, root, "proj_1", art)
	seedPending(t, svc, "proj_1", art)

	_, err := svc.Resolve(ResolveRequest{
		ArtifactID: "art_2",
		Decision:   types.DecisionApproved,
		ActorID:    "worker_1",
		ActorRole:  types.RoleWorker,
	})
	if err == nil {
		t.Fatal("expected a policy denial for a worker approving a memory_delta")
	}
	var denied *corerr.PolicyDenied
	if de, ok := err.(*corerr.PolicyDenied); !ok {
		t.Fatalf("error type = %T, want *corerr.PolicyDenied", err)
	} else {
		denied = de
	}
	_ = denied

	pending, err := svc.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending after denied resolve = %d, want 1 (still pending)", len(pending))
	}
}

func TestResolveUnknownArtifactNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Resolve(ResolveRequest{
		ArtifactID: "does_not_exist",
		Decision:   types.DecisionApproved,
		ActorID:    "mgr_1",
		ActorRole:  types.RoleManager,
	})
	if _, ok := err.(*corerr.NotFoundError); !ok {
		t.Fatalf("error type = %T, want *corerr.NotFoundError", err)
	}
}

func TestResolveRejectsSensitiveNotes(t *testing.T) {
	svc, root := newTestService(t)
	art := memoryDeltaArtifact("art_3")
	writeFixtureArtifact(t, root, "proj_1", art)
	seedPending(t, svc, "proj_1", art)

	_, err := svc.Resolve(ResolveRequest{
		ArtifactID: "art_3",
		Decision:   types.DecisionApproved,
		ActorID:    "dir_1",
		ActorRole:  types.RoleDirector,
		Notes:      "token=sk-1234567890abcdefghijklmnopqrs",
	})
	if err == nil {
		t.Fatal("expected a SensitiveTextError for notes carrying an API key")
	}
}

package mcp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/policy"
	"github.com/CLIAIMONITOR/internal/review"
	"github.com/CLIAIMONITOR/internal/types"
)

func TestWorkspacePendingReviewsTool(t *testing.T) {
	dir := t.TempDir()
	store, err := index.Open(filepath.Join(dir, "index.sqlite"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	defer store.Close()

	if err := store.UpsertPendingReview("art_1", types.ArtifactMemoryDelta, "proj_1", time.Now().UTC().Format(time.RFC3339Nano), "agent_1"); err != nil {
		t.Fatalf("UpsertPendingReview: %v", err)
	}

	gate := policy.NewGate(eventlog.NewAppender())
	reviewSvc := review.NewService(dir, store, gate, eventlog.NewAppender(), idgen.NewFactory(), nil, nil)

	server := NewServer()
	RegisterWorkspaceTools(server, reviewSvc, store)

	result, err := server.tools.Execute("workspace.pending_reviews", "agent_1", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	pending, ok := result.([]index.PendingReview)
	if !ok || len(pending) != 1 {
		t.Fatalf("result = %+v, want one pending review", result)
	}
}

func TestWorkspaceRunStatusToolNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := index.Open(filepath.Join(dir, "index.sqlite"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	defer store.Close()

	gate := policy.NewGate(eventlog.NewAppender())
	reviewSvc := review.NewService(dir, store, gate, eventlog.NewAppender(), idgen.NewFactory(), nil, nil)

	server := NewServer()
	RegisterWorkspaceTools(server, reviewSvc, store)

	if _, err := server.tools.Execute("workspace.run_status", "agent_1", map[string]interface{}{"run_id": "run_missing"}); err == nil {
		t.Fatal("expected an error for an unknown run id")
	}
}

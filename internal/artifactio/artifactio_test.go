package artifactio

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/CLIAIMONITOR/internal/types"
)

func sampleMemoryDelta() types.Artifact {
	return types.Artifact{
		SchemaVersion: types.SchemaVersion,
		Type:          types.ArtifactMemoryDelta,
		ID:            "art_1",
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Title:         "memory update",
		Visibility:    types.VisibilityTeam,
		ProducedBy:    "agent_1",
		RunID:         "run_1",
		Body:          "## Target\nwork/projects/proj_1/memory.md\n\n## Patch\n- did a thing\n",
	}
}

func TestRenderAndReadFrontMatterRoundTrip(t *testing.T) {
	art := sampleMemoryDelta()
	data, err := Render(art)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	parsed, err := ReadFrontMatter(data)
	if err != nil {
		t.Fatalf("ReadFrontMatter: %v", err)
	}
	if parsed.ID != art.ID || parsed.Type != art.Type || parsed.Body != art.Body {
		t.Errorf("parsed = %+v, want round-trip of %+v", parsed, art)
	}
}

func TestValidateRejectsMissingHeading(t *testing.T) {
	art := sampleMemoryDelta()
	art.Body = "## Target\nonly one heading\n"
	if err := Validate(art); err == nil {
		t.Fatal("expected Validate to reject a body missing the ## Patch heading")
	}
}

func TestWriteFileThenReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "art_1.md")
	art := sampleMemoryDelta()

	if err := WriteFile(path, art); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	read, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if read.ID != art.ID {
		t.Errorf("read.ID = %q, want %q", read.ID, art.ID)
	}
}

func TestReadFrontMatterRejectsMissingDelimiter(t *testing.T) {
	if _, err := ReadFrontMatter([]byte("no front matter here")); err == nil {
		t.Fatal("expected an error for a file with no front matter")
	}
}

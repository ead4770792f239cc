// Package contextpack builds and persists a run's context pack (spec.md
// §4.K): the repo-snapshot + included-docs + tool-allowlist manifest bound
// 1:1 to the run that requested it, plus the dirty-patch artifact a
// context pack mints when the working tree it snapshotted carried
// uncommitted changes.
package contextpack

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CLIAIMONITOR/internal/artifactio"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/fsys"
	"github.com/CLIAIMONITOR/internal/git"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/policy"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("contextpack")

// Manager builds context packs against one workspace root.
type Manager struct {
	Root string
	Gate *policy.Gate
	IDs  *idgen.Factory
}

// NewManager builds a Manager. ids may be nil, in which case the Manager
// gets a fresh id factory of its own.
func NewManager(root string, gate *policy.Gate, ids *idgen.Factory) *Manager {
	if ids == nil {
		ids = idgen.NewFactory()
	}
	return &Manager{Root: root, Gate: gate, IDs: ids}
}

// DocInput names one document on disk to fold into a context pack's
// included_docs, along with the visibility/sensitivity it carries for the
// policy check.
type DocInput struct {
	Path        string // path recorded in the manifest, relative to Root
	AbsPath     string // where to actually read the file from
	Visibility  types.Visibility
	Sensitivity types.Sensitivity
}

// BuildRequest carries everything Build needs to assemble one manifest.
type BuildRequest struct {
	ProjectID     string
	RunID         string
	AgentID       string
	RepoID        string // empty means no repo_snapshot
	RepoPath      string // absolute path to the working tree to snapshot
	Docs          []DocInput
	ToolAllowlist []string
	Actor         policy.Actor
}

// Build assembles and persists a ContextPack: it hashes every included
// doc, policy-enforces compose_context for any restricted-sensitivity
// doc, snapshots the repo (minting a dirty_patch artifact if the tree is
// dirty), and writes the manifest atomically.
func (m *Manager) Build(req BuildRequest) (types.ContextPack, error) {
	var runEventsPath string
	if req.RunID != "" {
		runEventsPath = eventlog.EventsPath(filepath.Join(m.Root, "work", "projects", req.ProjectID, "runs", req.RunID))
	}
	wctx := policy.WriteContext{ProjectID: req.ProjectID, RunID: req.RunID, RunEventsPath: runEventsPath, Actor: req.Actor}

	included := make([]types.IncludedDoc, 0, len(req.Docs))
	for _, d := range req.Docs {
		if d.Sensitivity == types.SensitivityRestricted {
			resource := policy.Resource{ResourceID: d.Path, Sensitivity: types.SensitivityRestricted}
			if _, err := m.Gate.Enforce(wctx, policy.ActionComposeContext, resource); err != nil {
				return types.ContextPack{}, fmt.Errorf("contextpack: composing %s: %w", d.Path, err)
			}
		}
		sum, err := sha256File(d.AbsPath)
		if err != nil {
			return types.ContextPack{}, fmt.Errorf("contextpack: hashing %s: %w", d.Path, err)
		}
		included = append(included, types.IncludedDoc{Path: d.Path, SHA256: sum, Visibility: d.Visibility})
	}

	cp := types.ContextPack{
		SchemaVersion: types.SchemaVersion,
		ID:            m.IDs.New(idgen.PrefixContextPack),
		CreatedAt:     time.Now().UTC(),
		RunID:         req.RunID,
		ProjectID:     req.ProjectID,
		AgentID:       req.AgentID,
		IncludedDocs:  included,
		ToolAllowlist: req.ToolAllowlist,
	}

	if req.RepoID != "" && req.RepoPath != "" {
		snapshot, patchID, err := m.snapshotRepo(req, cp.ID)
		if err != nil {
			return types.ContextPack{}, err
		}
		cp.RepoSnapshot = snapshot
		if patchID != "" {
			cp.RepoSnapshot.DirtyPatchArtifactID = patchID
		}
	}

	if err := cp.Validate(); err != nil {
		return types.ContextPack{}, err
	}
	if err := m.writeManifest(cp); err != nil {
		return types.ContextPack{}, err
	}
	return cp, nil
}

// snapshotRepo records repoPath's HEAD and, if dirty, mints a dirty_patch
// artifact holding the unified diff against HEAD.
func (m *Manager) snapshotRepo(req BuildRequest, contextPackID string) (*types.RepoSnapshot, string, error) {
	repo := git.New(req.RepoPath)
	head, err := repo.HeadSHA()
	if err != nil {
		return nil, "", fmt.Errorf("contextpack: resolve HEAD for %s: %w", req.RepoID, err)
	}
	dirty, err := repo.HasUncommittedChanges()
	if err != nil {
		return nil, "", fmt.Errorf("contextpack: check dirty state for %s: %w", req.RepoID, err)
	}

	snapshot := &types.RepoSnapshot{RepoID: req.RepoID, HeadSHA: head, Dirty: dirty}
	if !dirty {
		return snapshot, "", nil
	}

	diff, err := repo.DiffWorkingTree()
	if err != nil {
		return nil, "", fmt.Errorf("contextpack: diff working tree for %s: %w", req.RepoID, err)
	}
	if diff == "" {
		// status --porcelain saw changes (e.g. untracked files) that
		// `diff HEAD` doesn't capture; still mark dirty, skip the patch.
		log.Warnf("repo %s reported dirty but produced an empty HEAD diff", req.RepoID)
		return snapshot, "", nil
	}

	art := types.Artifact{
		SchemaVersion: types.SchemaVersion,
		Type:          types.ArtifactDirtyPatch,
		ID:            m.IDs.New(idgen.PrefixArtifact),
		CreatedAt:     time.Now().UTC(),
		Title:         fmt.Sprintf("dirty patch: %s @ %s", req.RepoID, head[:min(8, len(head))]),
		Visibility:    types.VisibilityTeam,
		ProducedBy:    req.AgentID,
		RunID:         req.RunID,
		ContextPackID: contextPackID,
		Body:          "## Patch\n```diff\n" + diff + "\n```\n",
	}
	path := filepath.Join(m.Root, "work", "projects", req.ProjectID, "artifacts", art.ID+".md")
	if err := artifactio.WriteFile(path, art); err != nil {
		return nil, "", fmt.Errorf("contextpack: write dirty_patch artifact: %w", err)
	}
	return snapshot, art.ID, nil
}

func (m *Manager) writeManifest(cp types.ContextPack) error {
	data, err := yaml.Marshal(cp)
	if err != nil {
		return fmt.Errorf("contextpack: marshal manifest: %w", err)
	}
	path := filepath.Join(m.Root, "work", "projects", cp.ProjectID, "context_packs", cp.ID, "manifest.yaml")
	return fsys.WriteFileAtomic(path, data, 0o644)
}

// ReadManifest loads a previously written manifest by id.
func ReadManifest(root, projectID, contextPackID string) (types.ContextPack, error) {
	path := filepath.Join(root, "work", "projects", projectID, "context_packs", contextPackID, "manifest.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ContextPack{}, err
	}
	var cp types.ContextPack
	if err := types.StrictUnmarshalYAML(data, &cp); err != nil {
		return types.ContextPack{}, fmt.Errorf("contextpack: parse manifest %s: %w", path, err)
	}
	return cp, nil
}

func sha256File(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

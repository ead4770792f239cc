// Package review implements the review inbox projection and the resolve
// write path (spec.md §4.J): pending artifacts awaiting a decision, the
// decided-reviews history, and the single Resolve operation that turns
// one into the other.
package review

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CLIAIMONITOR/internal/artifactio"
	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/fsys"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/notify"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/policy"
	"github.com/CLIAIMONITOR/internal/redact"
	"github.com/CLIAIMONITOR/internal/syncworker"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("review")

// Service wires the inbox projection and resolve path to one workspace
// root and its process-scoped shared services.
type Service struct {
	Root     string
	Store    *index.Store
	Gate     *policy.Gate
	Appender *eventlog.Appender
	IDs      *idgen.Factory
	Sync     *syncworker.Worker // optional; Notify()'d after a successful resolve
	Notify   *notify.Bridge     // optional; republishes approval.decided over NATS
}

// NewService builds a Service. ids may be nil, in which case the
// Service gets a fresh id factory of its own. bridge may be nil, in which
// case Resolve skips republishing entirely.
func NewService(root string, store *index.Store, gate *policy.Gate, appender *eventlog.Appender, ids *idgen.Factory, sync *syncworker.Worker, bridge *notify.Bridge) *Service {
	if ids == nil {
		ids = idgen.NewFactory()
	}
	return &Service{Root: root, Store: store, Gate: gate, Appender: appender, IDs: ids, Sync: sync, Notify: bridge}
}

// Pending returns every artifact still awaiting a decision, oldest first.
func (s *Service) Pending() ([]index.PendingReview, error) {
	return s.Store.ListPendingReviews()
}

// RecentDecisions returns decided reviews newest first, capped at limit (0
// means no cap).
func (s *Service) RecentDecisions(limit int) ([]types.Review, error) {
	return s.Store.ListRecentReviews(limit)
}

// ResolveRequest carries the inputs to Resolve: spec.md §4.J's
// "artifact_id, decision, actor, notes?".
type ResolveRequest struct {
	ArtifactID string
	Decision   types.ReviewDecision
	ActorID    string
	ActorRole  types.Role
	Notes      string
}

// Resolve decides a pending artifact: policy-enforces the approve action,
// redact-checks notes, persists a Review record, applies a memory_delta's
// patch on approval, emits approval.decided to the originating run's
// event log, and clears the artifact from the pending set.
//
// On a policy denial, no review is written and the artifact remains
// pending; the gate itself has already appended the audit event.
func (s *Service) Resolve(req ResolveRequest) (types.Review, error) {
	if req.ArtifactID == "" {
		return types.Review{}, &corerr.UserError{Message: "artifact_id is required"}
	}
	if !req.Decision.Valid() {
		return types.Review{}, &corerr.UserError{Message: fmt.Sprintf("invalid decision %q", req.Decision)}
	}

	pending, err := s.Store.PendingReviewByID(req.ArtifactID)
	if err != nil {
		return types.Review{}, err
	}
	if pending == nil {
		return types.Review{}, &corerr.NotFoundError{Kind: "pending_review", ID: req.ArtifactID}
	}

	artifactPath := filepath.Join(s.Root, "work", "projects", pending.ProjectID, "artifacts", req.ArtifactID+".md")
	art, err := artifactio.ReadFile(artifactPath)
	if err != nil {
		return types.Review{}, err
	}

	teamID, err := s.resolveProducerTeam(art.ProducedBy)
	if err != nil {
		log.Warnf("resolving team for producer %s: %v", art.ProducedBy, err)
	}

	var runEventsPath string
	if art.RunID != "" {
		runEventsPath = eventlog.EventsPath(filepath.Join(s.Root, "work", "projects", pending.ProjectID, "runs", art.RunID))
	}

	wctx := policy.WriteContext{
		ProjectID:     pending.ProjectID,
		RunID:         art.RunID,
		RunEventsPath: runEventsPath,
		Actor:         policy.Actor{ActorID: req.ActorID, Role: req.ActorRole, TeamID: teamID},
	}
	resource := policy.Resource{
		ResourceID:       art.ID,
		Visibility:       art.Visibility,
		TeamID:           teamID,
		ProducingActorID: art.ProducedBy,
		Kind:             string(art.Type),
	}
	decision, err := s.Gate.Enforce(wctx, policy.ActionApprove, resource)
	if err != nil {
		return types.Review{}, err
	}

	if req.Notes != "" {
		if err := redact.AssertNoSensitiveText(req.Notes, "reviewer_notes"); err != nil {
			return types.Review{}, err
		}
	}

	rv := types.Review{
		SchemaVersion:     types.SchemaVersion,
		ID:                s.IDs.New(idgen.PrefixReview),
		CreatedAt:         time.Now().UTC(),
		ActorID:           req.ActorID,
		ActorRole:         req.ActorRole,
		Decision:          req.Decision,
		SubjectArtifactID: art.ID,
		Policy:            decision.RuleID,
		Notes:             req.Notes,
	}
	if err := rv.Validate(); err != nil {
		return types.Review{}, err
	}

	reviewPath := filepath.Join(s.Root, "inbox", "reviews", rv.ID+".yaml")
	data, err := yaml.Marshal(rv)
	if err != nil {
		return types.Review{}, fmt.Errorf("review: marshal review: %w", err)
	}
	if err := fsys.WriteFileAtomic(reviewPath, data, 0o644); err != nil {
		return types.Review{}, err
	}

	if req.Decision == types.DecisionApproved && art.Type == types.ArtifactMemoryDelta {
		if err := applyMemoryDelta(s.Root, art); err != nil {
			return types.Review{}, fmt.Errorf("review: apply memory_delta %s: %w", art.ID, err)
		}
	}

	if runEventsPath != "" {
		ev, err := s.Appender.Append(runEventsPath, eventlog.NewEventOpts{
			RunID:      art.RunID,
			Actor:      req.ActorID,
			Visibility: types.VisibilityTeam,
			Type:       types.EventTypeApprovalDecided,
			Payload: map[string]interface{}{
				"artifact_id": art.ID,
				"decision":    string(req.Decision),
				"review_id":   rv.ID,
			},
		})
		if err != nil {
			log.Errorf("failed to append approval.decided event for artifact %s: %v", art.ID, err)
		} else if s.Notify != nil {
			s.Notify.PublishEvent(pending.ProjectID, ev)
		}
	}

	if err := s.Store.InsertReview(rv); err != nil {
		return types.Review{}, err
	}
	if err := s.Store.ClearPendingReview(art.ID); err != nil {
		return types.Review{}, err
	}

	if s.Sync != nil {
		s.Sync.Notify()
	}

	return rv, nil
}

// resolveProducerTeam reads org/agents/<agent_id>/agent.yaml to find the
// team a memory_delta/artifact's producer belongs to. Empty producedBy
// (or a human actor, which has no agent.yaml) resolves to "" without
// error.
func (s *Service) resolveProducerTeam(producedBy string) (string, error) {
	if producedBy == "" {
		return "", nil
	}
	path := filepath.Join(s.Root, "org", "agents", producedBy, "agent.yaml")
	data, err := readFileTolerant(path)
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}
	var agent types.Agent
	if err := types.StrictUnmarshalYAML(data, &agent); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return agent.TeamID, nil
}

// applyMemoryDelta appends the artifact's "## Patch" section to the
// target file named under its "## Target" section, atomically.
func applyMemoryDelta(root string, art types.Artifact) error {
	target := strings.TrimSpace(extractSection(art.Body, "## Target"))
	if target == "" {
		return fmt.Errorf("memory_delta %s has no ## Target", art.ID)
	}
	patch := strings.TrimRight(extractSection(art.Body, "## Patch"), "\n")
	if patch == "" {
		return fmt.Errorf("memory_delta %s has no ## Patch", art.ID)
	}

	targetPath := filepath.Join(root, target)
	existing, err := readFileTolerant(targetPath)
	if err != nil {
		return err
	}

	var out []byte
	if len(existing) > 0 {
		out = append([]byte(nil), existing...)
		if out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
	}
	out = append(out, []byte(patch+"\n")...)
	return fsys.WriteFileAtomic(targetPath, out, 0o644)
}

// extractSection returns the text following a "## Heading" line up to the
// next "## " heading or end of body, trimmed of surrounding blank lines.
func extractSection(body, heading string) string {
	idx := strings.Index(body, heading)
	if idx < 0 {
		return ""
	}
	rest := body[idx+len(heading):]
	if next := strings.Index(rest, "\n## "); next >= 0 {
		rest = rest[:next]
	}
	return strings.Trim(rest, "\n")
}

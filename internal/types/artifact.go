package types

import (
	"fmt"
	"time"
)

// ArtifactType enumerates the kinds of immutable markdown documents a run
// can produce.
type ArtifactType string

const (
	ArtifactIntakeBrief      ArtifactType = "intake_brief"
	ArtifactClarificationsQA ArtifactType = "clarifications_qa"
	ArtifactProposal         ArtifactType = "proposal"
	ArtifactWorkplan         ArtifactType = "workplan"
	ArtifactMilestoneReport  ArtifactType = "milestone_report"
	ArtifactManagerDigest    ArtifactType = "manager_digest"
	ArtifactMemoryDelta      ArtifactType = "memory_delta"
	ArtifactFailureReport    ArtifactType = "failure_report"
	ArtifactDirtyPatch       ArtifactType = "dirty_patch"
)

// requiredHeadings centralizes, per artifact type, the "## " headings its
// markdown body must contain. This is the one table the open question in
// spec.md §9 asks for ("implementers should centralize the list ... in one
// table") — extended here to double as the per-type heading schema.
var requiredHeadings = map[ArtifactType][]string{
	ArtifactIntakeBrief:      {"## Summary", "## Goals", "## Constraints"},
	ArtifactClarificationsQA: {"## Questions", "## Answers"},
	ArtifactProposal:         {"## Summary", "## Approach", "## Risks"},
	ArtifactWorkplan:         {"## Milestones", "## Sequencing"},
	ArtifactMilestoneReport:  {"## Status", "## Evidence"},
	ArtifactManagerDigest:    {"## Highlights", "## Escalations"},
	ArtifactMemoryDelta:      {"## Target", "## Patch"},
	ArtifactFailureReport:    {"## Summary", "## Root Cause", "## Next Steps"},
	ArtifactDirtyPatch:       {"## Patch"},
}

// RequiredHeadings returns the headings required in an artifact type's
// markdown body, or nil for an unrecognized type.
func RequiredHeadings(t ArtifactType) []string {
	return requiredHeadings[t]
}

// reviewRequiringTypes lists artifact types whose pending state is tracked
// in the review inbox until a Review resolves them. Centralized per the
// same open question: the source checked this per call site, this
// implementation keeps one table.
var reviewRequiringTypes = map[ArtifactType]bool{
	ArtifactMemoryDelta: true,
}

// RequiresReview reports whether an artifact type must appear in the
// review inbox until a matching Review row exists.
func RequiresReview(t ArtifactType) bool {
	return reviewRequiringTypes[t]
}

// Artifact is persisted as markdown-with-front-matter at
// work/projects/<id>/artifacts/<id>.md. Immutable after creation; "edits"
// create a new artifact with a new id.
type Artifact struct {
	SchemaVersion int          `yaml:"schema_version" json:"schema_version"`
	Type          ArtifactType `yaml:"type" json:"type"`
	ID            string       `yaml:"id" json:"id"`
	CreatedAt     time.Time    `yaml:"created_at" json:"created_at"`
	Title         string       `yaml:"title" json:"title"`
	Visibility    Visibility   `yaml:"visibility" json:"visibility"`
	ProducedBy    string       `yaml:"produced_by" json:"produced_by"`
	RunID         string       `yaml:"run_id" json:"run_id"`
	ContextPackID string       `yaml:"context_pack_id,omitempty" json:"context_pack_id,omitempty"`

	// Body is the markdown content following the YAML front matter. It is
	// not part of the front-matter schema itself but is carried on the
	// struct so the artifact manager can write and validate it in one
	// round trip.
	Body string `yaml:"-" json:"-"`
}

func (a Artifact) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("artifact: id is required")
	}
	if a.ProducedBy == "" {
		return fmt.Errorf("artifact: produced_by is required")
	}
	if !a.Visibility.Valid() {
		return fmt.Errorf("artifact: invalid visibility %q", a.Visibility)
	}
	if RequiredHeadings(a.Type) == nil {
		return fmt.Errorf("artifact: unknown type %q", a.Type)
	}
	return nil
}

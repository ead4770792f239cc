package types

import (
	"fmt"
	"time"
)

// ReviewDecision is the outcome recorded on a Review.
type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionDenied   ReviewDecision = "denied"
)

func (d ReviewDecision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionDenied:
		return true
	}
	return false
}

// Review is persisted at inbox/reviews/<review_id>.yaml. One review
// terminates a pending artifact's inbox state.
type Review struct {
	SchemaVersion  int            `yaml:"schema_version" json:"schema_version"`
	ID             string         `yaml:"id" json:"id"`
	CreatedAt      time.Time      `yaml:"created_at" json:"created_at"`
	ActorID        string         `yaml:"actor_id" json:"actor_id"`
	ActorRole      Role           `yaml:"actor_role" json:"actor_role"`
	Decision       ReviewDecision `yaml:"decision" json:"decision"`
	SubjectArtifactID string      `yaml:"subject_artifact_id" json:"subject_artifact_id"`
	Policy         string         `yaml:"policy,omitempty" json:"policy,omitempty"`
	Notes          string         `yaml:"notes,omitempty" json:"notes,omitempty"`
}

func (r Review) Validate() error {
	if r.ID == "" || r.SubjectArtifactID == "" {
		return fmt.Errorf("review: id and subject_artifact_id are required")
	}
	if !r.ActorRole.Valid() {
		return fmt.Errorf("review: invalid actor_role %q", r.ActorRole)
	}
	if !r.Decision.Valid() {
		return fmt.Errorf("review: invalid decision %q", r.Decision)
	}
	return nil
}

// HelpRequest is persisted at inbox/help_requests/<id>.yaml: a worker's
// request for human or manager input, outside the formal review flow.
type HelpRequest struct {
	SchemaVersion int       `yaml:"schema_version" json:"schema_version"`
	ID            string    `yaml:"id" json:"id"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	AgentID       string    `yaml:"agent_id" json:"agent_id"`
	RunID         string    `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	Question      string    `yaml:"question" json:"question"`
	Answered      bool      `yaml:"answered" json:"answered"`
	Answer        string    `yaml:"answer,omitempty" json:"answer,omitempty"`
}

// Package types defines the persisted entity schemas for a company
// workspace: company, team, agent, project, task, run, context pack,
// artifact, and review records, plus the shared enums that constrain them.
package types

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is embedded in every persisted entity so future migrations
// can detect and upgrade old files. Bump per-entity when the on-disk shape
// changes in an incompatible way.
const SchemaVersion = 1

// StrictUnmarshalYAML decodes data into v with unknown top-level field
// rejection, the "parsers reject unknown top-level fields" invariant every
// entity file on disk must honor. An empty file decodes to v's zero value
// rather than erroring on io.EOF, matching yaml.Unmarshal's own behavior
// on empty input.
func StrictUnmarshalYAML(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// Role is an organizational actor's rank within the company.
type Role string

const (
	RoleHuman    Role = "human"
	RoleCEO      Role = "ceo"
	RoleDirector Role = "director"
	RoleManager  Role = "manager"
	RoleWorker   Role = "worker"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHuman, RoleCEO, RoleDirector, RoleManager, RoleWorker:
		return true
	}
	return false
}

// AgentRole restricts Agent.Role to roles an autonomous agent may hold;
// "human" is an actor role but never an agent's own role.
type AgentRole string

const (
	AgentRoleCEO      AgentRole = "ceo"
	AgentRoleDirector AgentRole = "director"
	AgentRoleManager  AgentRole = "manager"
	AgentRoleWorker   AgentRole = "worker"
)

func (r AgentRole) Valid() bool {
	switch r {
	case AgentRoleCEO, AgentRoleDirector, AgentRoleManager, AgentRoleWorker:
		return true
	}
	return false
}

// AsRole widens an AgentRole to the actor Role enum used by the policy
// evaluator.
func (r AgentRole) AsRole() Role { return Role(r) }

// Visibility controls who may read a resource.
type Visibility string

const (
	VisibilityPrivateAgent Visibility = "private_agent"
	VisibilityTeam         Visibility = "team"
	VisibilityManagers     Visibility = "managers"
	VisibilityOrg          Visibility = "org"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivateAgent, VisibilityTeam, VisibilityManagers, VisibilityOrg:
		return true
	}
	return false
}

// Sensitivity classifies memory content for compose-context authority.
type Sensitivity string

const (
	SensitivityPublic     Sensitivity = "public"
	SensitivityInternal   Sensitivity = "internal"
	SensitivityRestricted Sensitivity = "restricted"
)

func (s Sensitivity) Valid() bool {
	switch s {
	case "", SensitivityPublic, SensitivityInternal, SensitivityRestricted:
		return true
	}
	return false
}

// ManagerSet reports whether role has manager-or-above authority.
func ManagerSet(r Role) bool {
	switch r {
	case RoleHuman, RoleCEO, RoleDirector, RoleManager:
		return true
	}
	return false
}

// DirectorSet reports whether role has director-or-above authority.
func DirectorSet(r Role) bool {
	switch r {
	case RoleHuman, RoleCEO, RoleDirector:
		return true
	}
	return false
}

// Company is the single root entity of a workspace, persisted at
// company/company.yaml. Immutable after init except Name.
type Company struct {
	SchemaVersion int       `yaml:"schema_version" json:"schema_version"`
	ID            string    `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
}

// Team is persisted at org/teams/<team_id>/team.yaml.
type Team struct {
	SchemaVersion  int       `yaml:"schema_version" json:"schema_version"`
	ID             string    `yaml:"id" json:"id"`
	Name           string    `yaml:"name" json:"name"`
	DepartmentKey  string    `yaml:"department_key,omitempty" json:"department_key,omitempty"`
	Charter        string    `yaml:"charter,omitempty" json:"charter,omitempty"`
	CreatedAt      time.Time `yaml:"created_at" json:"created_at"`
}

// Agent is persisted at org/agents/<agent_id>/agent.yaml. Its journal.md,
// AGENTS.md, role.md, skills_index.md and mistakes.yaml live alongside it
// in the same directory but are not modeled as Go structs (free-form /
// append-only text).
type Agent struct {
	SchemaVersion int       `yaml:"schema_version" json:"schema_version"`
	ID            string    `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	Role          AgentRole `yaml:"role" json:"role"`
	Provider      string    `yaml:"provider" json:"provider"`
	ModelHint     string    `yaml:"model_hint,omitempty" json:"model_hint,omitempty"`
	TeamID        string    `yaml:"team_id,omitempty" json:"team_id,omitempty"`
	Launcher      string    `yaml:"launcher" json:"launcher"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
}

// Validate rejects an agent record with an unknown role or a missing
// required field; parsers must reject unknown top-level fields separately
// at the decode layer (strict yaml.Decoder.KnownFields(true)).
func (a Agent) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("agent: id is required")
	}
	if a.Name == "" {
		return fmt.Errorf("agent: name is required")
	}
	if !a.Role.Valid() {
		return fmt.Errorf("agent: invalid role %q", a.Role)
	}
	if a.Provider == "" {
		return fmt.Errorf("agent: provider is required")
	}
	return nil
}

// AccessLevel constrains which projects an agent's role may read or write.
// Carried forward from the richer distillation source; not part of the
// policy evaluator itself (4.D) but used by the session runtime to decide
// which repo roots a launched session may touch.
type AccessLevel string

const (
	AccessStrict        AccessLevel = "strict"
	AccessReadOnlyCross AccessLevel = "readonly-cross"
	AccessReadOnlyAll   AccessLevel = "readonly-all"
)

// AccessLevelForRole returns the filesystem access level implied by a role.
// Directors and above see everything read-only across projects; managers
// are read-only-cross since their authority is evaluated per-resource by the
// policy evaluator, not by blanket project access; workers are strict.
func AccessLevelForRole(role AgentRole) AccessLevel {
	switch role {
	case AgentRoleCEO, AgentRoleDirector:
		return AccessReadOnlyAll
	case AgentRoleManager:
		return AccessReadOnlyCross
	default:
		return AccessStrict
	}
}

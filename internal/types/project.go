package types

import (
	"fmt"
	"time"
)

// ProjectStatus is a project's lifecycle state.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectArchived:
		return true
	}
	return false
}

// Project is persisted at work/projects/<project_id>/project.yaml and owns
// tasks/, artifacts/, context_packs/, runs/, share_packs/ and repos.yaml
// beneath its directory.
type Project struct {
	SchemaVersion int           `yaml:"schema_version" json:"schema_version"`
	ID            string        `yaml:"id" json:"id"`
	Name          string        `yaml:"name" json:"name"`
	Status        ProjectStatus `yaml:"status" json:"status"`
	CreatedAt     time.Time     `yaml:"created_at" json:"created_at"`
}

func (p Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("project: id is required")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("project: invalid status %q", p.Status)
	}
	return nil
}

// RepoEntry is one row of a project's repos.yaml, naming a repo root the
// project's runs may be sandboxed to.
type RepoEntry struct {
	RepoID string `yaml:"repo_id" json:"repo_id"`
	Path   string `yaml:"path" json:"path"`
}

// ReposConfig is the root of work/projects/<id>/repos.yaml.
type ReposConfig struct {
	SchemaVersion int         `yaml:"schema_version" json:"schema_version"`
	Repos         []RepoEntry `yaml:"repos" json:"repos"`
}

// TaskStatus is a task's position in its lifecycle state machine.
type TaskStatus string

const (
	TaskDraft      TaskStatus = "draft"
	TaskReady      TaskStatus = "ready"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
	TaskCanceled   TaskStatus = "canceled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskDraft, TaskReady, TaskInProgress, TaskBlocked, TaskDone, TaskCanceled:
		return true
	}
	return false
}

// validTaskTransitions enumerates the task status state machine. A status
// not present as a key has no outgoing transitions (it is terminal).
var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskDraft:      {TaskReady, TaskCanceled},
	TaskReady:      {TaskInProgress, TaskBlocked, TaskCanceled},
	TaskInProgress: {TaskBlocked, TaskDone, TaskCanceled},
	TaskBlocked:    {TaskReady, TaskInProgress, TaskCanceled},
}

// CanTransition reports whether moving a task from 'from' to 'to' is a
// legal state-machine edge.
func CanTransition(from, to TaskStatus) bool {
	for _, candidate := range validTaskTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Milestone is one checkpoint within a task's milestones[] list.
type Milestone struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Done  bool   `yaml:"done" json:"done"`
}

// Task is persisted as markdown-with-front-matter at
// work/projects/<id>/tasks/<task_id>.md.
type Task struct {
	SchemaVersion   int         `yaml:"schema_version" json:"schema_version"`
	ID              string      `yaml:"id" json:"id"`
	ProjectID       string      `yaml:"project_id" json:"project_id"`
	Title           string      `yaml:"title" json:"title"`
	Status          TaskStatus  `yaml:"status" json:"status"`
	Visibility      Visibility  `yaml:"visibility" json:"visibility"`
	TeamID          string      `yaml:"team_id,omitempty" json:"team_id,omitempty"`
	AssigneeAgentID string      `yaml:"assignee_agent_id,omitempty" json:"assignee_agent_id,omitempty"`
	Milestones      []Milestone `yaml:"milestones,omitempty" json:"milestones,omitempty"`
	Schedule        string      `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	ExecutionPlan   string      `yaml:"execution_plan,omitempty" json:"execution_plan,omitempty"`
	Scope           string      `yaml:"scope,omitempty" json:"scope,omitempty"`
	CreatedAt       time.Time   `yaml:"created_at" json:"created_at"`
}

func (t Task) Validate() error {
	if t.ID == "" || t.ProjectID == "" {
		return fmt.Errorf("task: id and project_id are required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task: invalid status %q", t.Status)
	}
	if !t.Visibility.Valid() {
		return fmt.Errorf("task: invalid visibility %q", t.Visibility)
	}
	return nil
}

// Progress returns done_milestones/total, 1.0 for a task with no
// milestones (nothing left to complete).
func (t Task) Progress() float64 {
	if len(t.Milestones) == 0 {
		return 1.0
	}
	done := 0
	for _, m := range t.Milestones {
		if m.Done {
			done++
		}
	}
	return float64(done) / float64(len(t.Milestones))
}

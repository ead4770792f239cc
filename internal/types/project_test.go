package types

import "testing"

func TestTaskCanTransition(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskDraft, TaskReady, true},
		{TaskDraft, TaskDone, false},
		{TaskReady, TaskInProgress, true},
		{TaskInProgress, TaskDone, true},
		{TaskDone, TaskReady, false},
		{TaskBlocked, TaskReady, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTaskProgress(t *testing.T) {
	noMilestones := Task{}
	if p := noMilestones.Progress(); p != 1.0 {
		t.Errorf("Progress() with no milestones = %v, want 1.0", p)
	}

	task := Task{Milestones: []Milestone{
		{ID: "ms_1", Done: true},
		{ID: "ms_2", Done: false},
	}}
	if p := task.Progress(); p != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", p)
	}
}

func TestTaskValidate(t *testing.T) {
	ok := Task{ID: "task_1", ProjectID: "proj_1", Status: TaskDraft, Visibility: VisibilityOrg}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	bad := ok
	bad.Status = TaskStatus("unstarted")
	if err := bad.Validate(); err == nil {
		t.Error("Validate() = nil, want error for invalid status")
	}
}

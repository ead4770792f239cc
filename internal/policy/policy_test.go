package policy

import (
	"testing"

	"github.com/CLIAIMONITOR/internal/types"
)

func TestEvaluateTeamMismatchDenied(t *testing.T) {
	actor := Actor{ActorID: "agent_a", Role: types.RoleWorker, TeamID: "team_a"}
	resource := Resource{Visibility: types.VisibilityTeam, TeamID: "team_b"}

	decision := Evaluate(actor, ActionRead, resource)
	if decision.Allowed {
		t.Fatal("expected denial for team mismatch")
	}
	if decision.RuleID != "vis.team.mismatch" {
		t.Errorf("RuleID = %q, want %q", decision.RuleID, "vis.team.mismatch")
	}
	if decision.Reason != "team_mismatch" {
		t.Errorf("Reason = %q, want %q", decision.Reason, "team_mismatch")
	}
}

func TestEvaluateTeamManagerOverride(t *testing.T) {
	actor := Actor{ActorID: "mgr_1", Role: types.RoleManager, TeamID: "team_a"}
	resource := Resource{Visibility: types.VisibilityTeam, TeamID: "team_b"}

	decision := Evaluate(actor, ActionRead, resource)
	if !decision.Allowed {
		t.Fatal("expected manager override to allow")
	}
}

func TestEvaluateOrgAlwaysAllowed(t *testing.T) {
	actor := Actor{Role: types.RoleWorker}
	resource := Resource{Visibility: types.VisibilityOrg}

	if decision := Evaluate(actor, ActionRead, resource); !decision.Allowed {
		t.Error("org visibility should always allow read")
	}
}

func TestEvaluatePrivateAgentOwnership(t *testing.T) {
	owner := Actor{ActorID: "agent_a", Role: types.RoleWorker}
	other := Actor{ActorID: "agent_b", Role: types.RoleWorker}
	resource := Resource{Visibility: types.VisibilityPrivateAgent, ProducingActorID: "agent_a"}

	if decision := Evaluate(owner, ActionRead, resource); !decision.Allowed {
		t.Error("owner should be allowed to read their own private_agent resource")
	}
	if decision := Evaluate(other, ActionRead, resource); decision.Allowed {
		t.Error("non-owner should be denied a private_agent resource")
	}

	human := Actor{Role: types.RoleHuman}
	if decision := Evaluate(human, ActionRead, resource); !decision.Allowed {
		t.Error("human should always be allowed private_agent resources")
	}
}

func TestEvaluateApproveMemoryDeltaRequiresDirectorSet(t *testing.T) {
	resource := Resource{Kind: string(types.ArtifactMemoryDelta), Visibility: types.VisibilityOrg}

	manager := Actor{Role: types.RoleManager}
	if decision := Evaluate(manager, ActionApprove, resource); decision.Allowed {
		t.Error("manager should not be allowed to approve memory_delta")
	}

	director := Actor{Role: types.RoleDirector}
	if decision := Evaluate(director, ActionApprove, resource); !decision.Allowed {
		t.Error("director should be allowed to approve memory_delta")
	}
}

func TestEvaluateIsPureAndTotal(t *testing.T) {
	actor := Actor{ActorID: "agent_a", Role: types.RoleWorker, TeamID: "team_a"}
	resource := Resource{Visibility: types.VisibilityTeam, TeamID: "team_a"}

	d1 := Evaluate(actor, ActionRead, resource)
	d2 := Evaluate(actor, ActionRead, resource)
	if d1 != d2 {
		t.Errorf("Evaluate is not deterministic: %+v != %+v", d1, d2)
	}
}

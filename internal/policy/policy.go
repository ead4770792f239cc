// Package policy implements the pure visibility/approval decision
// function (4.D) and the write-path enforcement gate that wraps it (4.E).
package policy

import "github.com/CLIAIMONITOR/internal/types"

// Actor is the identity evaluating a policy decision against.
type Actor struct {
	ActorID string
	Role    types.Role
	TeamID  string
}

// Action is one of the verbs the policy evaluator judges.
type Action string

const (
	ActionRead          Action = "read"
	ActionApprove       Action = "approve"
	ActionLaunch        Action = "launch"
	ActionComposeContext Action = "compose_context"
)

// Resource is the thing an Action is being evaluated against.
type Resource struct {
	ResourceID       string
	Visibility       types.Visibility
	TeamID           string
	ProducingActorID string
	Kind             string
	Sensitivity      types.Sensitivity
}

// Decision is the evaluator's pure output.
type Decision struct {
	Allowed bool
	RuleID  string
	Reason  string
}

func allow(rule string) Decision         { return Decision{Allowed: true, RuleID: rule} }
func deny(rule, reason string) Decision { return Decision{Allowed: false, RuleID: rule, Reason: reason} }

// Evaluate is a pure function (actor, action, resource) -> decision. It is
// total and side-effect-free: the same inputs always produce the same
// output, per the testable property in spec.md §8.
//
// Rules are evaluated in order; the first match wins and denies
// short-circuit immediately.
func Evaluate(actor Actor, action Action, resource Resource) Decision {
	if action == ActionApprove && resource.Kind == string(types.ArtifactMemoryDelta) {
		if types.DirectorSet(actor.Role) {
			return allow("approve.memory.role")
		}
		return deny("approve.memory.role", "role_not_allowed")
	}

	if action == ActionApprove {
		if types.ManagerSet(actor.Role) {
			return allow("approve.role")
		}
		return deny("approve.role", "role_not_allowed")
	}

	if action == ActionComposeContext && resource.Sensitivity == types.SensitivityRestricted {
		if types.DirectorSet(actor.Role) {
			return allow("compose_context.restricted")
		}
		return deny("compose_context.restricted", "role_not_allowed")
	}

	return evaluateByVisibility(actor, resource)
}

func evaluateByVisibility(actor Actor, resource Resource) Decision {
	switch resource.Visibility {
	case types.VisibilityOrg:
		return allow("vis.org")

	case types.VisibilityManagers:
		if types.ManagerSet(actor.Role) {
			return allow("vis.managers")
		}
		return deny("vis.managers", "role_not_allowed")

	case types.VisibilityTeam:
		if types.ManagerSet(actor.Role) {
			return allow("vis.team.manager_override")
		}
		if actor.TeamID != "" && actor.TeamID == resource.TeamID {
			return allow("vis.team.member")
		}
		return deny("vis.team.mismatch", "team_mismatch")

	case types.VisibilityPrivateAgent:
		if actor.Role == types.RoleHuman {
			return allow("vis.private.human")
		}
		if actor.ActorID != "" && actor.ActorID == resource.ProducingActorID {
			return allow("vis.private.owner")
		}
		return deny("vis.private.not_owner", "not_owner")

	default:
		return deny("vis.unknown", "unknown_visibility")
	}
}

package policy

import (
	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("policy")

// WriteContext carries the extra information the enforcement gate needs
// beyond the pure decision: where to append a deny-audit event.
type WriteContext struct {
	ProjectID   string
	RunID       string
	RunEventsPath string // absolute path to the run's events.jsonl, empty if no run is in scope
	Actor       Actor
}

// Gate wraps Evaluate for a write context: on denial it best-effort
// appends a policy.denied event before returning *corerr.PolicyDenied.
type Gate struct {
	appender *eventlog.Appender
}

// NewGate builds a Gate around the given Appender (shared process-wide,
// per spec.md §9's "process-scoped services" note).
func NewGate(appender *eventlog.Appender) *Gate {
	return &Gate{appender: appender}
}

// Enforce evaluates action against resource for actor. On allow, it
// returns the Decision. On deny, it appends a policy.denied event to
// wctx.RunEventsPath (if set) — a logging failure there must not mask the
// denial itself — and returns *corerr.PolicyDenied.
func (g *Gate) Enforce(wctx WriteContext, action Action, resource Resource) (Decision, error) {
	decision := Evaluate(wctx.Actor, action, resource)
	if decision.Allowed {
		return decision, nil
	}

	if wctx.RunEventsPath != "" {
		payload := map[string]interface{}{
			"action":      string(action),
			"resource_id": resource.ResourceID,
			"visibility":  string(resource.Visibility),
			"rule_id":     decision.RuleID,
			"reason":      decision.Reason,
		}
		_, err := g.appender.Append(wctx.RunEventsPath, eventlog.NewEventOpts{
			RunID:      wctx.RunID,
			Actor:      wctx.Actor.ActorID,
			Visibility: types.VisibilityOrg,
			Type:       types.EventTypePolicyDenied,
			Payload:    payload,
		})
		if err != nil {
			// Best-effort: the denial stands even if we failed to audit it.
			log.Errorf("failed to append policy.denied event for run %s: %v", wctx.RunID, err)
		}
	}

	return decision, &corerr.PolicyDenied{RuleID: decision.RuleID, Reason: decision.Reason}
}

package types

import (
	"encoding/json"
	"testing"
)

func TestRoleValid(t *testing.T) {
	valid := []Role{RoleHuman, RoleCEO, RoleDirector, RoleManager, RoleWorker}
	for _, r := range valid {
		if !r.Valid() {
			t.Errorf("Role(%q).Valid() = false, want true", r)
		}
	}
	if Role("captain").Valid() {
		t.Error("Role(\"captain\").Valid() = true, want false")
	}
}

func TestManagerAndDirectorSets(t *testing.T) {
	cases := []struct {
		role       Role
		inManagers bool
		inDirectors bool
	}{
		{RoleHuman, true, true},
		{RoleCEO, true, true},
		{RoleDirector, true, true},
		{RoleManager, true, false},
		{RoleWorker, false, false},
	}
	for _, c := range cases {
		if got := ManagerSet(c.role); got != c.inManagers {
			t.Errorf("ManagerSet(%q) = %v, want %v", c.role, got, c.inManagers)
		}
		if got := DirectorSet(c.role); got != c.inDirectors {
			t.Errorf("DirectorSet(%q) = %v, want %v", c.role, got, c.inDirectors)
		}
	}
}

func TestAccessLevelForRole(t *testing.T) {
	cases := []struct {
		role AgentRole
		want AccessLevel
	}{
		{AgentRoleCEO, AccessReadOnlyAll},
		{AgentRoleDirector, AccessReadOnlyAll},
		{AgentRoleManager, AccessReadOnlyCross},
		{AgentRoleWorker, AccessStrict},
	}
	for _, c := range cases {
		if got := AccessLevelForRole(c.role); got != c.want {
			t.Errorf("AccessLevelForRole(%q) = %q, want %q", c.role, got, c.want)
		}
	}
}

func TestAgentValidate(t *testing.T) {
	ok := Agent{ID: "agent_1", Name: "Worker", Role: AgentRoleWorker, Provider: "codex"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	bad := ok
	bad.Role = AgentRole("captain")
	if err := bad.Validate(); err == nil {
		t.Error("Validate() = nil, want error for invalid role")
	}
}

func TestAgentJSONSerialization(t *testing.T) {
	agent := &Agent{
		ID:       "agent_01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Name:     "Worker One",
		Role:     AgentRoleWorker,
		Provider: "codex",
		Launcher: "codex-cli",
	}

	data, err := json.Marshal(agent)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}

	var decoded Agent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}

	if decoded.ID != agent.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, agent.ID)
	}
	if decoded.Role != agent.Role {
		t.Errorf("Role = %v, want %v", decoded.Role, agent.Role)
	}
}

func TestDefaultAlertThresholds(t *testing.T) {
	thresholds := DefaultAlertThresholds()

	if thresholds.FailedRunsMax != 5 {
		t.Errorf("FailedRunsMax = %d, want 5", thresholds.FailedRunsMax)
	}
	if thresholds.IdleTimeMaxSeconds != 600 {
		t.Errorf("IdleTimeMaxSeconds = %d, want 600", thresholds.IdleTimeMaxSeconds)
	}
	if thresholds.TokenUsageMax != 1_000_000 {
		t.Errorf("TokenUsageMax = %d, want 1000000", thresholds.TokenUsageMax)
	}
}

func TestMCPRequestJSONSerialization(t *testing.T) {
	req := MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name": "workspace.pending_reviews",
		},
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}

	var decoded MCPRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}

	if decoded.Method != "tools/call" {
		t.Errorf("Method = %q, want %q", decoded.Method, "tools/call")
	}
}

func TestMCPResponseErrorSerialization(t *testing.T) {
	errorResp := MCPResponse{
		JSONRPC: "2.0",
		ID:      2,
		Error: &MCPError{
			Code:    -32600,
			Message: "Invalid request",
		},
	}

	data, err := json.Marshal(errorResp)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}

	var decoded MCPResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("expected error in error response")
	}
	if decoded.Error.Code != -32600 {
		t.Errorf("Error.Code = %d, want -32600", decoded.Error.Code)
	}
}

func TestWSMessageJSONSerialization(t *testing.T) {
	msg := WSMessage{
		Type: WSTypeReviewInbox,
		Data: map[string]interface{}{
			"pending": []string{"art_01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}

	var decoded WSMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}

	if decoded.Type != WSTypeReviewInbox {
		t.Errorf("Type = %q, want %q", decoded.Type, WSTypeReviewInbox)
	}
}

func TestRateCardKeyAliasing(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.ProviderPricingUSDPer1K = map[string]ProviderRateCard{
		"codex":   {Input: 1, Output: 2},
		"default": {Input: 0.5, Output: 1},
	}

	if key := cfg.RateCardKey("codex_app_server"); key != "codex" {
		t.Errorf("RateCardKey(codex_app_server) = %q, want codex", key)
	}
	if key := cfg.RateCardKey("claude_code"); key != "default" {
		t.Errorf("RateCardKey(claude_code) = %q, want default", key)
	}
	if key := cfg.RateCardKey("unknown_provider"); key != "default" {
		t.Errorf("RateCardKey(unknown_provider) = %q, want default", key)
	}
}

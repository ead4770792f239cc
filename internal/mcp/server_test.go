package mcp

import (
	"errors"
	"testing"

	"github.com/CLIAIMONITOR/internal/types"
)

func TestHandleToolsCallRejectsUnauthorizedAgent(t *testing.T) {
	s := NewServer()
	s.RegisterTool(ToolDefinition{
		Name:    "workspace.pending_reviews",
		Handler: func(agentID string, params map[string]interface{}) (interface{}, error) { return "ok", nil },
	})
	s.SetAuthorizer(func(agentID string) error {
		if agentID != "agent_known" {
			return errors.New("not on roster")
		}
		return nil
	})

	req := &types.MCPRequest{JSONRPC: "2.0", ID: "1", Method: "tools/call", Params: map[string]interface{}{
		"name": "workspace.pending_reviews",
	}}

	resp := s.handleRequest("agent_unknown", req)
	if resp.Error == nil || resp.Error.Code != -32001 {
		t.Fatalf("resp.Error = %+v, want code -32001", resp.Error)
	}
}

func TestHandleToolsCallAllowsAuthorizedAgent(t *testing.T) {
	s := NewServer()
	s.RegisterTool(ToolDefinition{
		Name:    "workspace.pending_reviews",
		Handler: func(agentID string, params map[string]interface{}) (interface{}, error) { return "ok", nil },
	})
	s.SetAuthorizer(func(agentID string) error {
		if agentID != "agent_known" {
			return errors.New("not on roster")
		}
		return nil
	})

	req := &types.MCPRequest{JSONRPC: "2.0", ID: "1", Method: "tools/call", Params: map[string]interface{}{
		"name": "workspace.pending_reviews",
	}}

	resp := s.handleRequest("agent_known", req)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleInitializeNamesWorkspaceServer(t *testing.T) {
	s := NewServer()
	resp := s.handleInitialize(&types.MCPRequest{JSONRPC: "2.0", ID: "1", Method: "initialize"})

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Result = %+v, want map", resp.Result)
	}
	info, ok := result["serverInfo"].(map[string]string)
	if !ok || info["name"] != "agentcompany-workspace" {
		t.Fatalf("serverInfo = %+v, want name agentcompany-workspace", result["serverInfo"])
	}
}

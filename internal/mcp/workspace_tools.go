package mcp

import (
	"fmt"

	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/review"
)

// RegisterWorkspaceTools wires the workspace.* MCP tools an agent uses to
// check its own work against the review inbox and run projection,
// without needing direct filesystem or sqlite access.
func RegisterWorkspaceTools(s *Server, reviewSvc *review.Service, store *index.Store) {
	s.RegisterTool(ToolDefinition{
		Name:        "workspace.pending_reviews",
		Description: "List artifacts awaiting a review decision.",
		Parameters:  map[string]ParameterDef{},
		Handler: func(agentID string, params map[string]interface{}) (interface{}, error) {
			pending, err := reviewSvc.Pending()
			if err != nil {
				return nil, fmt.Errorf("workspace.pending_reviews: %w", err)
			}
			return pending, nil
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "workspace.run_status",
		Description: "Look up a run's current projected status by id.",
		Parameters: map[string]ParameterDef{
			"run_id": {Type: "string", Description: "the run id to look up", Required: true},
		},
		Handler: func(agentID string, params map[string]interface{}) (interface{}, error) {
			runID, _ := params["run_id"].(string)
			if runID == "" {
				return nil, fmt.Errorf("workspace.run_status: run_id is required")
			}
			run, err := store.GetRun(runID)
			if err != nil {
				return nil, fmt.Errorf("workspace.run_status: %w", err)
			}
			if run == nil {
				return nil, fmt.Errorf("workspace.run_status: run %s not found", runID)
			}
			return run, nil
		},
	})

	s.RegisterTool(ToolDefinition{
		Name:        "workspace.recent_decisions",
		Description: "List the most recent review decisions, newest first.",
		Parameters: map[string]ParameterDef{
			"limit": {Type: "integer", Description: "max decisions to return (0 = no cap)", Required: false},
		},
		Handler: func(agentID string, params map[string]interface{}) (interface{}, error) {
			limit := 0
			if v, ok := params["limit"].(float64); ok {
				limit = int(v)
			}
			decisions, err := reviewSvc.RecentDecisions(limit)
			if err != nil {
				return nil, fmt.Errorf("workspace.recent_decisions: %w", err)
			}
			return decisions, nil
		},
	})
}

package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/CLIAIMONITOR/internal/types"
)

// Issue is one schema-validation failure, anchored at the file it came
// from.
type Issue struct {
	Path    string
	Message string
}

// ValidateResult is the outcome of a full-tree validation pass.
type ValidateResult struct {
	Issues []Issue
}

// OK reports whether the validation pass found zero issues.
func (r ValidateResult) OK() bool { return len(r.Issues) == 0 }

// Validate parses every YAML/Markdown entity under root against its
// schema, collecting every issue found rather than failing at the
// first (per spec.md §9's best-effort default).
func Validate(root string) ValidateResult {
	var result ValidateResult
	add := func(path, format string, args ...interface{}) {
		result.Issues = append(result.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	for _, f := range requiredFiles {
		full := filepath.Join(root, f)
		if _, err := os.Stat(full); err != nil {
			add(f, "required file missing: %v", err)
		}
	}
	for _, d := range requiredDirs {
		full := filepath.Join(root, d)
		info, err := os.Stat(full)
		if err != nil {
			add(d, "required directory missing: %v", err)
			continue
		}
		if !info.IsDir() {
			add(d, "expected a directory, found a file")
		}
	}

	companyPath := filepath.Join(root, "company", "company.yaml")
	var company types.Company
	if err := readYAML(companyPath, &company); err != nil {
		add(companyPath, "%v", err)
	} else if company.ID == "" || company.Name == "" {
		add(companyPath, "company: id and name are required")
	}

	validateTeams(root, &result)
	validateAgents(root, &result)
	validateProjects(root, &result)

	return result
}

func validateTeams(root string, result *ValidateResult) {
	teamsDir := filepath.Join(root, "org", "teams")
	entries, err := os.ReadDir(teamsDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(teamsDir, e.Name(), "team.yaml")
		var team types.Team
		if err := readYAML(path, &team); err != nil {
			result.Issues = append(result.Issues, Issue{Path: path, Message: err.Error()})
			continue
		}
		if team.ID == "" {
			result.Issues = append(result.Issues, Issue{Path: path, Message: "team: id is required"})
		}
	}
}

func validateAgents(root string, result *ValidateResult) {
	agentsDir := filepath.Join(root, "org", "agents")
	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(agentsDir, e.Name(), "agent.yaml")
		var agent types.Agent
		if err := readYAML(path, &agent); err != nil {
			result.Issues = append(result.Issues, Issue{Path: path, Message: err.Error()})
			continue
		}
		if err := agent.Validate(); err != nil {
			result.Issues = append(result.Issues, Issue{Path: path, Message: err.Error()})
		}
		journal := filepath.Join(agentsDir, e.Name(), "journal.md")
		if _, err := os.Stat(journal); err != nil {
			result.Issues = append(result.Issues, Issue{Path: journal, Message: "agent journal missing"})
		}
	}
}

func validateProjects(root string, result *ValidateResult) {
	projectsDir := filepath.Join(root, "work", "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		projectDir := filepath.Join(projectsDir, e.Name())
		path := filepath.Join(projectDir, "project.yaml")
		var project types.Project
		if err := readYAML(path, &project); err != nil {
			result.Issues = append(result.Issues, Issue{Path: path, Message: err.Error()})
			continue
		}
		if err := project.Validate(); err != nil {
			result.Issues = append(result.Issues, Issue{Path: path, Message: err.Error()})
		}

		runsDir := filepath.Join(projectDir, "runs")
		runEntries, _ := os.ReadDir(runsDir)
		for _, re := range runEntries {
			if !re.IsDir() {
				continue
			}
			runPath := filepath.Join(runsDir, re.Name(), "run.yaml")
			var run types.Run
			if err := readYAML(runPath, &run); err != nil {
				result.Issues = append(result.Issues, Issue{Path: runPath, Message: err.Error()})
				continue
			}
			if err := run.Validate(); err != nil {
				result.Issues = append(result.Issues, Issue{Path: runPath, Message: err.Error()})
			}
		}
	}
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return types.StrictUnmarshalYAML(data, v)
}


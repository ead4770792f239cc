package workspace

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/types"
)

// CheckStatus is a single doctor check's outcome.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// Check is one named health check result.
type Check struct {
	Name    string
	Status  CheckStatus
	Message string
}

// DoctorResult is the full suite's outcome.
type DoctorResult struct {
	Checks []Check
}

// Healthy reports whether every check passed (no warn or fail).
func (r DoctorResult) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status != CheckOK {
			return false
		}
	}
	return true
}

// Doctor runs the health-check suite: required files present,
// machine.yaml's provider_bins resolve to executables on PATH, the index
// db exists and opens, and every run's event log replays cleanly
// (tolerating parse issues as a warning, not a failure).
func Doctor(root string) DoctorResult {
	var result DoctorResult
	check := func(name string, status CheckStatus, format string, args ...interface{}) {
		msg := ""
		if format != "" {
			msg = fmt.Sprintf(format, args...)
		}
		result.Checks = append(result.Checks, Check{Name: name, Status: status, Message: msg})
	}

	for _, f := range requiredFiles {
		if _, err := os.Stat(filepath.Join(root, f)); err != nil {
			check("required_files", CheckFail, "%s missing", f)
			return result
		}
	}
	check("required_files", CheckOK, "")

	var cfg types.MachineConfig
	if err := readYAML(filepath.Join(root, ".local", "machine.yaml"), &cfg); err != nil {
		check("machine_config", CheckFail, "cannot parse machine.yaml: %v", err)
	} else {
		check("machine_config", CheckOK, "")
		for provider, bin := range cfg.ProviderBins {
			if _, err := exec.LookPath(bin); err != nil {
				check("provider_bin:"+provider, CheckWarn, "%s (%s) not resolvable on PATH", provider, bin)
			} else {
				check("provider_bin:"+provider, CheckOK, "")
			}
		}
	}

	indexPath := filepath.Join(root, ".local", "index.sqlite")
	store, err := index.Open(indexPath)
	if err != nil {
		check("index_db", CheckFail, "cannot open index db: %v", err)
	} else {
		check("index_db", CheckOK, "")
		store.Close()
	}

	checkEventLogs(root, &result)

	return result
}

func checkEventLogs(root string, result *DoctorResult) {
	projectsDir := filepath.Join(root, "work", "projects")
	projectDirs, err := os.ReadDir(projectsDir)
	if err != nil {
		return
	}

	totalParseIssues := 0
	totalVerificationIssues := 0
	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		runsDir := filepath.Join(projectsDir, pd.Name(), "runs")
		runDirs, err := os.ReadDir(runsDir)
		if err != nil {
			continue
		}
		for _, rd := range runDirs {
			if !rd.IsDir() {
				continue
			}
			eventsPath := eventlog.EventsPath(filepath.Join(runsDir, rd.Name()))
			replay, err := eventlog.Replay(eventsPath, true)
			if err != nil {
				result.Checks = append(result.Checks, Check{
					Name: "event_log:" + rd.Name(), Status: CheckFail,
					Message: err.Error(),
				})
				continue
			}
			totalParseIssues += len(replay.ParseIssues)
			totalVerificationIssues += len(replay.VerificationIssues)
		}
	}

	switch {
	case totalParseIssues == 0 && totalVerificationIssues == 0:
		result.Checks = append(result.Checks, Check{Name: "event_logs", Status: CheckOK})
	default:
		result.Checks = append(result.Checks, Check{
			Name:    "event_logs",
			Status:  CheckWarn,
			Message: fmt.Sprintf("%d parse issues, %d chain-verification issues across replayed logs", totalParseIssues, totalVerificationIssues),
		})
	}
}

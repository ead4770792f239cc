// Package workspace implements the company workspace's lifecycle
// operations (4.I): init (create the required skeleton), validate (parse
// every persisted entity against its schema), and doctor (health checks
// over provider binaries, the index db, and event-log replayability).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CLIAIMONITOR/internal/fsys"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/types"
)

var log = obslog.New("workspace")

// requiredDirs are created (empty) by Init and checked for presence by
// Validate, relative to the workspace root.
var requiredDirs = []string{
	filepath.Join("company", "migrations"),
	filepath.Join("org", "teams"),
	filepath.Join("org", "agents"),
	filepath.Join("work", "projects"),
	filepath.Join("inbox", "reviews"),
	filepath.Join("inbox", "help_requests"),
	filepath.Join(".local", "locks"),
	filepath.Join(".local", "worktrees"),
}

// requiredFiles are created by Init with schema-valid defaults, relative
// to the workspace root.
var requiredFiles = []string{
	filepath.Join("company", "company.yaml"),
	filepath.Join("company", "policy.yaml"),
	filepath.Join(".local", "machine.yaml"),
}

// Init creates requiredDirs and requiredFiles under root with schema-
// valid defaults. If root already exists and is non-empty, Init fails
// unless force is true.
func Init(root, companyName string, force bool) error {
	if entries, err := os.ReadDir(root); err == nil && len(entries) > 0 && !force {
		return fmt.Errorf("workspace: %s is non-empty; pass force to re-init anyway", root)
	}

	for _, d := range requiredDirs {
		if err := fsys.EnsureDir(filepath.Join(root, d)); err != nil {
			return fmt.Errorf("workspace: create %s: %w", d, err)
		}
	}

	company := types.Company{
		SchemaVersion: types.SchemaVersion,
		ID:            idgen.New(idgen.PrefixCompany),
		Name:          companyName,
		CreatedAt:     time.Now().UTC(),
	}
	if err := writeYAML(filepath.Join(root, "company", "company.yaml"), company); err != nil {
		return err
	}

	if err := writeYAML(filepath.Join(root, "company", "policy.yaml"), map[string]string{
		"schema_version": fmt.Sprint(types.SchemaVersion),
	}); err != nil {
		return err
	}

	if err := writeYAML(filepath.Join(root, ".local", "machine.yaml"), types.DefaultMachineConfig()); err != nil {
		return err
	}

	log.Infof("initialized workspace at %s (company=%s)", root, company.ID)
	return nil
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("workspace: marshal %s: %w", path, err)
	}
	return fsys.WriteFileAtomic(path, data, 0o644)
}

package index

import (
	"os"
	"path/filepath"

	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/types"
)

// Resync walks the runs Rebuild projects (work/projects/*/runs/*) but
// skips any run.yaml or events.jsonl whose recorded (mtime, size)
// fingerprint in the sources table hasn't changed, so a watcher firing on
// every workspace write doesn't re-replay untouched runs. Artifacts and
// inbox reviews are not visited; pending_reviews and reviews change only
// through Rebuild or the review service. Unlike Rebuild it does not reset the
// whole projection first — stale rows for deleted runs are left in place
// (the workspace never deletes a run directory, so this doesn't drift).
func Resync(store *Store, root string) error {
	projectsDir := filepath.Join(root, "work", "projects")
	projectDirs, err := os.ReadDir(projectsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, pd := range projectDirs {
		if !pd.IsDir() {
			continue
		}
		if err := resyncProjectRuns(store, filepath.Join(projectsDir, pd.Name())); err != nil {
			return err
		}
	}
	return nil
}

func resyncProjectRuns(store *Store, projectDir string) error {
	runsDir := filepath.Join(projectDir, "runs")
	entries, err := os.ReadDir(runsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		runDir := filepath.Join(runsDir, e.Name())
		runYAMLPath := filepath.Join(runDir, "run.yaml")

		if info, err := os.Stat(runYAMLPath); err == nil {
			stale, err := store.NeedsResync(runYAMLPath, info)
			if err != nil {
				return err
			}
			if stale {
				data, err := os.ReadFile(runYAMLPath)
				if err != nil {
					return err
				}
				var run types.Run
				if err := types.StrictUnmarshalYAML(data, &run); err != nil {
					log.Warnf("skipping unparseable run.yaml at %s: %v", runYAMLPath, err)
				} else {
					if err := store.UpsertRun(run); err != nil {
						return err
					}
					if run.Usage != nil {
						if err := store.UpsertRunUsage(run.ID, *run.Usage); err != nil {
							return err
						}
					}
					if run.ContextCycles != nil {
						if err := store.UpsertContextCycles(run.ID, *run.ContextCycles); err != nil {
							return err
						}
					}
				}
				_ = store.RecordSource(runYAMLPath, info)
			}
		}

		eventsPath := eventlog.EventsPath(runDir)
		if info, err := os.Stat(eventsPath); err == nil {
			stale, err := store.NeedsResync(eventsPath, info)
			if err != nil {
				return err
			}
			if stale {
				runID, err := runIDFromYAML(runYAMLPath)
				if err != nil {
					continue
				}
				if err := rebuildRunEvents(store, runID, eventsPath); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func runIDFromYAML(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var run types.Run
	if err := types.StrictUnmarshalYAML(data, &run); err != nil {
		return "", err
	}
	return run.ID, nil
}

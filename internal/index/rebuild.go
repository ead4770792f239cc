package index

import (
	"os"
	"path/filepath"
	"time"

	"github.com/CLIAIMONITOR/internal/artifactio"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/types"
)

// Rebuild wipes and fully recomputes the projection from the workspace
// tree rooted at root: work/projects/*/runs/*/{run.yaml,events.jsonl},
// inbox/reviews/*.yaml, and work/projects/*/artifacts/*.md pending
// review. It is the only operation doctor needs to trust blindly — the
// index carries no state that can't be recovered this way.
func Rebuild(store *Store, root string) error {
	if err := store.Reset(); err != nil {
		return err
	}

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
		projectID := pd.Name()
		if err := rebuildProjectRuns(store, filepath.Join(projectsDir, projectID), projectID); err != nil {
			return err
		}
		if err := rebuildPendingArtifacts(store, filepath.Join(projectsDir, projectID, "artifacts"), projectID); err != nil {
			return err
		}
	}

	if err := rebuildReviews(store, filepath.Join(root, "inbox", "reviews")); err != nil {
		return err
	}
	return nil
}

func rebuildProjectRuns(store *Store, projectDir, projectID string) error {
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
		data, err := os.ReadFile(runYAMLPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		var run types.Run
		if err := types.StrictUnmarshalYAML(data, &run); err != nil {
			log.Warnf("skipping unparseable run.yaml at %s: %v", runYAMLPath, err)
			continue
		}
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
		if info, err := os.Stat(runYAMLPath); err == nil {
			_ = store.RecordSource(runYAMLPath, info)
		}

		eventsPath := eventlog.EventsPath(runDir)
		if err := rebuildRunEvents(store, run.ID, eventsPath); err != nil {
			return err
		}
	}
	return nil
}

func rebuildRunEvents(store *Store, runID, eventsPath string) error {
	result, err := eventlog.Replay(eventsPath, false)
	if err != nil {
		return err
	}
	for seq, ev := range result.Events {
		if err := store.InsertEvent(runID, seq, ev); err != nil {
			return err
		}
	}
	for _, pe := range result.ParseIssues {
		if err := store.InsertParseError(runID, pe.Seq, pe.Raw, pe.Error); err != nil {
			return err
		}
	}
	if info, err := os.Stat(eventsPath); err == nil {
		_ = store.RecordSource(eventsPath, info)
	}
	return nil
}

func rebuildReviews(store *Store, reviewsDir string) error {
	entries, err := os.ReadDir(reviewsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(reviewsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var rv types.Review
		if err := types.StrictUnmarshalYAML(data, &rv); err != nil {
			log.Warnf("skipping unparseable review at %s: %v", path, err)
			continue
		}
		if err := store.InsertReview(rv); err != nil {
			return err
		}
		if err := store.ClearPendingReview(rv.SubjectArtifactID); err != nil {
			return err
		}
	}
	return nil
}

// rebuildPendingArtifacts scans artifacts/*.md for artifact types whose
// RequiresReview is true and re-populates pending_reviews for any that
// have no corresponding decided review.
func rebuildPendingArtifacts(store *Store, artifactsDir, projectID string) error {
	entries, err := os.ReadDir(artifactsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(artifactsDir, e.Name())
		art, err := artifactio.ReadFile(path)
		if err != nil {
			log.Warnf("skipping unparseable artifact at %s: %v", path, err)
			continue
		}
		if !types.RequiresReview(art.Type) {
			continue
		}
		if err := store.UpsertPendingReview(art.ID, art.Type, projectID, art.CreatedAt.Format(time.RFC3339Nano), art.ProducedBy); err != nil {
			return err
		}
	}
	return nil
}

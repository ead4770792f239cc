package index

import (
	"database/sql"
	"os"
	"time"

	"github.com/CLIAIMONITOR/internal/types"
)

// UpsertRun projects a run.yaml record into the runs table.
func (s *Store) UpsertRun(r types.Run) error {
	var endedAt interface{}
	if r.EndedAt != nil {
		endedAt = r.EndedAt.Format(time.RFC3339Nano)
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, project_id, agent_id, provider, status, created_at, ended_at, context_pack_id, events_relpath)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, ended_at=excluded.ended_at,
			context_pack_id=excluded.context_pack_id
	`, r.ID, r.ProjectID, r.AgentID, r.Provider, string(r.Status), r.CreatedAt.Format(time.RFC3339Nano), endedAt, r.ContextPackID, r.EventsRelpath)
	return err
}

// UpsertRunUsage projects a run's accumulated usage.
func (s *Store) UpsertRunUsage(runID string, u types.Usage) error {
	_, err := s.db.Exec(`
		INSERT INTO run_usage (run_id, input, cached_input, output, reasoning_output, total, source, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			input=excluded.input, cached_input=excluded.cached_input,
			output=excluded.output, reasoning_output=excluded.reasoning_output,
			total=excluded.total, source=excluded.source, cost_usd=excluded.cost_usd
	`, runID, u.Input, u.CachedInput, u.Output, u.ReasoningOutput, u.Total, string(u.Source), u.CostUSD)
	return err
}

// UpsertContextCycles projects a run's context-cycle tally.
func (s *Store) UpsertContextCycles(runID string, c types.ContextCycles) error {
	_, err := s.db.Exec(`
		INSERT INTO context_cycles (run_id, count, source)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET count=excluded.count, source=excluded.source
	`, runID, c.Count, string(c.Source))
	return err
}

// InsertEvent projects one event.jsonl line's envelope.
func (s *Store) InsertEvent(runID string, seq int, ev types.Event) error {
	_, err := s.db.Exec(`
		INSERT INTO events (run_id, seq, event_id, ts_wallclock, type, actor, visibility)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO UPDATE SET type=excluded.type
	`, runID, seq, ev.EventID, ev.TsWallclock, ev.Type, ev.Actor, string(ev.Visibility))
	return err
}

// InsertParseError records a torn/corrupt events.jsonl line encountered
// during replay, so doctor can surface it without re-scanning the file.
func (s *Store) InsertParseError(runID string, seq int, raw, errMsg string) error {
	_, err := s.db.Exec(`
		INSERT INTO event_parse_errors (run_id, seq, raw, error)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO UPDATE SET error=excluded.error
	`, runID, seq, raw, errMsg)
	return err
}

// InsertReview projects a decided review.yaml record.
func (s *Store) InsertReview(rv types.Review) error {
	_, err := s.db.Exec(`
		INSERT INTO reviews (id, created_at, actor_id, actor_role, decision, subject_artifact_id, policy, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET decision=excluded.decision, notes=excluded.notes
	`, rv.ID, rv.CreatedAt.Format(time.RFC3339Nano), rv.ActorID, string(rv.ActorRole), string(rv.Decision), rv.SubjectArtifactID, rv.Policy, rv.Notes)
	return err
}

// UpsertPendingReview records an artifact awaiting review.
func (s *Store) UpsertPendingReview(artifactID string, artifactType types.ArtifactType, projectID, createdAt, producedBy string) error {
	_, err := s.db.Exec(`
		INSERT INTO pending_reviews (artifact_id, artifact_type, project_id, created_at, produced_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(artifact_id) DO NOTHING
	`, artifactID, string(artifactType), projectID, createdAt, producedBy)
	return err
}

// ClearPendingReview removes an artifact from the pending set once a
// review decides it.
func (s *Store) ClearPendingReview(artifactID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_reviews WHERE artifact_id = ?`, artifactID)
	return err
}

// PendingReview is one row of the pending_reviews projection.
type PendingReview struct {
	ArtifactID   string
	ArtifactType types.ArtifactType
	ProjectID    string
	CreatedAt    string
	ProducedBy   string
}

// ListPendingReviews returns every artifact still awaiting a decision,
// oldest first.
func (s *Store) ListPendingReviews() ([]PendingReview, error) {
	rows, err := s.db.Query(`
		SELECT artifact_id, artifact_type, project_id, created_at, produced_by
		FROM pending_reviews ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingReview
	for rows.Next() {
		var p PendingReview
		var artifactType string
		if err := rows.Scan(&p.ArtifactID, &artifactType, &p.ProjectID, &p.CreatedAt, &p.ProducedBy); err != nil {
			return nil, err
		}
		p.ArtifactType = types.ArtifactType(artifactType)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRecentReviews returns decided reviews newest first, capped at limit
// (0 means no cap).
func (s *Store) ListRecentReviews(limit int) ([]types.Review, error) {
	query := `
		SELECT id, created_at, actor_id, actor_role, decision, subject_artifact_id, policy, notes
		FROM reviews ORDER BY created_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Review
	for rows.Next() {
		var rv types.Review
		var createdAt, actorRole, decision string
		var policy, notes sql.NullString
		if err := rows.Scan(&rv.ID, &createdAt, &rv.ActorID, &actorRole, &decision, &rv.SubjectArtifactID, &policy, &notes); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rv.CreatedAt = t
		}
		rv.ActorRole = types.Role(actorRole)
		rv.Decision = types.ReviewDecision(decision)
		rv.Policy = policy.String
		rv.Notes = notes.String
		out = append(out, rv)
	}
	return out, rows.Err()
}

// GetRun returns the single projected run with the given id, or
// (nil, nil) if it isn't known to the index.
func (s *Store) GetRun(runID string) (*types.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, agent_id, provider, status, created_at, ended_at, context_pack_id, events_relpath
		FROM runs WHERE id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// RunsByProject returns every run projected for projectID.
func (s *Store) RunsByProject(projectID string) ([]types.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, agent_id, provider, status, created_at, ended_at, context_pack_id, events_relpath
		FROM runs WHERE project_id = ? ORDER BY created_at ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// RunsByStatus returns every run currently in the given status.
func (s *Store) RunsByStatus(status types.RunStatus) ([]types.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, agent_id, provider, status, created_at, ended_at, context_pack_id, events_relpath
		FROM runs WHERE status = ? ORDER BY created_at ASC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]types.Run, error) {
	var out []types.Run
	for rows.Next() {
		var r types.Run
		var status, createdAt string
		var endedAt sql.NullString
		var contextPackID sql.NullString
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.AgentID, &r.Provider, &status, &createdAt, &endedAt, &contextPackID, &r.EventsRelpath); err != nil {
			return nil, err
		}
		r.Status = types.RunStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		if endedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
				r.EndedAt = &t
			}
		}
		if contextPackID.Valid {
			r.ContextPackID = contextPackID.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordSource upserts a file's (mtime, size) fingerprint so NeedsResync
// can later detect it changed underneath the index.
func (s *Store) RecordSource(path string, info os.FileInfo) error {
	_, err := s.db.Exec(`
		INSERT INTO sources (path, mtime, size) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET mtime=excluded.mtime, size=excluded.size
	`, path, info.ModTime().UnixNano(), info.Size())
	return err
}

// NeedsResync reports whether path's on-disk (mtime, size) differs from
// what was last recorded for it (or it was never recorded at all).
func (s *Store) NeedsResync(path string, info os.FileInfo) (bool, error) {
	var mtime, size int64
	err := s.db.QueryRow(`SELECT mtime, size FROM sources WHERE path = ?`, path).Scan(&mtime, &size)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return mtime != info.ModTime().UnixNano() || size != info.Size(), nil
}


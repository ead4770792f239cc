package index

import (
	"database/sql"

	"github.com/CLIAIMONITOR/internal/types"
)

// PendingReviewByID returns the pending_reviews row for artifactID, or
// (nil, nil) if it isn't pending.
func (s *Store) PendingReviewByID(artifactID string) (*PendingReview, error) {
	row := s.db.QueryRow(`
		SELECT artifact_id, artifact_type, project_id, created_at, produced_by
		FROM pending_reviews WHERE artifact_id = ?
	`, artifactID)

	var p PendingReview
	var artifactType string
	err := row.Scan(&p.ArtifactID, &artifactType, &p.ProjectID, &p.CreatedAt, &p.ProducedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ArtifactType = types.ArtifactType(artifactType)
	return &p, nil
}

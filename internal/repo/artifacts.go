package repo

import (
	"context"
	"database/sql"
	"strings"

	"reviewgate/internal/domain"
)

const artifactColumns = `id,project_id,type,title,status,ai_confidence_score,files_affected,source_agent,risk_score,risk_level,submitted_at,approved_at,rejected_at,reviewer_id,review_note`

func scanArtifact(scan func(dest ...any) error) (domain.Artifact, error) {
	var a domain.Artifact
	var approvedAt, rejectedAt, reviewerID, reviewNote sql.NullString
	err := scan(&a.ID, &a.ProjectID, &a.Type, &a.Title, &a.Status, &a.AIConfidenceScore, &a.FilesAffected,
		&a.SourceAgent, &a.RiskScore, &a.RiskLevel, &a.SubmittedAt, &approvedAt, &rejectedAt, &reviewerID, &reviewNote)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if approvedAt.Valid {
		a.ApprovedAt = &approvedAt.String
	}
	if rejectedAt.Valid {
		a.RejectedAt = &rejectedAt.String
	}
	if reviewerID.Valid {
		a.ReviewerID = &reviewerID.String
	}
	if reviewNote.Valid {
		a.ReviewNote = &reviewNote.String
	}
	return a, nil
}

func (r Repo) InsertArtifact(ctx context.Context, tx *sql.Tx, a domain.Artifact) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO artifacts(`+artifactColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.ProjectID, a.Type, a.Title, a.Status, a.AIConfidenceScore, a.FilesAffected, a.SourceAgent,
		a.RiskScore, a.RiskLevel, a.SubmittedAt, nullableStringPtr(a.ApprovedAt), nullableStringPtr(a.RejectedAt),
		nullableStringPtr(a.ReviewerID), nullableStringPtr(a.ReviewNote))
	return err
}

func (r Repo) UpdateArtifact(ctx context.Context, tx *sql.Tx, a domain.Artifact) error {
	_, err := tx.ExecContext(ctx, `UPDATE artifacts SET status=?, risk_score=?, risk_level=?, approved_at=?, rejected_at=?, reviewer_id=?, review_note=? WHERE id=?`,
		a.Status, a.RiskScore, a.RiskLevel, nullableStringPtr(a.ApprovedAt), nullableStringPtr(a.RejectedAt),
		nullableStringPtr(a.ReviewerID), nullableStringPtr(a.ReviewNote), a.ID)
	return err
}

func (r Repo) GetArtifact(ctx context.Context, id string) (domain.Artifact, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id=?`, id)
	return scanArtifact(row.Scan)
}

type ArtifactFilters struct {
	ProjectID string
	Status    string
	Type      string
	Skip      int
	Take      int
}

func (r Repo) ListArtifacts(ctx context.Context, f ArtifactFilters) ([]domain.Artifact, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + artifactColumns + ` FROM artifacts ` + where + ` ORDER BY submitted_at DESC, id DESC`
	if f.Take > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Take, f.Skip)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

// HistoryCounts returns the total and rejected artifact counts for a
// (project, agent, type) tuple, the input to the historical risk factor.
func (r Repo) HistoryCounts(ctx context.Context, projectID, sourceAgent, artifactType string) (total, rejected int, err error) {
	err = r.DB.QueryRowContext(ctx, `SELECT count(*), count(rejected_at) FROM artifacts WHERE project_id=? AND source_agent=? AND type=?`,
		projectID, sourceAgent, artifactType).Scan(&total, &rejected)
	return total, rejected, err
}

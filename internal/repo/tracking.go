package repo

import (
	"context"
	"database/sql"
	"strings"

	"reviewgate/internal/domain"
)

const trackingColumns = `artifact_id,project_id,risk_level,deadline_hours,deadline,status,warning_threshold,warning_sent_at,escalated_at,escalated_to_id,escalation_reason,completed_at,created_at,updated_at`

func scanTracking(scan func(dest ...any) error) (domain.SLATracking, error) {
	var t domain.SLATracking
	var warningSentAt, escalatedAt, escalatedToID, escalationReason, completedAt sql.NullString
	err := scan(&t.ArtifactID, &t.ProjectID, &t.RiskLevel, &t.DeadlineHours, &t.Deadline, &t.Status,
		&t.WarningThreshold, &warningSentAt, &escalatedAt, &escalatedToID, &escalationReason, &completedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if warningSentAt.Valid {
		t.WarningSentAt = &warningSentAt.String
	}
	if escalatedAt.Valid {
		t.EscalatedAt = &escalatedAt.String
	}
	if escalatedToID.Valid {
		t.EscalatedToID = &escalatedToID.String
	}
	if escalationReason.Valid {
		t.EscalationReason = &escalationReason.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	return t, nil
}

// UpsertTracking replaces the tracking row for an artifact. The artifact_id
// key makes repeated creation idempotent, never duplicated.
func (r Repo) UpsertTracking(ctx context.Context, tx *sql.Tx, t domain.SLATracking) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sla_tracking(`+trackingColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(artifact_id) DO UPDATE SET
	risk_level=excluded.risk_level, deadline_hours=excluded.deadline_hours, deadline=excluded.deadline,
	status=excluded.status, warning_threshold=excluded.warning_threshold, warning_sent_at=excluded.warning_sent_at,
	escalated_at=excluded.escalated_at, escalated_to_id=excluded.escalated_to_id, escalation_reason=excluded.escalation_reason,
	completed_at=excluded.completed_at, created_at=excluded.created_at, updated_at=excluded.updated_at`,
		t.ArtifactID, t.ProjectID, t.RiskLevel, t.DeadlineHours, t.Deadline, t.Status, t.WarningThreshold,
		nullableStringPtr(t.WarningSentAt), nullableStringPtr(t.EscalatedAt), nullableStringPtr(t.EscalatedToID),
		nullableStringPtr(t.EscalationReason), nullableStringPtr(t.CompletedAt), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTracking(ctx context.Context, artifactID string) (domain.SLATracking, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+trackingColumns+` FROM sla_tracking WHERE artifact_id=?`, artifactID)
	return scanTracking(row.Scan)
}

func (r Repo) UpdateTracking(ctx context.Context, tx *sql.Tx, t domain.SLATracking) error {
	res, err := tx.ExecContext(ctx, `UPDATE sla_tracking SET risk_level=?, deadline_hours=?, deadline=?, status=?, warning_threshold=?, warning_sent_at=?, escalated_at=?, escalated_to_id=?, escalation_reason=?, completed_at=?, updated_at=? WHERE artifact_id=?`,
		t.RiskLevel, t.DeadlineHours, t.Deadline, t.Status, t.WarningThreshold,
		nullableStringPtr(t.WarningSentAt), nullableStringPtr(t.EscalatedAt), nullableStringPtr(t.EscalatedToID),
		nullableStringPtr(t.EscalationReason), nullableStringPtr(t.CompletedAt), t.UpdatedAt, t.ArtifactID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TrackingFilters struct {
	Statuses  []string
	ProjectID string
	Skip      int
	Take      int
	// OrderByDeadlineAsc puts the most urgent deadline first; otherwise
	// rows come back newest first.
	OrderByDeadlineAsc bool
}

func trackingWhere(f TrackingFilters) (string, []any) {
	var clauses []string
	var args []any
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	// Open rows only; completed records belong to the metrics queries.
	clauses = append(clauses, "completed_at IS NULL")
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r Repo) ListTracking(ctx context.Context, f TrackingFilters) ([]domain.SLATracking, error) {
	where, args := trackingWhere(f)
	order := "ORDER BY created_at DESC, artifact_id DESC"
	if f.OrderByDeadlineAsc {
		order = "ORDER BY deadline ASC, artifact_id ASC"
	}
	query := `SELECT ` + trackingColumns + ` FROM sla_tracking ` + where + ` ` + order
	if f.Take > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Take, f.Skip)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SLATracking
	for rows.Next() {
		t, err := scanTracking(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (r Repo) CountTracking(ctx context.Context, f TrackingFilters) (int, error) {
	where, args := trackingWhere(f)
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM sla_tracking `+where, args...).Scan(&count)
	return count, err
}

// ResolvedTracking pairs a closed tracking row with its artifact's
// submission and resolution timestamps for metrics aggregation.
type ResolvedTracking struct {
	domain.SLATracking
	SubmittedAt string
	ResolvedAt  string
}

// ListResolvedTracking returns tracking rows created at or after since
// whose artifact has an approval or rejection decision.
func (r Repo) ListResolvedTracking(ctx context.Context, projectID, since string) ([]ResolvedTracking, error) {
	query := `SELECT t.artifact_id,t.project_id,t.risk_level,t.deadline_hours,t.deadline,t.status,t.warning_threshold,
t.warning_sent_at,t.escalated_at,t.escalated_to_id,t.escalation_reason,t.completed_at,t.created_at,t.updated_at,
a.submitted_at, COALESCE(a.approved_at, a.rejected_at)
FROM sla_tracking t
JOIN artifacts a ON a.id = t.artifact_id
WHERE t.project_id=? AND t.created_at >= ? AND (a.approved_at IS NOT NULL OR a.rejected_at IS NOT NULL)
ORDER BY t.created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, projectID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ResolvedTracking
	for rows.Next() {
		var rt ResolvedTracking
		var warningSentAt, escalatedAt, escalatedToID, escalationReason, completedAt sql.NullString
		if err := rows.Scan(&rt.ArtifactID, &rt.ProjectID, &rt.RiskLevel, &rt.DeadlineHours, &rt.Deadline, &rt.Status,
			&rt.WarningThreshold, &warningSentAt, &escalatedAt, &escalatedToID, &escalationReason, &completedAt,
			&rt.CreatedAt, &rt.UpdatedAt, &rt.SubmittedAt, &rt.ResolvedAt); err != nil {
			return nil, err
		}
		if warningSentAt.Valid {
			rt.WarningSentAt = &warningSentAt.String
		}
		if escalatedAt.Valid {
			rt.EscalatedAt = &escalatedAt.String
		}
		if escalatedToID.Valid {
			rt.EscalatedToID = &escalatedToID.String
		}
		if escalationReason.Valid {
			rt.EscalationReason = &escalationReason.String
		}
		if completedAt.Valid {
			rt.CompletedAt = &completedAt.String
		}
		res = append(res, rt)
	}
	return res, nil
}

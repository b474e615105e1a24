package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reviewgate/internal/domain"
	"reviewgate/internal/events"
	"reviewgate/internal/repo"
)

// SLA tracking statuses. Time only moves forward: breached never reverts
// to an earlier state, and escalated is terminal and sticky.
const (
	StatusWithinSLA   = "within_sla"
	StatusApproaching = "approaching_sla"
	StatusBreached    = "breached"
	StatusEscalated   = "escalated"
)

type DeadlineResult struct {
	Hours    float64
	Deadline time.Time
}

// CalculateDeadline resolves the SLA window for a risk level from project
// settings (or defaults) and anchors it at the current time.
func (e Engine) CalculateDeadline(ctx context.Context, projectID, riskLevel string) (DeadlineResult, error) {
	settings, err := e.settingsOrDefault(ctx, projectID)
	if err != nil {
		return DeadlineResult{}, err
	}
	hours := settings.SLAHours(riskLevel)
	return DeadlineResult{
		Hours:    hours,
		Deadline: e.now().UTC().Add(time.Duration(hours * float64(time.Hour))),
	}, nil
}

// CreateSLATracking upserts the deadline record for an artifact with
// initial status within_sla. Calling it again replaces the row rather than
// duplicating it. Fails with not-found if the artifact does not exist.
func (e Engine) CreateSLATracking(ctx context.Context, artifactID, riskLevel, actorID string) (domain.SLATracking, error) {
	artifact, err := e.Repo.GetArtifact(ctx, artifactID)
	if err != nil {
		return domain.SLATracking{}, err
	}
	if riskLevel == "" {
		riskLevel = artifact.RiskLevel
	}
	settings, err := e.settingsOrDefault(ctx, artifact.ProjectID)
	if err != nil {
		return domain.SLATracking{}, err
	}
	deadline, err := e.CalculateDeadline(ctx, artifact.ProjectID, riskLevel)
	if err != nil {
		return domain.SLATracking{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	t := domain.SLATracking{
		ArtifactID:       artifactID,
		ProjectID:        artifact.ProjectID,
		RiskLevel:        riskLevel,
		DeadlineHours:    deadline.Hours,
		Deadline:         deadline.Deadline.Format(time.RFC3339),
		Status:           StatusWithinSLA,
		WarningThreshold: settings.SLAWarningThreshold,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SLATracking{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertTracking(ctx, tx, t); err != nil {
		return domain.SLATracking{}, err
	}
	if err := e.Events.Append(ctx, tx, "sla.tracking.created", t.ProjectID, events.KindTracking, artifactID, actorID, events.EventPayload{
		"risk_level":     riskLevel,
		"deadline":       t.Deadline,
		"deadline_hours": deadline.Hours,
	}); err != nil {
		return domain.SLATracking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SLATracking{}, err
	}
	return t, nil
}

// SLAStatus is the live view of a tracking record.
type SLAStatus struct {
	ArtifactID        string
	RiskLevel         string
	Status            string
	IsOverdue         bool
	IsApproaching     bool
	TimeRemaining     time.Duration
	PercentageElapsed float64
	Deadline          time.Time
}

// deriveStatus computes the live status from timestamps. Escalated is
// sticky; past the deadline everything else is breached.
func deriveStatus(t domain.SLATracking, now time.Time) (string, float64) {
	created, _ := time.Parse(time.RFC3339, t.CreatedAt)
	deadline, _ := time.Parse(time.RFC3339, t.Deadline)
	window := deadline.Sub(created)
	var pct float64
	if window > 0 {
		pct = float64(now.Sub(created)) / float64(window) * 100
	}
	if pct < 0 {
		pct = 0
	}
	if t.Status == StatusEscalated {
		return StatusEscalated, pct
	}
	if now.After(deadline) {
		return StatusBreached, pct
	}
	if pct >= float64(t.WarningThreshold) {
		return StatusApproaching, pct
	}
	return StatusWithinSLA, pct
}

// frozenStatus renders a completed tracking record as of its completion
// instant, keeping the settled status.
func frozenStatus(t domain.SLATracking, asOf time.Time) SLAStatus {
	_, pct := deriveStatus(t, asOf)
	deadline, _ := time.Parse(time.RFC3339, t.Deadline)
	remaining := deadline.Sub(asOf)
	if remaining < 0 {
		remaining = 0
	}
	return SLAStatus{
		ArtifactID:        t.ArtifactID,
		RiskLevel:         t.RiskLevel,
		Status:            t.Status,
		IsOverdue:         t.Status == StatusBreached || t.Status == StatusEscalated,
		IsApproaching:     t.Status == StatusApproaching,
		TimeRemaining:     remaining,
		PercentageElapsed: pct,
		Deadline:          deadline,
	}
}

// GetSLAStatus recomputes the live status of a tracking record and, when
// it differs from the stored one, persists the transition. Polling callers
// converge the stored state without a background scheduler; repeating the
// read is safe.
func (e Engine) GetSLAStatus(ctx context.Context, artifactID string) (SLAStatus, error) {
	t, err := e.Repo.GetTracking(ctx, artifactID)
	if err != nil {
		return SLAStatus{}, err
	}
	if t.CompletedAt != nil {
		// Completion settled the final status; the view is frozen at the
		// completion instant and nothing is re-derived or persisted.
		completed, _ := time.Parse(time.RFC3339, *t.CompletedAt)
		return frozenStatus(t, completed), nil
	}
	now := e.now().UTC()
	live, pct := deriveStatus(t, now)
	if live != t.Status {
		prev := t.Status
		t.Status = live
		t.UpdatedAt = now.Format(time.RFC3339)
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return SLAStatus{}, err
		}
		defer tx.Rollback()
		if err := e.Repo.UpdateTracking(ctx, tx, t); err != nil {
			return SLAStatus{}, err
		}
		if err := e.Events.Append(ctx, tx, "sla.status.changed", t.ProjectID, events.KindTracking, artifactID, "system", events.EventPayload{
			"from": prev,
			"to":   live,
		}); err != nil {
			return SLAStatus{}, err
		}
		if err := tx.Commit(); err != nil {
			return SLAStatus{}, err
		}
	}
	deadline, _ := time.Parse(time.RFC3339, t.Deadline)
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return SLAStatus{
		ArtifactID:        artifactID,
		RiskLevel:         t.RiskLevel,
		Status:            live,
		IsOverdue:         live == StatusBreached || live == StatusEscalated,
		IsApproaching:     live == StatusApproaching,
		TimeRemaining:     remaining,
		PercentageElapsed: pct,
		Deadline:          deadline,
	}, nil
}

// GetApproachingSLAs lists open tracking rows that have not yet breached,
// most urgent deadline first. The optional project filter narrows the view.
func (e Engine) GetApproachingSLAs(ctx context.Context, projectID string, page, limit int) ([]domain.SLATracking, int, error) {
	return e.listTracking(ctx, []string{StatusWithinSLA, StatusApproaching}, projectID, page, limit, true)
}

// GetBreachedSLAs lists tracking rows past their deadline, escalated ones
// included.
func (e Engine) GetBreachedSLAs(ctx context.Context, projectID string, page, limit int) ([]domain.SLATracking, int, error) {
	return e.listTracking(ctx, []string{StatusBreached, StatusEscalated}, projectID, page, limit, false)
}

func (e Engine) listTracking(ctx context.Context, statuses []string, projectID string, page, limit int, byDeadline bool) ([]domain.SLATracking, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	f := repo.TrackingFilters{
		Statuses:           statuses,
		ProjectID:          projectID,
		Skip:               (page - 1) * limit,
		Take:               limit,
		OrderByDeadlineAsc: byDeadline,
	}
	items, err := e.Repo.ListTracking(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := e.Repo.CountTracking(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type EscalateOptions struct {
	ArtifactID    string
	EscalatedToID string
	Reason        string
	ActorID       string
}

// Escalate routes an overdue artifact to a designated reviewer. Manual and
// unconditional: detection of a breach never escalates by itself. With no
// explicit target the head of the project escalation chain is used.
func (e Engine) Escalate(ctx context.Context, opts EscalateOptions) (domain.SLATracking, error) {
	t, err := e.Repo.GetTracking(ctx, opts.ArtifactID)
	if err != nil {
		return domain.SLATracking{}, err
	}
	if t.CompletedAt != nil {
		return domain.SLATracking{}, fmt.Errorf("sla tracking for artifact %s already completed", opts.ArtifactID)
	}
	target := opts.EscalatedToID
	if target == "" {
		settings, err := e.settingsOrDefault(ctx, t.ProjectID)
		if err != nil {
			return domain.SLATracking{}, err
		}
		if len(settings.EscalationChain) > 0 {
			target = settings.EscalationChain[0]
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	t.Status = StatusEscalated
	t.EscalatedAt = &now
	t.EscalatedToID = optionalString(target)
	t.EscalationReason = optionalString(opts.Reason)
	t.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SLATracking{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTracking(ctx, tx, t); err != nil {
		return domain.SLATracking{}, err
	}
	if err := e.Events.Append(ctx, tx, "sla.escalated", t.ProjectID, events.KindTracking, opts.ArtifactID, opts.ActorID, events.EventPayload{
		"escalated_to": target,
		"reason":       opts.Reason,
	}); err != nil {
		return domain.SLATracking{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SLATracking{}, err
	}
	return t, nil
}

// CompleteSLATracking closes the tracking record once the artifact has a
// review decision. A missing row is a legitimate no-op: auto-approved or
// never-tracked artifacts have nothing to complete. The final status is
// settled here — escalated stays escalated, otherwise the row lands on
// breached or within_sla depending on whether the deadline had passed.
func (e Engine) CompleteSLATracking(ctx context.Context, artifactID, actorID string) error {
	t, err := e.Repo.GetTracking(ctx, artifactID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if t.CompletedAt != nil {
		return nil
	}
	now := e.now().UTC()
	deadline, _ := time.Parse(time.RFC3339, t.Deadline)
	switch {
	case t.Status == StatusEscalated:
		// terminal, keep it
	case now.After(deadline):
		t.Status = StatusBreached
	default:
		t.Status = StatusWithinSLA
	}
	nowStr := now.Format(time.RFC3339)
	t.CompletedAt = &nowStr
	t.UpdatedAt = nowStr
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTracking(ctx, tx, t); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "sla.completed", t.ProjectID, events.KindTracking, artifactID, actorID, events.EventPayload{
		"final_status": t.Status,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// SweepResult records one status flip observed by a sweep pass.
type SweepResult struct {
	ArtifactID string `json:"artifact_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Warned     bool   `json:"warned"`
}

// SweepSLAs is the periodic re-evaluation pass: it re-reads every open
// tracking row so stored statuses converge, and stamps warning_sent_at the
// first time a row crosses its warning threshold when the project has SLA
// warnings enabled. Each sweep is idempotent.
func (e Engine) SweepSLAs(ctx context.Context, projectID string) ([]SweepResult, error) {
	rows, err := e.Repo.ListTracking(ctx, repo.TrackingFilters{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	var results []SweepResult
	for _, t := range rows {
		prev := t.Status
		status, err := e.GetSLAStatus(ctx, t.ArtifactID)
		if err != nil {
			return results, err
		}
		warned := false
		if status.IsApproaching && t.WarningSentAt == nil {
			settings, err := e.settingsOrDefault(ctx, t.ProjectID)
			if err != nil {
				return results, err
			}
			if settings.NotifyOnSLAWarning {
				if err := e.markWarningSent(ctx, t.ArtifactID); err != nil {
					return results, err
				}
				warned = true
			}
		}
		if status.Status != prev || warned {
			results = append(results, SweepResult{
				ArtifactID: t.ArtifactID,
				From:       prev,
				To:         status.Status,
				Warned:     warned,
			})
		}
	}
	return results, nil
}

func (e Engine) markWarningSent(ctx context.Context, artifactID string) error {
	t, err := e.Repo.GetTracking(ctx, artifactID)
	if err != nil {
		return err
	}
	now := e.now().UTC().Format(time.RFC3339)
	t.WarningSentAt = &now
	t.UpdatedAt = now
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTracking(ctx, tx, t); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "sla.warning", t.ProjectID, events.KindTracking, artifactID, "system", events.EventPayload{
		"deadline": t.Deadline,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

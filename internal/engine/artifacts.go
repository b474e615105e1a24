package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reviewgate/internal/domain"
	"reviewgate/internal/events"
	"reviewgate/internal/repo"
)

// SubmitOptions are parameters for submitting an AI-generated artifact.
type SubmitOptions struct {
	ID                string
	ProjectID         string
	Type              string
	Title             string
	AIConfidenceScore int
	FilesAffected     int
	SourceAgent       string
	ActorID           string
}

// SubmitResult pairs the stored artifact with its risk assessment and, for
// manual-review artifacts, the created SLA tracking record.
type SubmitResult struct {
	Artifact   domain.Artifact     `json:"artifact"`
	Assessment RiskAssessment      `json:"assessment"`
	Tracking   *domain.SLATracking `json:"tracking,omitempty"`
}

// SubmitArtifact scores a new artifact, applies the auto-approval policy
// and opens SLA tracking when the artifact needs a human decision.
func (e Engine) SubmitArtifact(ctx context.Context, opts SubmitOptions) (SubmitResult, error) {
	if opts.Title == "" {
		return SubmitResult{}, errors.New("title is required")
	}
	if opts.Type == "" {
		return SubmitResult{}, errors.New("type is required")
	}
	if opts.SourceAgent == "" {
		opts.SourceAgent = "unknown"
	}
	if opts.FilesAffected < 1 {
		opts.FilesAffected = 1
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return SubmitResult{}, err
	}
	assessment, err := e.AssessRisk(ctx, AssessInput{
		ProjectID:         opts.ProjectID,
		ArtifactType:      opts.Type,
		AIConfidenceScore: opts.AIConfidenceScore,
		FilesAffected:     opts.FilesAffected,
		SourceAgent:       opts.SourceAgent,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now().UTC().Format(time.RFC3339)
	a := domain.Artifact{
		ID:                id,
		ProjectID:         opts.ProjectID,
		Type:              opts.Type,
		Title:             opts.Title,
		Status:            "pending_review",
		AIConfidenceScore: opts.AIConfidenceScore,
		FilesAffected:     opts.FilesAffected,
		SourceAgent:       opts.SourceAgent,
		RiskScore:         assessment.RiskScore,
		RiskLevel:         assessment.RiskLevel,
		SubmittedAt:       now,
	}
	autoApproved := assessment.ApprovalRequirements.CanAutoApprove
	if autoApproved {
		a.Status = "auto_approved"
		a.ApprovedAt = &now
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return SubmitResult{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertArtifact(ctx, tx, a); err != nil {
		return SubmitResult{}, fmt.Errorf("insert artifact: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "artifact.submitted", a.ProjectID, events.KindArtifact, a.ID, opts.ActorID, events.EventPayload{
		"type":       a.Type,
		"risk_score": a.RiskScore,
		"risk_level": a.RiskLevel,
	}); err != nil {
		return SubmitResult{}, err
	}
	if autoApproved {
		if err := e.Events.Append(ctx, tx, "artifact.auto_approved", a.ProjectID, events.KindArtifact, a.ID, opts.ActorID, events.EventPayload{
			"reason": assessment.ApprovalRequirements.AutoApproveReason,
		}); err != nil {
			return SubmitResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return SubmitResult{}, err
	}

	result := SubmitResult{Artifact: a, Assessment: assessment}
	if !autoApproved {
		t, err := e.CreateSLATracking(ctx, a.ID, a.RiskLevel, opts.ActorID)
		if err != nil {
			return result, err
		}
		result.Tracking = &t
	}
	return result, nil
}

// ApproveArtifact records a human approval and closes SLA tracking.
func (e Engine) ApproveArtifact(ctx context.Context, artifactID, reviewerID, note string) (domain.Artifact, error) {
	return e.resolveArtifact(ctx, artifactID, reviewerID, note, true)
}

// RejectArtifact records a human rejection and closes SLA tracking.
func (e Engine) RejectArtifact(ctx context.Context, artifactID, reviewerID, note string) (domain.Artifact, error) {
	return e.resolveArtifact(ctx, artifactID, reviewerID, note, false)
}

func (e Engine) resolveArtifact(ctx context.Context, artifactID, reviewerID, note string, approve bool) (domain.Artifact, error) {
	a, err := e.Repo.GetArtifact(ctx, artifactID)
	if err != nil {
		return a, err
	}
	if a.Resolved() {
		return a, fmt.Errorf("artifact %s already resolved as %s", artifactID, a.Status)
	}
	now := e.now().UTC().Format(time.RFC3339)
	evtType := "artifact.rejected"
	if approve {
		a.Status = "approved"
		a.ApprovedAt = &now
		evtType = "artifact.approved"
	} else {
		a.Status = "rejected"
		a.RejectedAt = &now
	}
	a.ReviewerID = optionalString(reviewerID)
	a.ReviewNote = optionalString(note)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateArtifact(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, evtType, a.ProjectID, events.KindArtifact, a.ID, reviewerID, events.EventPayload{
		"risk_level": a.RiskLevel,
	}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	if err := e.CompleteSLATracking(ctx, a.ID, reviewerID); err != nil {
		return a, err
	}
	return a, nil
}

func (e Engine) GetArtifact(ctx context.Context, id string) (domain.Artifact, error) {
	return e.Repo.GetArtifact(ctx, id)
}

func (e Engine) ListArtifacts(ctx context.Context, projectID, status, artifactType string, page, limit int) ([]domain.Artifact, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return e.Repo.ListArtifacts(ctx, repo.ArtifactFilters{
		ProjectID: projectID,
		Status:    status,
		Type:      artifactType,
		Skip:      (page - 1) * limit,
		Take:      limit,
	})
}

package server

import (
	"encoding/json"
	"time"

	"reviewgate/internal/config"
	"reviewgate/internal/domain"
	"reviewgate/internal/engine"
)

// Request payloads

type CreateProjectRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type SubmitArtifactRequest struct {
	ID                *string `json:"id,omitempty"`
	Type              string  `json:"type" enum:"test_case,test_plan,test_suite,script"`
	Title             string  `json:"title"`
	AIConfidenceScore int     `json:"ai_confidence_score" minimum:"0" maximum:"100"`
	FilesAffected     int     `json:"files_affected" minimum:"0"`
	SourceAgent       string  `json:"source_agent,omitempty"`
}

type AssessRequest struct {
	Type              string `json:"type" enum:"test_case,test_plan,test_suite,script"`
	AIConfidenceScore int    `json:"ai_confidence_score" minimum:"0" maximum:"100"`
	FilesAffected     int    `json:"files_affected" minimum:"0"`
	SourceAgent       string `json:"source_agent,omitempty"`
}

type ReviewRequest struct {
	Note string `json:"note,omitempty"`
}

type EscalateRequest struct {
	EscalatedToID string `json:"escalated_to_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Response payloads

type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type ArtifactResponse struct {
	ID                string  `json:"id"`
	ProjectID         string  `json:"project_id"`
	Type              string  `json:"type" enum:"test_case,test_plan,test_suite,script"`
	Title             string  `json:"title"`
	Status            string  `json:"status" enum:"pending_review,auto_approved,approved,rejected"`
	AIConfidenceScore int     `json:"ai_confidence_score"`
	FilesAffected     int     `json:"files_affected"`
	SourceAgent       string  `json:"source_agent"`
	RiskScore         int     `json:"risk_score"`
	RiskLevel         string  `json:"risk_level" enum:"low,medium,high,critical"`
	SubmittedAt       string  `json:"submitted_at" format:"date-time"`
	ApprovedAt        *string `json:"approved_at,omitempty" format:"date-time"`
	RejectedAt        *string `json:"rejected_at,omitempty" format:"date-time"`
	ReviewerID        *string `json:"reviewer_id,omitempty"`
	ReviewNote        *string `json:"review_note,omitempty"`
}

type AssessmentResponse struct {
	RiskScore         int                `json:"risk_score"`
	RiskLevel         string             `json:"risk_level" enum:"low,medium,high,critical"`
	Factors           engine.RiskFactors `json:"factors"`
	CanAutoApprove    bool               `json:"can_auto_approve"`
	AutoApproveReason string             `json:"auto_approve_reason,omitempty"`
}

type SubmitResponse struct {
	Artifact   ArtifactResponse     `json:"artifact"`
	Assessment AssessmentResponse   `json:"assessment"`
	Tracking   *SLATrackingResponse `json:"tracking,omitempty"`
}

type SLATrackingResponse struct {
	ArtifactID       string  `json:"artifact_id"`
	ProjectID        string  `json:"project_id"`
	RiskLevel        string  `json:"risk_level" enum:"low,medium,high,critical"`
	DeadlineHours    float64 `json:"deadline_hours"`
	Deadline         string  `json:"deadline" format:"date-time"`
	Status           string  `json:"status" enum:"within_sla,approaching_sla,breached,escalated"`
	WarningThreshold int     `json:"warning_threshold"`
	WarningSentAt    *string `json:"warning_sent_at,omitempty" format:"date-time"`
	EscalatedAt      *string `json:"escalated_at,omitempty" format:"date-time"`
	EscalatedToID    *string `json:"escalated_to_id,omitempty"`
	EscalationReason *string `json:"escalation_reason,omitempty"`
	CompletedAt      *string `json:"completed_at,omitempty" format:"date-time"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type SLAStatusResponse struct {
	ArtifactID           string  `json:"artifact_id"`
	RiskLevel            string  `json:"risk_level" enum:"low,medium,high,critical"`
	Status               string  `json:"status" enum:"within_sla,approaching_sla,breached,escalated"`
	IsOverdue            bool    `json:"is_overdue"`
	IsApproaching        bool    `json:"is_approaching"`
	TimeRemainingSeconds float64 `json:"time_remaining_seconds"`
	PercentageElapsed    float64 `json:"percentage_elapsed"`
	Deadline             string  `json:"deadline" format:"date-time"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedArtifacts struct {
	Items []ArtifactResponse `json:"items"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

type paginatedTracking struct {
	Items []SLATrackingResponse `json:"items"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// Conversion helpers

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse(p)
}

func artifactResponse(a domain.Artifact) ArtifactResponse {
	return ArtifactResponse(a)
}

func mapArtifacts(items []domain.Artifact) []ArtifactResponse {
	res := make([]ArtifactResponse, 0, len(items))
	for _, a := range items {
		res = append(res, artifactResponse(a))
	}
	return res
}

func assessmentResponse(a engine.RiskAssessment) AssessmentResponse {
	return AssessmentResponse{
		RiskScore:         a.RiskScore,
		RiskLevel:         a.RiskLevel,
		Factors:           a.RiskFactors,
		CanAutoApprove:    a.ApprovalRequirements.CanAutoApprove,
		AutoApproveReason: a.ApprovalRequirements.AutoApproveReason,
	}
}

func trackingResponse(t domain.SLATracking) SLATrackingResponse {
	return SLATrackingResponse(t)
}

func mapTracking(items []domain.SLATracking) []SLATrackingResponse {
	res := make([]SLATrackingResponse, 0, len(items))
	for _, t := range items {
		res = append(res, trackingResponse(t))
	}
	return res
}

func slaStatusResponse(s engine.SLAStatus) SLAStatusResponse {
	return SLAStatusResponse{
		ArtifactID:           s.ArtifactID,
		RiskLevel:            s.RiskLevel,
		Status:               s.Status,
		IsOverdue:            s.IsOverdue,
		IsApproaching:        s.IsApproaching,
		TimeRemainingSeconds: s.TimeRemaining.Seconds(),
		PercentageElapsed:    s.PercentageElapsed,
		Deadline:             s.Deadline.Format(time.RFC3339),
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		ProjectID:  e.ProjectID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func settingsResponse(s *config.Settings) config.Settings {
	return *s
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

package domain

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status" enum:"active,paused,archived"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

// Artifact is an AI-generated QA deliverable awaiting a review decision.
type Artifact struct {
	ID                string  `json:"id"`
	ProjectID         string  `json:"project_id"`
	Type              string  `json:"type" enum:"script,test_case,test_plan,test_suite"`
	Title             string  `json:"title"`
	Status            string  `json:"status" enum:"pending_review,approved,rejected,auto_approved"`
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

// Resolved reports whether an approval or rejection has been recorded.
func (a Artifact) Resolved() bool {
	return a.ApprovedAt != nil || a.RejectedAt != nil
}

// SLATracking is the per-artifact deadline record. Exactly one row per
// artifact; upserted, never duplicated.
type SLATracking struct {
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

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

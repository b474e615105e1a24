package engine

import (
	"context"
	"fmt"
	"math"

	"reviewgate/internal/config"
)

// Base risk score per artifact type. Scripts mutate systems and carry the
// widest blast radius; test cases are declarative and cheap to revert.
// Unknown types get a conservative mid value.
var artifactTypeBaseScores = map[string]int{
	"script":     70,
	"test_case":  20,
	"test_plan":  30,
	"test_suite": 40,
}

const (
	unknownTypeBaseScore = 40
	confidenceWeight     = 0.30
	historicalWeight     = 20.0
)

// RiskFactors is the named breakdown of a risk assessment.
type RiskFactors struct {
	ArtifactTypeScore        int `json:"artifact_type_score"`
	ConfidenceScore          int `json:"confidence_score"`
	ScopeScore               int `json:"scope_score"`
	HistoricalRejectionScore int `json:"historical_rejection_score"`
}

// ApprovalRequirements carries the auto-approval decision. Reason is set
// only when the artifact can skip manual review.
type ApprovalRequirements struct {
	CanAutoApprove    bool   `json:"can_auto_approve"`
	AutoApproveReason string `json:"auto_approve_reason,omitempty"`
}

type RiskAssessment struct {
	RiskScore            int                  `json:"risk_score"`
	RiskFactors          RiskFactors          `json:"risk_factors"`
	RiskLevel            string               `json:"risk_level" enum:"low,medium,high,critical"`
	ApprovalRequirements ApprovalRequirements `json:"approval_requirements"`
}

type AssessInput struct {
	ProjectID         string
	ArtifactType      string
	AIConfidenceScore int
	FilesAffected     int
	SourceAgent       string
}

// AssessRisk scores an artifact against project settings and historical
// rejection data. Pure given its inputs; the history lookup is a read.
// Missing project settings fall back to defaults rather than failing.
func (e Engine) AssessRisk(ctx context.Context, in AssessInput) (RiskAssessment, error) {
	if in.AIConfidenceScore < 0 || in.AIConfidenceScore > 100 {
		return RiskAssessment{}, fmt.Errorf("ai confidence score must be between 0 and 100, got %d", in.AIConfidenceScore)
	}
	settings, err := e.settingsOrDefault(ctx, in.ProjectID)
	if err != nil {
		return RiskAssessment{}, err
	}
	total, rejected, err := e.Repo.HistoryCounts(ctx, in.ProjectID, in.SourceAgent, in.ArtifactType)
	if err != nil {
		return RiskAssessment{}, err
	}
	return computeAssessment(in, settings, total, rejected), nil
}

// computeAssessment is the pure scoring core: all contributions summed,
// then clamped to [0,100].
func computeAssessment(in AssessInput, s *config.Settings, historyTotal, historyRejected int) RiskAssessment {
	if in.FilesAffected < 1 {
		in.FilesAffected = 1
	}
	factors := RiskFactors{
		ArtifactTypeScore:        typeBaseScore(in.ArtifactType),
		ConfidenceScore:          confidenceContribution(in.AIConfidenceScore),
		ScopeScore:               scopeContribution(in.FilesAffected),
		HistoricalRejectionScore: historicalContribution(historyTotal, historyRejected),
	}
	score := factors.ArtifactTypeScore + factors.ConfidenceScore + factors.ScopeScore + factors.HistoricalRejectionScore
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	level := MapScoreToLevel(score, s)
	return RiskAssessment{
		RiskScore:            score,
		RiskFactors:          factors,
		RiskLevel:            level,
		ApprovalRequirements: evaluateApproval(level, in.AIConfidenceScore, s),
	}
}

func typeBaseScore(artifactType string) int {
	if base, ok := artifactTypeBaseScores[artifactType]; ok {
		return base
	}
	return unknownTypeBaseScore
}

// confidenceContribution decreases monotonically in confidence: 0 at
// confidence 100, maximum at confidence 0.
func confidenceContribution(confidence int) int {
	return int(math.Round(float64(100-confidence) * confidenceWeight))
}

// scopeContribution grows with files affected: a single file adds nothing,
// broader submissions add progressively more.
func scopeContribution(filesAffected int) int {
	switch {
	case filesAffected <= 1:
		return 0
	case filesAffected <= 5:
		return 5
	case filesAffected <= 10:
		return 10
	default:
		return 15
	}
}

// historicalContribution scales with the rejection rate of past artifacts
// from the same (project, agent, type) tuple; zero with no history.
func historicalContribution(total, rejected int) int {
	if total == 0 {
		return 0
	}
	rate := float64(rejected) / float64(total)
	return int(math.Round(rate * historicalWeight))
}

// MapScoreToLevel buckets a score using the project thresholds. Bands are
// inclusive on their upper boundary: score <= low is low, <= medium is
// medium, <= high is high, above high is critical.
func MapScoreToLevel(score int, s *config.Settings) string {
	switch {
	case score <= s.LowRiskThreshold:
		return config.RiskLow
	case score <= s.MediumRiskThreshold:
		return config.RiskMedium
	case score <= s.HighRiskThreshold:
		return config.RiskHigh
	default:
		return config.RiskCritical
	}
}

// evaluateApproval decides whether an artifact can bypass manual review.
func evaluateApproval(level string, confidence int, s *config.Settings) ApprovalRequirements {
	if !s.AutoApproveEnabled {
		return ApprovalRequirements{}
	}
	if config.SeverityRank(level) > config.SeverityRank(s.AutoApproveMaxRisk) {
		return ApprovalRequirements{}
	}
	if confidence < s.AutoApproveMinConfidence {
		return ApprovalRequirements{}
	}
	return ApprovalRequirements{
		CanAutoApprove: true,
		AutoApproveReason: fmt.Sprintf("%s risk within auto-approve limit (%s) and confidence %d%% meets minimum %d%%",
			level, s.AutoApproveMaxRisk, confidence, s.AutoApproveMinConfidence),
	}
}

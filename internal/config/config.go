package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Risk levels, ordered by severity.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

var severityRank = map[string]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// SeverityRank returns the ordering index of a risk level (-1 if unknown).
func SeverityRank(level string) int {
	rank, ok := severityRank[level]
	if !ok {
		return -1
	}
	return rank
}

// KnownLevel reports whether level is one of the four risk levels.
func KnownLevel(level string) bool {
	_, ok := severityRank[level]
	return ok
}

// Default threshold and SLA values, used whenever a project has no stored
// settings.
const (
	DefaultLowThreshold    = 25
	DefaultMediumThreshold = 50
	DefaultHighThreshold   = 75

	DefaultLowSLAHours      = 1
	DefaultMediumSLAHours   = 4
	DefaultHighSLAHours     = 24
	DefaultCriticalSLAHours = 48

	DefaultAutoApproveMinConfidence = 90
	DefaultWarningThreshold         = 75
)

// Settings models the per-project review gating configuration. One row per
// project, created lazily with defaults when absent.
type Settings struct {
	ProjectID string `yaml:"project_id" json:"project_id"`

	LowRiskThreshold    int `yaml:"low_risk_threshold" json:"low_risk_threshold"`
	MediumRiskThreshold int `yaml:"medium_risk_threshold" json:"medium_risk_threshold"`
	HighRiskThreshold   int `yaml:"high_risk_threshold" json:"high_risk_threshold"`

	LowRiskSLAHours      float64 `yaml:"low_risk_sla_hours" json:"low_risk_sla_hours"`
	MediumRiskSLAHours   float64 `yaml:"medium_risk_sla_hours" json:"medium_risk_sla_hours"`
	HighRiskSLAHours     float64 `yaml:"high_risk_sla_hours" json:"high_risk_sla_hours"`
	CriticalRiskSLAHours float64 `yaml:"critical_risk_sla_hours" json:"critical_risk_sla_hours"`

	AutoApproveEnabled       bool   `yaml:"auto_approve_enabled" json:"auto_approve_enabled"`
	AutoApproveMaxRisk       string `yaml:"auto_approve_max_risk" json:"auto_approve_max_risk"`
	AutoApproveMinConfidence int    `yaml:"auto_approve_min_confidence" json:"auto_approve_min_confidence"`

	NotifyOnSubmission bool `yaml:"notify_on_submission" json:"notify_on_submission"`
	NotifyOnApproval   bool `yaml:"notify_on_approval" json:"notify_on_approval"`
	NotifyOnRejection  bool `yaml:"notify_on_rejection" json:"notify_on_rejection"`
	NotifyOnSLAWarning bool `yaml:"notify_on_sla_warning" json:"notify_on_sla_warning"`

	SLAWarningThreshold int `yaml:"sla_warning_threshold" json:"sla_warning_threshold"`

	EscalationEnabled bool     `yaml:"escalation_enabled" json:"escalation_enabled"`
	EscalationChain   []string `yaml:"escalation_chain" json:"escalation_chain"`
}

// ValidationError marks a rejected settings write. The whole write is
// refused; nothing is persisted.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid settings: " + e.Reason
}

// Validate checks threshold ranges and strict ordering plus the remaining
// field invariants. Called on every write.
func (s *Settings) Validate() error {
	for _, t := range []struct {
		name  string
		value int
	}{
		{"low_risk_threshold", s.LowRiskThreshold},
		{"medium_risk_threshold", s.MediumRiskThreshold},
		{"high_risk_threshold", s.HighRiskThreshold},
	} {
		if t.value < 0 || t.value > 100 {
			return ValidationError{Reason: fmt.Sprintf("%s must be between 0 and 100, got %d", t.name, t.value)}
		}
	}
	if !(s.LowRiskThreshold < s.MediumRiskThreshold && s.MediumRiskThreshold < s.HighRiskThreshold) {
		return ValidationError{Reason: fmt.Sprintf("thresholds must be strictly increasing (low < medium < high), got %d/%d/%d",
			s.LowRiskThreshold, s.MediumRiskThreshold, s.HighRiskThreshold)}
	}
	for _, h := range []struct {
		name  string
		value float64
	}{
		{"low_risk_sla_hours", s.LowRiskSLAHours},
		{"medium_risk_sla_hours", s.MediumRiskSLAHours},
		{"high_risk_sla_hours", s.HighRiskSLAHours},
		{"critical_risk_sla_hours", s.CriticalRiskSLAHours},
	} {
		if h.value <= 0 {
			return ValidationError{Reason: fmt.Sprintf("%s must be positive, got %g", h.name, h.value)}
		}
	}
	if !KnownLevel(s.AutoApproveMaxRisk) {
		return ValidationError{Reason: fmt.Sprintf("auto_approve_max_risk must be a risk level, got %q", s.AutoApproveMaxRisk)}
	}
	if s.AutoApproveMinConfidence < 0 || s.AutoApproveMinConfidence > 100 {
		return ValidationError{Reason: fmt.Sprintf("auto_approve_min_confidence must be between 0 and 100, got %d", s.AutoApproveMinConfidence)}
	}
	if s.SLAWarningThreshold < 1 || s.SLAWarningThreshold > 100 {
		return ValidationError{Reason: fmt.Sprintf("sla_warning_threshold must be between 1 and 100, got %d", s.SLAWarningThreshold)}
	}
	return nil
}

// SLAHours resolves the configured deadline hours for a risk level.
// Unknown levels get the critical deadline, the conservative choice.
func (s *Settings) SLAHours(level string) float64 {
	switch level {
	case RiskLow:
		return s.LowRiskSLAHours
	case RiskMedium:
		return s.MediumRiskSLAHours
	case RiskHigh:
		return s.HighRiskSLAHours
	default:
		return s.CriticalRiskSLAHours
	}
}

// Default returns the complete default settings for a project. Never
// persisted as a side effect of reading.
func Default(projectID string) *Settings {
	return &Settings{
		ProjectID:                projectID,
		LowRiskThreshold:         DefaultLowThreshold,
		MediumRiskThreshold:      DefaultMediumThreshold,
		HighRiskThreshold:        DefaultHighThreshold,
		LowRiskSLAHours:          DefaultLowSLAHours,
		MediumRiskSLAHours:       DefaultMediumSLAHours,
		HighRiskSLAHours:         DefaultHighSLAHours,
		CriticalRiskSLAHours:     DefaultCriticalSLAHours,
		AutoApproveEnabled:       true,
		AutoApproveMaxRisk:       RiskLow,
		AutoApproveMinConfidence: DefaultAutoApproveMinConfidence,
		NotifyOnSubmission:       true,
		NotifyOnApproval:         true,
		NotifyOnRejection:        true,
		NotifyOnSLAWarning:       true,
		SLAWarningThreshold:      DefaultWarningThreshold,
		EscalationEnabled:        true,
		EscalationChain:          nil,
	}
}

// FromYAML parses and validates settings from raw YAML bytes.
func FromYAML(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid settings yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromFile reads YAML settings from the given path.
func FromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToYAML renders settings for export.
func (s *Settings) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

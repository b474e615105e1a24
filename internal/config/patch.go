package config

// Patch carries partial settings updates. Nil fields leave the current
// value untouched; the merged result is validated as a whole before any
// persistence happens.
type Patch struct {
	LowRiskThreshold    *int `yaml:"low_risk_threshold,omitempty" json:"low_risk_threshold,omitempty"`
	MediumRiskThreshold *int `yaml:"medium_risk_threshold,omitempty" json:"medium_risk_threshold,omitempty"`
	HighRiskThreshold   *int `yaml:"high_risk_threshold,omitempty" json:"high_risk_threshold,omitempty"`

	LowRiskSLAHours      *float64 `yaml:"low_risk_sla_hours,omitempty" json:"low_risk_sla_hours,omitempty"`
	MediumRiskSLAHours   *float64 `yaml:"medium_risk_sla_hours,omitempty" json:"medium_risk_sla_hours,omitempty"`
	HighRiskSLAHours     *float64 `yaml:"high_risk_sla_hours,omitempty" json:"high_risk_sla_hours,omitempty"`
	CriticalRiskSLAHours *float64 `yaml:"critical_risk_sla_hours,omitempty" json:"critical_risk_sla_hours,omitempty"`

	AutoApproveEnabled       *bool   `yaml:"auto_approve_enabled,omitempty" json:"auto_approve_enabled,omitempty"`
	AutoApproveMaxRisk       *string `yaml:"auto_approve_max_risk,omitempty" json:"auto_approve_max_risk,omitempty"`
	AutoApproveMinConfidence *int    `yaml:"auto_approve_min_confidence,omitempty" json:"auto_approve_min_confidence,omitempty"`

	NotifyOnSubmission *bool `yaml:"notify_on_submission,omitempty" json:"notify_on_submission,omitempty"`
	NotifyOnApproval   *bool `yaml:"notify_on_approval,omitempty" json:"notify_on_approval,omitempty"`
	NotifyOnRejection  *bool `yaml:"notify_on_rejection,omitempty" json:"notify_on_rejection,omitempty"`
	NotifyOnSLAWarning *bool `yaml:"notify_on_sla_warning,omitempty" json:"notify_on_sla_warning,omitempty"`

	SLAWarningThreshold *int `yaml:"sla_warning_threshold,omitempty" json:"sla_warning_threshold,omitempty"`

	EscalationEnabled *bool    `yaml:"escalation_enabled,omitempty" json:"escalation_enabled,omitempty"`
	EscalationChain   []string `yaml:"escalation_chain,omitempty" json:"escalation_chain,omitempty"`
}

// Apply merges the patch onto s in place.
func (p Patch) Apply(s *Settings) {
	if p.LowRiskThreshold != nil {
		s.LowRiskThreshold = *p.LowRiskThreshold
	}
	if p.MediumRiskThreshold != nil {
		s.MediumRiskThreshold = *p.MediumRiskThreshold
	}
	if p.HighRiskThreshold != nil {
		s.HighRiskThreshold = *p.HighRiskThreshold
	}
	if p.LowRiskSLAHours != nil {
		s.LowRiskSLAHours = *p.LowRiskSLAHours
	}
	if p.MediumRiskSLAHours != nil {
		s.MediumRiskSLAHours = *p.MediumRiskSLAHours
	}
	if p.HighRiskSLAHours != nil {
		s.HighRiskSLAHours = *p.HighRiskSLAHours
	}
	if p.CriticalRiskSLAHours != nil {
		s.CriticalRiskSLAHours = *p.CriticalRiskSLAHours
	}
	if p.AutoApproveEnabled != nil {
		s.AutoApproveEnabled = *p.AutoApproveEnabled
	}
	if p.AutoApproveMaxRisk != nil {
		s.AutoApproveMaxRisk = *p.AutoApproveMaxRisk
	}
	if p.AutoApproveMinConfidence != nil {
		s.AutoApproveMinConfidence = *p.AutoApproveMinConfidence
	}
	if p.NotifyOnSubmission != nil {
		s.NotifyOnSubmission = *p.NotifyOnSubmission
	}
	if p.NotifyOnApproval != nil {
		s.NotifyOnApproval = *p.NotifyOnApproval
	}
	if p.NotifyOnRejection != nil {
		s.NotifyOnRejection = *p.NotifyOnRejection
	}
	if p.NotifyOnSLAWarning != nil {
		s.NotifyOnSLAWarning = *p.NotifyOnSLAWarning
	}
	if p.SLAWarningThreshold != nil {
		s.SLAWarningThreshold = *p.SLAWarningThreshold
	}
	if p.EscalationEnabled != nil {
		s.EscalationEnabled = *p.EscalationEnabled
	}
	if p.EscalationChain != nil {
		s.EscalationChain = p.EscalationChain
	}
}

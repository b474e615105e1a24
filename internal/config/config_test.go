package config

import (
	"strings"
	"testing"
)

func TestDefaultSettingsValidate(t *testing.T) {
	if err := Default("proj-1").Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateThresholdOrdering(t *testing.T) {
	s := Default("proj-1")
	s.LowRiskThreshold = 50
	s.MediumRiskThreshold = 30
	s.HighRiskThreshold = 75
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "strictly increasing") {
		t.Fatalf("expected ordering error, got %v", err)
	}
}

func TestValidateThresholdRange(t *testing.T) {
	for _, v := range []int{-10, 110} {
		s := Default("proj-1")
		s.LowRiskThreshold = v
		if err := s.Validate(); err == nil {
			t.Errorf("threshold %d accepted", v)
		}
	}
}

func TestValidateSLAHoursPositive(t *testing.T) {
	s := Default("proj-1")
	s.MediumRiskSLAHours = 0
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "must be positive") {
		t.Fatalf("expected positive-hours error, got %v", err)
	}
}

func TestValidateAutoApproveMaxRisk(t *testing.T) {
	s := Default("proj-1")
	s.AutoApproveMaxRisk = "extreme"
	if err := s.Validate(); err == nil {
		t.Fatal("unknown risk level accepted")
	}
}

func TestSLAHoursUnknownLevel(t *testing.T) {
	s := Default("proj-1")
	if got := s.SLAHours("mystery"); got != float64(DefaultCriticalSLAHours) {
		t.Fatalf("unknown level got %g hours, want critical %d", got, DefaultCriticalSLAHours)
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityRank(RiskLow) >= SeverityRank(RiskCritical) {
		t.Fatal("severity order broken")
	}
	if SeverityRank("mystery") != -1 {
		t.Fatal("unknown level should rank -1")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	s := Default("proj-1")
	s.HighRiskThreshold = 80
	s.EscalationChain = []string{"qa-lead"}
	raw, err := s.ToYAML()
	if err != nil {
		t.Fatalf("to yaml: %v", err)
	}
	back, err := FromYAML(raw)
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	if back.HighRiskThreshold != 80 || len(back.EscalationChain) != 1 {
		t.Fatalf("round trip lost data: %+v", back)
	}
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	s := Default("proj-1")
	s.SLAWarningThreshold = 0
	raw, err := s.ToYAML()
	if err != nil {
		t.Fatalf("to yaml: %v", err)
	}
	if _, err := FromYAML(raw); err == nil {
		t.Fatal("invalid document accepted")
	}
}

func TestPatchApplyPartial(t *testing.T) {
	s := Default("proj-1")
	medium := 60
	warn := 80
	Patch{MediumRiskThreshold: &medium, SLAWarningThreshold: &warn}.Apply(s)
	if s.MediumRiskThreshold != 60 || s.SLAWarningThreshold != 80 {
		t.Fatalf("patched fields not applied: %+v", s)
	}
	if s.LowRiskThreshold != DefaultLowThreshold || s.HighRiskThreshold != DefaultHighThreshold {
		t.Fatalf("untouched fields changed: %+v", s)
	}
}

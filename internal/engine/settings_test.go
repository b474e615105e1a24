package engine_test

import (
	"errors"
	"testing"

	"reviewgate/internal/config"
	"reviewgate/internal/repo"
)

func intp(v int) *int { return &v }

func TestUpdateSettingsPatchMerges(t *testing.T) {
	env := newTestEnv(t)
	s, err := env.Engine.UpdateProjectSettings(env.Ctx, "proj-1", config.Patch{
		MediumRiskThreshold: intp(60),
	}, "tester")
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if s.MediumRiskThreshold != 60 {
		t.Fatalf("got medium threshold %d, want 60", s.MediumRiskThreshold)
	}
	if s.LowRiskThreshold != config.DefaultLowThreshold {
		t.Fatalf("untouched field changed: low threshold %d", s.LowRiskThreshold)
	}
	stored, err := env.Engine.GetProjectSettings(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if stored.MediumRiskThreshold != 60 {
		t.Fatalf("patch not persisted, got %d", stored.MediumRiskThreshold)
	}
}

func TestUpdateSettingsRejectedWholesale(t *testing.T) {
	env := newTestEnv(t)
	// low 80 breaks the strict ordering against the default medium of 50.
	_, err := env.Engine.UpdateProjectSettings(env.Ctx, "proj-1", config.Patch{
		LowRiskThreshold: intp(80),
	}, "tester")
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, err := env.Engine.GetProjectSettings(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if stored.LowRiskThreshold != config.DefaultLowThreshold {
		t.Fatalf("rejected write leaked: low threshold %d", stored.LowRiskThreshold)
	}
}

func TestUpdateSettingsUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.UpdateProjectSettings(env.Ctx, "ghost", config.Patch{
		MediumRiskThreshold: intp(60),
	}, "tester")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestImportSettingsReplacesWholesale(t *testing.T) {
	env := newTestEnv(t)
	doc := config.Default("proj-1")
	doc.HighRiskThreshold = 90
	doc.CriticalRiskSLAHours = 72
	doc.EscalationChain = []string{"qa-lead", "eng-manager"}
	raw, err := doc.ToYAML()
	if err != nil {
		t.Fatalf("to yaml: %v", err)
	}
	parsed, err := config.FromYAML(raw)
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	if _, err := env.Engine.ImportProjectSettings(env.Ctx, "proj-1", parsed, "tester"); err != nil {
		t.Fatalf("import: %v", err)
	}
	stored, err := env.Engine.GetProjectSettings(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if stored.HighRiskThreshold != 90 || stored.CriticalRiskSLAHours != 72 {
		t.Fatalf("import not persisted: %d/%g", stored.HighRiskThreshold, stored.CriticalRiskSLAHours)
	}
	if len(stored.EscalationChain) != 2 || stored.EscalationChain[0] != "qa-lead" {
		t.Fatalf("escalation chain not persisted: %v", stored.EscalationChain)
	}
}

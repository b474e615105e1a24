package engine_test

import (
	"strings"
	"testing"

	"reviewgate/internal/config"
	"reviewgate/internal/engine"
)

func TestMapScoreToLevelBoundaries(t *testing.T) {
	s := config.Default("proj-1")
	cases := []struct {
		score int
		level string
	}{
		{0, "low"},
		{25, "low"},
		{26, "medium"},
		{50, "medium"},
		{51, "high"},
		{75, "high"},
		{76, "critical"},
		{100, "critical"},
	}
	for _, c := range cases {
		if got := engine.MapScoreToLevel(c.score, s); got != c.level {
			t.Errorf("score %d: got %s, want %s", c.score, got, c.level)
		}
	}
}

func TestAssessRiskHighRiskScript(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
		ProjectID:         "proj-1",
		ArtifactType:      "script",
		AIConfidenceScore: 20,
		FilesAffected:     10,
		SourceAgent:       "agent-7",
	})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	want := engine.RiskFactors{
		ArtifactTypeScore:        70,
		ConfidenceScore:          24,
		ScopeScore:               10,
		HistoricalRejectionScore: 0,
	}
	if a.RiskFactors != want {
		t.Fatalf("factors: got %+v, want %+v", a.RiskFactors, want)
	}
	// 70+24+10 exceeds the scale and clamps to 100.
	if a.RiskScore != 100 || a.RiskLevel != "critical" {
		t.Fatalf("got score %d level %s", a.RiskScore, a.RiskLevel)
	}
	if a.ApprovalRequirements.CanAutoApprove {
		t.Fatal("critical artifact must not auto-approve")
	}
}

func TestAssessRiskAutoApprove(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
		ProjectID:         "proj-1",
		ArtifactType:      "test_case",
		AIConfidenceScore: 95,
		FilesAffected:     1,
		SourceAgent:       "agent-7",
	})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.RiskScore != 22 || a.RiskLevel != "low" {
		t.Fatalf("got score %d level %s, want 22 low", a.RiskScore, a.RiskLevel)
	}
	if !a.ApprovalRequirements.CanAutoApprove {
		t.Fatal("low risk at confidence 95 should auto-approve")
	}
	if a.ApprovalRequirements.AutoApproveReason == "" {
		t.Fatal("auto-approval should carry a reason")
	}
}

func TestAssessRiskConfidenceRange(t *testing.T) {
	env := newTestEnv(t)
	for _, conf := range []int{-1, 101} {
		_, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
			ProjectID:         "proj-1",
			ArtifactType:      "test_case",
			AIConfidenceScore: conf,
			FilesAffected:     1,
		})
		if err == nil || !strings.Contains(err.Error(), "between 0 and 100") {
			t.Errorf("confidence %d: expected range error, got %v", conf, err)
		}
	}
}

func TestAssessRiskScopeTiers(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		files int
		scope int
	}{
		{1, 0},
		{3, 5},
		{8, 10},
		{20, 15},
	}
	for _, c := range cases {
		a, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
			ProjectID:         "proj-1",
			ArtifactType:      "test_case",
			AIConfidenceScore: 100,
			FilesAffected:     c.files,
		})
		if err != nil {
			t.Fatalf("assess files=%d: %v", c.files, err)
		}
		if a.RiskFactors.ScopeScore != c.scope {
			t.Errorf("files %d: got scope %d, want %d", c.files, a.RiskFactors.ScopeScore, c.scope)
		}
	}
}

func TestAssessRiskUnknownTypeFallback(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
		ProjectID:         "proj-1",
		ArtifactType:      "diagram",
		AIConfidenceScore: 100,
		FilesAffected:     1,
	})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.RiskFactors.ArtifactTypeScore != 40 || a.RiskLevel != "medium" {
		t.Fatalf("got base %d level %s, want 40 medium", a.RiskFactors.ArtifactTypeScore, a.RiskLevel)
	}
}

func TestAssessRiskHistoricalPenalty(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		res := env.Submit(t, "test_case", 50, 1)
		if _, err := env.Engine.RejectArtifact(env.Ctx, res.Artifact.ID, "reviewer-1", "flaky"); err != nil {
			t.Fatalf("reject: %v", err)
		}
	}
	a, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
		ProjectID:         "proj-1",
		ArtifactType:      "test_case",
		AIConfidenceScore: 50,
		FilesAffected:     1,
		SourceAgent:       "agent-7",
	})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	// 100% rejection rate for the (project, agent, type) tuple adds the full
	// historical weight: 20 + 15 + 0 + 20 = 55.
	if a.RiskFactors.HistoricalRejectionScore != 20 {
		t.Fatalf("got historical %d, want 20", a.RiskFactors.HistoricalRejectionScore)
	}
	if a.RiskScore != 55 || a.RiskLevel != "high" {
		t.Fatalf("got score %d level %s, want 55 high", a.RiskScore, a.RiskLevel)
	}

	// A different agent has no history and stays medium.
	b, err := env.Engine.AssessRisk(env.Ctx, engine.AssessInput{
		ProjectID:         "proj-1",
		ArtifactType:      "test_case",
		AIConfidenceScore: 50,
		FilesAffected:     1,
		SourceAgent:       "agent-fresh",
	})
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if b.RiskFactors.HistoricalRejectionScore != 0 || b.RiskLevel != "medium" {
		t.Fatalf("fresh agent: got historical %d level %s", b.RiskFactors.HistoricalRejectionScore, b.RiskLevel)
	}
}

func TestAutoApproveDisabledBySettings(t *testing.T) {
	env := newTestEnv(t)
	disabled := false
	if _, err := env.Engine.UpdateProjectSettings(env.Ctx, "proj-1", config.Patch{AutoApproveEnabled: &disabled}, "tester"); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	res := env.Submit(t, "test_case", 95, 1)
	if res.Artifact.Status != "pending_review" {
		t.Fatalf("got status %s, want pending_review", res.Artifact.Status)
	}
	if res.Tracking == nil {
		t.Fatal("manual-review artifact should get SLA tracking")
	}
}

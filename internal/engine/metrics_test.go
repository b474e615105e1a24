package engine_test

import (
	"testing"
	"time"

	"reviewgate/internal/engine"
)

func TestMetricsEmptyWindow(t *testing.T) {
	env := newTestEnv(t)
	m, err := env.Engine.GetSLAMetrics(env.Ctx, "proj-1", 30)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Total != 0 || m.ComplianceRate != 100 || m.AverageResolutionHours != 0 {
		t.Fatalf("empty window: %+v", m)
	}
}

func TestMetricsMixedOutcomes(t *testing.T) {
	env := newTestEnv(t)
	onTime := submitMedium(t, env)
	late := submitMedium(t, env)
	escalated := submitMedium(t, env)

	env.Advance(time.Hour)
	if _, err := env.Engine.ApproveArtifact(env.Ctx, onTime.Artifact.ID, "reviewer-1", ""); err != nil {
		t.Fatalf("approve on time: %v", err)
	}

	// The 4 hour medium window has long passed by +6h.
	env.Advance(5 * time.Hour)
	if _, err := env.Engine.ApproveArtifact(env.Ctx, late.Artifact.ID, "reviewer-1", ""); err != nil {
		t.Fatalf("approve late: %v", err)
	}
	if _, err := env.Engine.Escalate(env.Ctx, engine.EscalateOptions{
		ArtifactID: escalated.Artifact.ID,
		Reason:     "stalled",
		ActorID:    "reviewer-1",
	}); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if _, err := env.Engine.RejectArtifact(env.Ctx, escalated.Artifact.ID, "qa-lead", "rewrite"); err != nil {
		t.Fatalf("reject escalated: %v", err)
	}

	m, err := env.Engine.GetSLAMetrics(env.Ctx, "proj-1", 30)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Total != 3 || m.WithinSLA != 1 || m.Breached != 1 || m.Escalated != 1 {
		t.Fatalf("buckets: %+v", m)
	}
	if m.ComplianceRate != 33.33 {
		t.Fatalf("got compliance %g, want 33.33", m.ComplianceRate)
	}
	// Resolutions at 1h, 6h and 6h average to 4.33.
	if m.AverageResolutionHours != 4.33 {
		t.Fatalf("got average %g, want 4.33", m.AverageResolutionHours)
	}
}

func TestMetricsWindowExcludesOldRows(t *testing.T) {
	env := newTestEnv(t)
	old := submitMedium(t, env)
	env.Advance(time.Hour)
	if _, err := env.Engine.ApproveArtifact(env.Ctx, old.Artifact.ID, "reviewer-1", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	env.Advance(10 * 24 * time.Hour)
	m, err := env.Engine.GetSLAMetrics(env.Ctx, "proj-1", 7)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.Total != 0 {
		t.Fatalf("row outside the window counted: %+v", m)
	}
}

package engine_test

import (
	"testing"
	"time"

	"reviewgate/internal/config"
	"reviewgate/internal/engine"
)

func TestCalculateDeadlineDefaults(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		level string
		hours float64
	}{
		{"low", 1},
		{"medium", 4},
		{"high", 24},
		{"critical", 48},
		// unknown levels take the most conservative window
		{"mystery", 48},
	}
	for _, c := range cases {
		res, err := env.Engine.CalculateDeadline(env.Ctx, "proj-1", c.level)
		if err != nil {
			t.Fatalf("deadline %s: %v", c.level, err)
		}
		if res.Hours != c.hours {
			t.Errorf("%s: got %g hours, want %g", c.level, res.Hours, c.hours)
		}
		want := env.Clock.Add(time.Duration(c.hours * float64(time.Hour)))
		if !res.Deadline.Equal(want) {
			t.Errorf("%s: got deadline %v, want %v", c.level, res.Deadline, want)
		}
	}
}

// submitMedium submits a test_plan scoring 30+15+5 = 50, which lands on
// medium and a 4 hour window.
func submitMedium(t *testing.T, env *testEnv) engine.SubmitResult {
	t.Helper()
	res := env.Submit(t, "test_plan", 50, 3)
	if res.Artifact.RiskLevel != "medium" {
		t.Fatalf("fixture drifted: got level %s, want medium", res.Artifact.RiskLevel)
	}
	return res
}

func TestSLALifecycle(t *testing.T) {
	env := newTestEnv(t)
	res := submitMedium(t, env)
	id := res.Artifact.ID
	if res.Tracking == nil || res.Tracking.Status != engine.StatusWithinSLA {
		t.Fatalf("expected fresh within_sla tracking, got %+v", res.Tracking)
	}
	if res.Tracking.DeadlineHours != 4 {
		t.Fatalf("got deadline hours %g, want 4", res.Tracking.DeadlineHours)
	}

	env.Advance(2 * time.Hour)
	st, err := env.Engine.GetSLAStatus(env.Ctx, id)
	if err != nil {
		t.Fatalf("status at +2h: %v", err)
	}
	if st.Status != engine.StatusWithinSLA || st.IsOverdue || st.IsApproaching {
		t.Fatalf("at +2h: %+v", st)
	}
	if st.PercentageElapsed != 50 {
		t.Fatalf("at +2h: got %g%% elapsed, want 50", st.PercentageElapsed)
	}

	// 3 of 4 hours is the 75% warning threshold, inclusive.
	env.Advance(time.Hour)
	st, err = env.Engine.GetSLAStatus(env.Ctx, id)
	if err != nil {
		t.Fatalf("status at +3h: %v", err)
	}
	if st.Status != engine.StatusApproaching || !st.IsApproaching || st.IsOverdue {
		t.Fatalf("at +3h: %+v", st)
	}

	env.Advance(2 * time.Hour)
	st, err = env.Engine.GetSLAStatus(env.Ctx, id)
	if err != nil {
		t.Fatalf("status at +5h: %v", err)
	}
	if st.Status != engine.StatusBreached || !st.IsOverdue {
		t.Fatalf("at +5h: %+v", st)
	}
	if st.TimeRemaining != 0 {
		t.Fatalf("at +5h: time remaining %v, want 0", st.TimeRemaining)
	}

	tr, err := env.Engine.Escalate(env.Ctx, engine.EscalateOptions{
		ArtifactID:    id,
		EscalatedToID: "qa-lead",
		Reason:        "deadline blown",
		ActorID:       "reviewer-1",
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if tr.Status != engine.StatusEscalated || tr.EscalatedToID == nil || *tr.EscalatedToID != "qa-lead" {
		t.Fatalf("after escalate: %+v", tr)
	}

	// Escalated is sticky even as time keeps passing.
	env.Advance(5 * time.Hour)
	st, err = env.Engine.GetSLAStatus(env.Ctx, id)
	if err != nil {
		t.Fatalf("status after escalate: %v", err)
	}
	if st.Status != engine.StatusEscalated {
		t.Fatalf("escalated should be terminal, got %s", st.Status)
	}

	if _, err := env.Engine.ApproveArtifact(env.Ctx, id, "qa-lead", "salvaged"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	final, err := env.Engine.Repo.GetTracking(env.Ctx, id)
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if final.Status != engine.StatusEscalated || final.CompletedAt == nil {
		t.Fatalf("completion should keep escalated and stamp completed_at: %+v", final)
	}
}

func TestBreachedListedAndCompletionRemoves(t *testing.T) {
	env := newTestEnv(t)
	res := submitMedium(t, env)
	env.Advance(5 * time.Hour)
	if _, err := env.Engine.GetSLAStatus(env.Ctx, res.Artifact.ID); err != nil {
		t.Fatalf("status: %v", err)
	}
	items, total, err := env.Engine.GetBreachedSLAs(env.Ctx, "proj-1", 1, 20)
	if err != nil {
		t.Fatalf("breached list: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ArtifactID != res.Artifact.ID {
		t.Fatalf("got total %d items %+v", total, items)
	}
	if _, err := env.Engine.ApproveArtifact(env.Ctx, res.Artifact.ID, "reviewer-1", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, total, err = env.Engine.GetBreachedSLAs(env.Ctx, "proj-1", 1, 20)
	if err != nil {
		t.Fatalf("breached list after completion: %v", err)
	}
	if total != 0 {
		t.Fatalf("completed row still listed, total %d", total)
	}
}

func TestApproachingListOrderedByDeadline(t *testing.T) {
	env := newTestEnv(t)
	slow := submitMedium(t, env)
	// script at confidence 90 scores 73, a high risk 24h window
	fast := env.Submit(t, "script", 90, 1)
	if fast.Artifact.RiskLevel != "high" {
		t.Fatalf("fixture drifted: got %s, want high", fast.Artifact.RiskLevel)
	}
	items, total, err := env.Engine.GetApproachingSLAs(env.Ctx, "proj-1", 1, 20)
	if err != nil {
		t.Fatalf("approaching list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("got total %d items %d", total, len(items))
	}
	if items[0].ArtifactID != slow.Artifact.ID || items[1].ArtifactID != fast.Artifact.ID {
		t.Fatalf("expected most urgent deadline first, got %s then %s", items[0].ArtifactID, items[1].ArtifactID)
	}
}

func TestCompleteTrackingIsIdempotentAndTolerant(t *testing.T) {
	env := newTestEnv(t)
	// No tracking row at all: auto-approved artifacts have nothing to close.
	auto := env.Submit(t, "test_case", 95, 1)
	if auto.Tracking != nil {
		t.Fatal("auto-approved artifact should not be tracked")
	}
	if err := env.Engine.CompleteSLATracking(env.Ctx, auto.Artifact.ID, "tester"); err != nil {
		t.Fatalf("complete without tracking: %v", err)
	}

	res := submitMedium(t, env)
	env.Advance(time.Hour)
	if err := env.Engine.CompleteSLATracking(env.Ctx, res.Artifact.ID, "tester"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	first, err := env.Engine.Repo.GetTracking(env.Ctx, res.Artifact.ID)
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if first.Status != engine.StatusWithinSLA || first.CompletedAt == nil {
		t.Fatalf("on-time completion: %+v", first)
	}
	env.Advance(time.Hour)
	if err := env.Engine.CompleteSLATracking(env.Ctx, res.Artifact.ID, "tester"); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	second, err := env.Engine.Repo.GetTracking(env.Ctx, res.Artifact.ID)
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if *second.CompletedAt != *first.CompletedAt {
		t.Fatal("second completion must not move the completion timestamp")
	}
}

func TestCompletedTrackingIsFrozen(t *testing.T) {
	env := newTestEnv(t)
	res := submitMedium(t, env)
	id := res.Artifact.ID
	env.Advance(time.Hour)
	if _, err := env.Engine.ApproveArtifact(env.Ctx, id, "reviewer-1", ""); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Long past the original deadline; the settled row must not re-derive.
	env.Advance(10 * time.Hour)
	st, err := env.Engine.GetSLAStatus(env.Ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != engine.StatusWithinSLA || st.IsOverdue {
		t.Fatalf("settled status rewritten on read: %+v", st)
	}
	if st.PercentageElapsed != 25 {
		t.Fatalf("got %g%% elapsed, want 25 frozen at completion", st.PercentageElapsed)
	}
	tr, err := env.Engine.Repo.GetTracking(env.Ctx, id)
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if tr.Status != engine.StatusWithinSLA {
		t.Fatalf("stored status mutated to %s", tr.Status)
	}
	m, err := env.Engine.GetSLAMetrics(env.Ctx, "proj-1", 30)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.ComplianceRate != 100 || m.Breached != 0 {
		t.Fatalf("metrics corrupted by post-completion read: %+v", m)
	}

	if _, err := env.Engine.Escalate(env.Ctx, engine.EscalateOptions{ArtifactID: id, ActorID: "reviewer-1"}); err == nil {
		t.Fatal("escalating a completed record must fail")
	}
}

func TestSweepWarnsOnce(t *testing.T) {
	env := newTestEnv(t)
	res := submitMedium(t, env)
	env.Advance(3*time.Hour + 30*time.Minute)
	results, err := env.Engine.SweepSLAs(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ArtifactID != res.Artifact.ID || r.To != engine.StatusApproaching || !r.Warned {
		t.Fatalf("unexpected sweep result: %+v", r)
	}
	tr, err := env.Engine.Repo.GetTracking(env.Ctx, res.Artifact.ID)
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if tr.WarningSentAt == nil {
		t.Fatal("warning timestamp not stamped")
	}

	// Nothing changed, nothing to report.
	results, err = env.Engine.SweepSLAs(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("second sweep should be quiet, got %+v", results)
	}
}

func TestSweepHonorsWarningToggle(t *testing.T) {
	env := newTestEnv(t)
	off := false
	if _, err := env.Engine.UpdateProjectSettings(env.Ctx, "proj-1", config.Patch{NotifyOnSLAWarning: &off}, "tester"); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	res := submitMedium(t, env)
	env.Advance(3*time.Hour + 30*time.Minute)
	results, err := env.Engine.SweepSLAs(env.Ctx, "proj-1")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 1 || results[0].Warned {
		t.Fatalf("status change reported without warning, got %+v", results)
	}
	tr, err := env.Engine.Repo.GetTracking(env.Ctx, res.Artifact.ID)
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if tr.WarningSentAt != nil {
		t.Fatal("warning stamped despite notifications disabled")
	}
}

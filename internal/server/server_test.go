package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"reviewgate/internal/db"
	"reviewgate/internal/engine"
	"reviewgate/internal/migrate"
)

const testJWTSecret = "test-secret"

func newTestServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	handler, err := New(Config{
		Engine: engine.New(conn),
		Auth: AuthConfig{
			JWTSecret:              testJWTSecret,
			APIKeys:                map[string]string{"test-key": "key-actor"},
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return "http://" + ln.Addr().String()
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func asActor(actorID string) map[string]string {
	return map[string]string{"X-Actor-Id": actorID}
}

func createProject(t *testing.T, base, id string) {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, base+"/v0/projects", map[string]any{"id": id}, asActor("tester"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: status %d body %s", resp.StatusCode, data)
	}
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope %s: %v", data, err)
	}
	return env.Error
}

func TestHealthNeedsNoAuth(t *testing.T) {
	base := newTestServer(t)
	resp, data := doJSON(t, http.MethodGet, base+"/v0/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	base := newTestServer(t)
	resp, data := doJSON(t, http.MethodGet, base+"/v0/projects", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "unauthorized" {
		t.Fatalf("got code %q", e.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	base := newTestServer(t)
	resp, data := doJSON(t, http.MethodPost, base+"/v0/projects", map[string]any{"id": "qa"},
		map[string]string{"X-Api-Key": "test-key"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
}

func TestJWTAuth(t *testing.T) {
	base := newTestServer(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "jwt-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	resp, data := doJSON(t, http.MethodPost, base+"/v0/projects", map[string]any{"id": "qa"},
		map[string]string{"Authorization": "Bearer " + token})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
}

func TestProjectLifecycle(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	resp, data := doJSON(t, http.MethodGet, base+"/v0/projects/qa", nil, asActor("tester"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get project: status %d body %s", resp.StatusCode, data)
	}
	var p ProjectResponse
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if p.ID != "qa" || p.Name != "qa" {
		t.Fatalf("unexpected project %+v", p)
	}
	resp, data = doJSON(t, http.MethodGet, base+"/v0/projects/ghost", nil, asActor("tester"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("ghost project: status %d body %s", resp.StatusCode, data)
	}
}

func TestCreateProjectRequiresBody(t *testing.T) {
	base := newTestServer(t)
	resp, data := doJSON(t, http.MethodPost, base+"/v0/projects", nil, asActor("tester"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
}

func submitArtifact(t *testing.T, base, artifactType string, confidence, files int) SubmitResponse {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, base+"/v0/projects/qa/artifacts", map[string]any{
		"type":                artifactType,
		"title":               "generated " + artifactType,
		"ai_confidence_score": confidence,
		"files_affected":      files,
		"source_agent":        "agent-7",
	}, asActor("tester"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", resp.StatusCode, data)
	}
	var res SubmitResponse
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	return res
}

func TestSubmitGatesHighRisk(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	res := submitArtifact(t, base, "script", 20, 10)
	if res.Artifact.Status != "pending_review" || res.Artifact.RiskLevel != "critical" {
		t.Fatalf("artifact %+v", res.Artifact)
	}
	if res.Assessment.RiskScore != 100 {
		t.Fatalf("got score %d, want 100", res.Assessment.RiskScore)
	}
	if res.Tracking == nil || res.Tracking.Status != "within_sla" {
		t.Fatalf("tracking %+v", res.Tracking)
	}
}

func TestSubmitAutoApproves(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	res := submitArtifact(t, base, "test_case", 95, 1)
	if res.Artifact.Status != "auto_approved" || res.Artifact.ApprovedAt == nil {
		t.Fatalf("artifact %+v", res.Artifact)
	}
	if res.Tracking != nil {
		t.Fatalf("auto-approved artifact should not be tracked: %+v", res.Tracking)
	}
}

func TestApproveAndConflict(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	res := submitArtifact(t, base, "script", 20, 10)
	url := fmt.Sprintf("%s/v0/projects/qa/artifacts/%s/approve", base, res.Artifact.ID)

	resp, data := doJSON(t, http.MethodPost, url, map[string]any{"note": "looks fine"}, asActor("reviewer-1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: status %d body %s", resp.StatusCode, data)
	}
	var a ArtifactResponse
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if a.Status != "approved" || a.ReviewerID == nil || *a.ReviewerID != "reviewer-1" {
		t.Fatalf("artifact %+v", a)
	}

	resp, data = doJSON(t, http.MethodPost, url, map[string]any{}, asActor("reviewer-2"))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second approve: status %d body %s", resp.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "conflict" {
		t.Fatalf("got code %q", e.Code)
	}
}

func TestReviewScopedToProject(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	createProject(t, base, "other")
	res := submitArtifact(t, base, "script", 20, 10)

	url := fmt.Sprintf("%s/v0/projects/other/artifacts/%s/approve", base, res.Artifact.ID)
	resp, data := doJSON(t, http.MethodPost, url, map[string]any{}, asActor("intruder"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-project approve: status %d body %s", resp.StatusCode, data)
	}

	// The artifact must be untouched under its own project.
	resp, data = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/v0/projects/qa/artifacts/%s", base, res.Artifact.ID), nil, asActor("tester"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get artifact: status %d body %s", resp.StatusCode, data)
	}
	var a ArtifactResponse
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if a.Status != "pending_review" || a.ReviewerID != nil {
		t.Fatalf("cross-project review leaked a write: %+v", a)
	}

	// SLA reads and escalation honor the same scoping.
	resp, data = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/v0/projects/other/artifacts/%s/sla", base, res.Artifact.ID), nil, asActor("tester"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-project sla status: status %d body %s", resp.StatusCode, data)
	}
	resp, data = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/v0/projects/other/artifacts/%s/sla/escalate", base, res.Artifact.ID),
		map[string]any{"reason": "x"}, asActor("intruder"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-project escalate: status %d body %s", resp.StatusCode, data)
	}
}

func TestSettingsValidationError(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	resp, data := doJSON(t, http.MethodPatch, base+"/v0/projects/qa/settings",
		map[string]any{"low_risk_threshold": 80}, asActor("tester"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
	if e := decodeError(t, data); e.Code != "validation_failed" {
		t.Fatalf("got code %q", e.Code)
	}

	resp, data = doJSON(t, http.MethodGet, base+"/v0/projects/qa/settings", nil, asActor("tester"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get settings: status %d body %s", resp.StatusCode, data)
	}
	var s struct {
		LowRiskThreshold int `json:"low_risk_threshold"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if s.LowRiskThreshold != 25 {
		t.Fatalf("rejected write leaked: %d", s.LowRiskThreshold)
	}
}

func TestUnknownArtifactSLA(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	resp, data := doJSON(t, http.MethodGet, base+"/v0/projects/qa/artifacts/nope/sla", nil, asActor("tester"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
}

func TestSweepEmptyReturnsArray(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	resp, data := doJSON(t, http.MethodPost, base+"/v0/projects/qa/sla/sweep", nil, asActor("tester"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
	var res []engine.SweepResult
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode sweep: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Fatalf("want empty array, got %v", res)
	}
}

func TestEventsListed(t *testing.T) {
	base := newTestServer(t)
	createProject(t, base, "qa")
	submitArtifact(t, base, "script", 20, 10)
	resp, data := doJSON(t, http.MethodGet, base+"/v0/projects/qa/events?type=artifact.submitted", nil, asActor("tester"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d body %s", resp.StatusCode, data)
	}
	var events []EventResponse
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "artifact.submitted" {
		t.Fatalf("events %+v", events)
	}
	if events[0].Payload["risk_level"] != "critical" {
		t.Fatalf("payload %+v", events[0].Payload)
	}
}

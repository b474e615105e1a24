package reviewgatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal ReviewGate HTTP API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Artifact represents the API artifact model.
type Artifact struct {
	ID                string  `json:"id"`
	ProjectID         string  `json:"project_id"`
	Type              string  `json:"type"`
	Title             string  `json:"title"`
	Status            string  `json:"status"`
	AIConfidenceScore int     `json:"ai_confidence_score"`
	FilesAffected     int     `json:"files_affected"`
	SourceAgent       string  `json:"source_agent"`
	RiskScore         int     `json:"risk_score"`
	RiskLevel         string  `json:"risk_level"`
	SubmittedAt       string  `json:"submitted_at"`
	ApprovedAt        *string `json:"approved_at,omitempty"`
	RejectedAt        *string `json:"rejected_at,omitempty"`
	ReviewerID        *string `json:"reviewer_id,omitempty"`
	ReviewNote        *string `json:"review_note,omitempty"`
}

// Assessment is a risk scoring result.
type Assessment struct {
	RiskScore int    `json:"risk_score"`
	RiskLevel string `json:"risk_level"`
	Factors   struct {
		ArtifactTypeScore        int `json:"artifact_type_score"`
		ConfidenceScore          int `json:"confidence_score"`
		ScopeScore               int `json:"scope_score"`
		HistoricalRejectionScore int `json:"historical_rejection_score"`
	} `json:"factors"`
	CanAutoApprove    bool   `json:"can_auto_approve"`
	AutoApproveReason string `json:"auto_approve_reason,omitempty"`
}

// SLATracking is the per-artifact deadline record.
type SLATracking struct {
	ArtifactID    string  `json:"artifact_id"`
	ProjectID     string  `json:"project_id"`
	RiskLevel     string  `json:"risk_level"`
	DeadlineHours float64 `json:"deadline_hours"`
	Deadline      string  `json:"deadline"`
	Status        string  `json:"status"`
	EscalatedToID *string `json:"escalated_to_id,omitempty"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

// SubmitResult pairs the stored artifact with its assessment.
type SubmitResult struct {
	Artifact   Artifact     `json:"artifact"`
	Assessment Assessment   `json:"assessment"`
	Tracking   *SLATracking `json:"tracking,omitempty"`
}

// SLAStatus is the live SLA view of an artifact.
type SLAStatus struct {
	ArtifactID           string  `json:"artifact_id"`
	RiskLevel            string  `json:"risk_level"`
	Status               string  `json:"status"`
	IsOverdue            bool    `json:"is_overdue"`
	IsApproaching        bool    `json:"is_approaching"`
	TimeRemainingSeconds float64 `json:"time_remaining_seconds"`
	PercentageElapsed    float64 `json:"percentage_elapsed"`
	Deadline             string  `json:"deadline"`
}

// SLAMetrics is the compliance rollup over a trailing window.
type SLAMetrics struct {
	Total                  int     `json:"total"`
	WithinSLA              int     `json:"within_sla"`
	Breached               int     `json:"breached"`
	Escalated              int     `json:"escalated"`
	ComplianceRate         float64 `json:"compliance_rate"`
	AverageResolutionHours float64 `json:"average_resolution_hours"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// SubmitArtifact submits an artifact for scoring and review gating.
func (c *Client) SubmitArtifact(ctx context.Context, artifactType, title string, confidence, filesAffected int, sourceAgent string) (SubmitResult, error) {
	body := map[string]any{
		"type":                artifactType,
		"title":               title,
		"ai_confidence_score": confidence,
		"files_affected":      filesAffected,
		"source_agent":        sourceAgent,
	}
	var resp SubmitResult
	err := c.do(ctx, http.MethodPost, c.projectPath("artifacts"), body, &resp)
	return resp, err
}

// Assess scores an artifact without persisting anything.
func (c *Client) Assess(ctx context.Context, artifactType string, confidence, filesAffected int, sourceAgent string) (Assessment, error) {
	body := map[string]any{
		"type":                artifactType,
		"ai_confidence_score": confidence,
		"files_affected":      filesAffected,
		"source_agent":        sourceAgent,
	}
	var resp Assessment
	err := c.do(ctx, http.MethodPost, c.projectPath("assess"), body, &resp)
	return resp, err
}

// Approve records a human approval.
func (c *Client) Approve(ctx context.Context, artifactID, note string) (Artifact, error) {
	return c.review(ctx, artifactID, "approve", note)
}

// Reject records a human rejection.
func (c *Client) Reject(ctx context.Context, artifactID, note string) (Artifact, error) {
	return c.review(ctx, artifactID, "reject", note)
}

func (c *Client) review(ctx context.Context, artifactID, action, note string) (Artifact, error) {
	var resp Artifact
	endpoint := c.projectPath(fmt.Sprintf("artifacts/%s/%s", url.PathEscape(artifactID), action))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"note": note}, &resp)
	return resp, err
}

// GetArtifact fetches an artifact by id.
func (c *Client) GetArtifact(ctx context.Context, artifactID string) (Artifact, error) {
	var resp Artifact
	endpoint := c.projectPath(fmt.Sprintf("artifacts/%s", url.PathEscape(artifactID)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SLAStatus returns the live SLA status for an artifact.
func (c *Client) SLAStatus(ctx context.Context, artifactID string) (SLAStatus, error) {
	var resp SLAStatus
	endpoint := c.projectPath(fmt.Sprintf("artifacts/%s/sla", url.PathEscape(artifactID)))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Metrics returns the SLA compliance rollup for the trailing window.
func (c *Client) Metrics(ctx context.Context, days int) (SLAMetrics, error) {
	endpoint := c.projectPath("sla/metrics")
	if days > 0 {
		endpoint = fmt.Sprintf("%s?days=%d", endpoint, days)
	}
	var resp SLAMetrics
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := c.projectPath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

package engine

import (
	"context"
	"math"
	"time"
)

// SLAMetrics is the read-only rollup over resolved tracking records in a
// trailing window.
type SLAMetrics struct {
	Total                  int     `json:"total"`
	WithinSLA              int     `json:"within_sla"`
	Breached               int     `json:"breached"`
	Escalated              int     `json:"escalated"`
	ComplianceRate         float64 `json:"compliance_rate"`
	AverageResolutionHours float64 `json:"average_resolution_hours"`
}

// GetSLAMetrics aggregates resolved tracking rows for a project over the
// trailing window. No data means trivially compliant, not a failure.
func (e Engine) GetSLAMetrics(ctx context.Context, projectID string, days int) (SLAMetrics, error) {
	if days <= 0 {
		days = 30
	}
	since := e.now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	rows, err := e.Repo.ListResolvedTracking(ctx, projectID, since)
	if err != nil {
		return SLAMetrics{}, err
	}
	m := SLAMetrics{Total: len(rows), ComplianceRate: 100}
	var resolutionSum float64
	var resolved int
	for _, r := range rows {
		switch r.Status {
		case StatusWithinSLA:
			m.WithinSLA++
		case StatusBreached:
			m.Breached++
		case StatusEscalated:
			m.Escalated++
		}
		submitted, err1 := time.Parse(time.RFC3339, r.SubmittedAt)
		resolvedAt, err2 := time.Parse(time.RFC3339, r.ResolvedAt)
		if err1 == nil && err2 == nil {
			resolutionSum += resolvedAt.Sub(submitted).Hours()
			resolved++
		}
	}
	if m.Total > 0 {
		m.ComplianceRate = roundTo(float64(m.WithinSLA)/float64(m.Total)*100, 2)
	}
	if resolved > 0 {
		m.AverageResolutionHours = roundTo(resolutionSum/float64(resolved), 2)
	}
	return m, nil
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

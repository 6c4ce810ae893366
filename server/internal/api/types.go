package api

import "github.com/quietmark/quietmark/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	PageCount             int     `json:"page_count"`
	MeanScore             float64 `json:"mean_score"`
	GoodCount             int     `json:"good_count"`
	NeedsImprovementCount int     `json:"needs_improvement_count"`
	PoorCount             int     `json:"poor_count"`
	FailedCount           int     `json:"failed_count"`
	ActiveAlertCount      int     `json:"active_alert_count"`
}

// PageResponse is one page's latest audit in list and detail responses.
type PageResponse struct {
	types.AuditRecord
	LastSeen string `json:"last_seen"` // RFC3339
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the body of
// every WebSocket broadcast.
type SnapshotResponse struct {
	Pages       []PageResponse `json:"pages"`
	GeneratedAt string         `json:"generated_at"` // RFC3339
}

// ingestResponse acknowledges one accepted audit record.
type ingestResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

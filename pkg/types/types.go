package types

import "time"

// Rating constants derived from the audit score.
const (
	RatingGood             = "good"
	RatingNeedsImprovement = "needs_improvement"
	RatingPoor             = "poor"
)

// Window is one quiet window on the trace's absolute timeline, in
// milliseconds. Included in records for diagnostic consumers.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Diagnostics carries the full quiet-window match detail behind a record's
// headline numbers: the accepted pair plus every candidate window that
// survived filtering, and the derived timestamps.
type Diagnostics struct {
	CPUQuietPeriod      Window   `json:"cpu_quiet_period"`
	NetworkQuietPeriod  Window   `json:"network_quiet_period"`
	CPUQuietPeriods     []Window `json:"cpu_quiet_periods"`
	NetworkQuietPeriods []Window `json:"network_quiet_periods"`

	// TimestampMs is the absolute trace timestamp at which the page became
	// consistently interactive.
	TimestampMs float64 `json:"timestamp_ms"`

	// TimeInMs is TimestampMs relative to navigation start.
	TimeInMs float64 `json:"time_in_ms"`
}

// AuditRecord is the JSON wire format for one completed audit.
// Field names are snake_case on the wire.
type AuditRecord struct {
	// ID uniquely identifies this audit run.
	ID string `json:"id"`

	// PageURL is the audited page. The server keys its store on this.
	PageURL string `json:"page_url"`

	// AuditedAt is when the agent produced the record (RFC3339 via JSON).
	AuditedAt time.Time `json:"audited_at"`

	// Score is the 0-100 interactivity score; -1 when the audit failed.
	Score int `json:"score"`

	// Rating buckets the score: good | needs_improvement | poor.
	Rating string `json:"rating"`

	// RawValue is the elapsed milliseconds from navigation start to the
	// consistently-interactive point.
	RawValue float64 `json:"raw_value"`

	// DisplayValue is the human-readable elapsed time, e.g. "8,130 ms".
	DisplayValue string `json:"display_value"`

	// OptimalValue is the fixed target the score curve is calibrated to.
	OptimalValue string `json:"optimal_value"`

	// ErrorMessage is non-empty when the trace could not support the
	// metric (missing paint marker, no mutual quiet window).
	ErrorMessage string `json:"error_message,omitempty"`

	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}

// RatingFor maps a 0-100 score to a named rating bucket.
func RatingFor(score int) string {
	switch {
	case score >= 90:
		return RatingGood
	case score >= 50:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

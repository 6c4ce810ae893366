package quiet

// Thresholds the quiet-window search is calibrated to.
const (
	// RequiredQuietWindowMs is the minimum duration for which both the
	// network and the CPU must be simultaneously quiet.
	RequiredQuietWindowMs = 5000

	// AllowedConcurrentRequests is the number of in-flight requests the
	// network may carry while still counting as quiet.
	AllowedConcurrentRequests = 2
)

// Period is a bounded span on the trace timeline, in milliseconds.
// End is always >= Start.
type Period struct {
	Start float64
	End   float64
}

// Duration returns the period length in milliseconds.
func (p Period) Duration() float64 { return p.End - p.Start }

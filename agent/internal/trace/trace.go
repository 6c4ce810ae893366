package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// MinLongTaskMs is the minimum duration for a main-thread span to count as
// a long task. Shorter spans are treated as idle time.
const MinLongTaskMs = 50

// Timestamps are the navigation marks extracted from the trace, in absolute
// milliseconds on one consistent timeline.
type Timestamps struct {
	NavigationStart float64 `json:"navigation_start"`

	// FirstMeaningfulPaint is nil when the trace never produced the paint
	// marker. The interactivity audit cannot run without it.
	FirstMeaningfulPaint *float64 `json:"first_meaningful_paint,omitempty"`

	DOMContentLoaded float64 `json:"dom_content_loaded"`
	TraceEnd         float64 `json:"trace_end"`
}

// NetworkRequest is one observed network request. StartTime and EndTime are
// in seconds relative to navigation start.
type NetworkRequest struct {
	URL       string  `json:"url,omitempty"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Scheme    string  `json:"scheme"`
}

// Contended reports whether the request occupies a network connection.
// data: URLs and WebSockets do not represent network contention.
func (r NetworkRequest) Contended() bool {
	return r.Scheme != "data" && r.Scheme != "ws"
}

// LongTask is a main-thread busy span, in milliseconds relative to
// navigation start.
type LongTask struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Export is one complete trace export file as written by the collector.
type Export struct {
	PageURL         string           `json:"page_url"`
	Timestamps      Timestamps       `json:"timestamps"`
	NetworkRequests []NetworkRequest `json:"network_requests"`
	LongTasks       []LongTask       `json:"long_tasks"`
}

// Load reads and parses the trace export at path.
func Load(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trace: read file: %w", err)
	}

	var ex Export
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("trace: parse json: %w", err)
	}

	if err := ex.validate(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return &ex, nil
}

// validate checks structural constraints the extractors rely on.
// A missing first-meaningful-paint marker is not checked here — the audit
// reports it as its own fatal condition.
func (ex *Export) validate() error {
	if ex.PageURL == "" {
		return fmt.Errorf("page_url is required")
	}
	if ex.Timestamps.TraceEnd < ex.Timestamps.NavigationStart {
		return fmt.Errorf("trace_end %.0f precedes navigation_start %.0f",
			ex.Timestamps.TraceEnd, ex.Timestamps.NavigationStart)
	}
	for i, r := range ex.NetworkRequests {
		if r.EndTime < r.StartTime {
			return fmt.Errorf("network_requests[%d]: end_time precedes start_time", i)
		}
	}
	for i, task := range ex.LongTasks {
		if task.End < task.Start {
			return fmt.Errorf("long_tasks[%d]: end precedes start", i)
		}
	}
	return nil
}

// NormalizeLongTasks drops spans shorter than MinLongTaskMs and returns the
// remainder sorted by start time, as the CPU extractor requires.
// The input slice is not modified.
func NormalizeLongTasks(tasks []LongTask) []LongTask {
	out := make([]LongTask, 0, len(tasks))
	for _, t := range tasks {
		if t.End-t.Start >= MinLongTaskMs {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

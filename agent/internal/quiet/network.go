package quiet

import (
	"sort"

	"github.com/quietmark/quietmark/agent/internal/trace"
)

// boundary is one edge of a request's lifetime on the sweep timeline.
type boundary struct {
	time    float64
	isStart bool
}

// NetworkQuietPeriods converts the request list into the ordered sequence of
// windows during which at most AllowedConcurrentRequests requests were in
// flight. Requests that carry no network contention (data: URLs, WebSockets)
// are ignored.
//
// The sweep opens in a quiet state at time 0; if the trace also ends quiet,
// the final window is closed at ts.TraceEnd.
func NetworkQuietPeriods(requests []trace.NetworkRequest, ts trace.Timestamps) []Period {
	boundaries := make([]boundary, 0, 2*len(requests))
	for _, r := range requests {
		if !r.Contended() {
			continue
		}
		// Requests may outlive the trace. Clip their edges to the trace
		// end so no window can extend, or start, past it.
		boundaries = append(boundaries,
			boundary{time: clipTo(r.StartTime*1000, ts.TraceEnd), isStart: true},
			boundary{time: clipTo(r.EndTime*1000, ts.TraceEnd), isStart: false},
		)
	}
	sort.SliceStable(boundaries, func(i, j int) bool {
		return boundaries[i].time < boundaries[j].time
	})

	var periods []Period
	inflight := 0

	// The trace opens with zero requests in flight, so a quiet window is
	// open from time 0 until concurrency first exceeds the threshold.
	open := true
	quietStart := 0.0

	for _, b := range boundaries {
		if b.isStart {
			if inflight == AllowedConcurrentRequests {
				// Crossing above the threshold — the open window ends here.
				periods = append(periods, Period{Start: quietStart, End: b.time})
				open = false
			}
			inflight++
			continue
		}

		inflight--
		// Only the first decrement back to the threshold opens a window;
		// further decrements while already quiet must not move its start.
		if inflight <= AllowedConcurrentRequests && !open {
			open = true
			quietStart = b.time
		}
	}

	// A window reopened exactly at the trace end would be zero-width;
	// only a window with positive extent is worth reporting.
	if open && quietStart < ts.TraceEnd {
		periods = append(periods, Period{Start: quietStart, End: ts.TraceEnd})
	}
	return periods
}

func clipTo(t, max float64) float64 {
	if t > max {
		return max
	}
	return t
}

package quiet

import (
	"testing"

	"github.com/quietmark/quietmark/agent/internal/trace"
)

// req builds a contended request from start/end in seconds.
func req(start, end float64) trace.NetworkRequest {
	return trace.NetworkRequest{StartTime: start, EndTime: end, Scheme: "https"}
}

func tsWithEnd(traceEnd float64) trace.Timestamps {
	return trace.Timestamps{NavigationStart: 0, TraceEnd: traceEnd}
}

func TestNetworkQuietPeriods_NoRecords(t *testing.T) {
	got := NetworkQuietPeriods(nil, tsWithEnd(60000))

	want := []Period{{Start: 0, End: 60000}}
	assertPeriods(t, got, want)
}

func TestNetworkQuietPeriods_SchemesWithoutContention(t *testing.T) {
	// data: and ws requests must not affect the inflight count at all —
	// the output is identical to an empty record list.
	records := []trace.NetworkRequest{
		{StartTime: 1, EndTime: 50, Scheme: "data"},
		{StartTime: 2, EndTime: 55, Scheme: "ws"},
	}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	assertPeriods(t, got, []Period{{Start: 0, End: 60000}})
}

func TestNetworkQuietPeriods_TwoConcurrentStaysQuiet(t *testing.T) {
	// Two overlapping requests never exceed the allowed concurrency,
	// so the whole trace is one quiet window.
	records := []trace.NetworkRequest{req(1, 10), req(2, 20)}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	assertPeriods(t, got, []Period{{Start: 0, End: 60000}})
}

func TestNetworkQuietPeriods_ThirdRequestEndsQuiet(t *testing.T) {
	// Concurrency: 1 @1s, 2 @2s, 3 @3s (quiet ends), back to 2 @10s
	// (quiet resumes), 1 @20s, 0 @30s.
	records := []trace.NetworkRequest{req(1, 10), req(2, 20), req(3, 30)}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	want := []Period{
		{Start: 0, End: 3000},
		{Start: 10000, End: 60000},
	}
	assertPeriods(t, got, want)
}

func TestNetworkQuietPeriods_SecondBusyBurst(t *testing.T) {
	records := []trace.NetworkRequest{
		// First burst of three: busy 3s-10s.
		req(1, 10), req(2, 20), req(3, 30),
		// Second burst of three: busy 42s-50s.
		req(40, 50), req(41, 51), req(42, 52),
	}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	want := []Period{
		{Start: 0, End: 3000},
		{Start: 10000, End: 42000},
		{Start: 50000, End: 60000},
	}
	assertPeriods(t, got, want)
}

func TestNetworkQuietPeriods_TraceEndsBusy(t *testing.T) {
	// Three requests still in flight at trace end — no closing window.
	records := []trace.NetworkRequest{req(1, 100), req(2, 100), req(3, 100)}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	assertPeriods(t, got, []Period{{Start: 0, End: 3000}})
}

func TestNetworkQuietPeriods_RequestsOutliveTrace(t *testing.T) {
	// Two of three requests are still in flight at trace end. Quiet
	// resumes at 50s when the third finishes, and the closing window must
	// stop at the trace end, not at the requests' eventual end times.
	records := []trace.NetworkRequest{req(1, 100), req(2, 100), req(3, 50)}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	assertPeriods(t, got, []Period{{Start: 0, End: 3000}, {Start: 50000, End: 60000}})
}

func TestNetworkQuietPeriods_LaterDecrementsKeepStart(t *testing.T) {
	// After concurrency drops back to the threshold at 10s, the further
	// drops at 20s and 30s must not move the window start later.
	records := []trace.NetworkRequest{req(1, 10), req(2, 20), req(3, 30)}
	got := NetworkQuietPeriods(records, tsWithEnd(60000))

	if len(got) != 2 {
		t.Fatalf("periods: got %d, want 2", len(got))
	}
	if got[1].Start != 10000 {
		t.Errorf("second window start: got %.0f, want 10000", got[1].Start)
	}
}

// assertPeriods compares period slices and checks the ordering invariants
// every extractor output must satisfy.
func assertPeriods(t *testing.T, got, want []Period) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("periods: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("periods[%d]: got %+v, want %+v", i, got[i], want[i])
		}
	}
	for i, p := range got {
		if p.End < p.Start {
			t.Errorf("periods[%d]: end %.0f < start %.0f", i, p.End, p.Start)
		}
		if i > 0 && p.Start < got[i-1].Start {
			t.Errorf("periods[%d]: start %.0f before previous start %.0f", i, p.Start, got[i-1].Start)
		}
	}
}

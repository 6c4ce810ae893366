package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quietmark/quietmark/agent/internal/quiet"
	"github.com/quietmark/quietmark/agent/internal/scoring"
	"github.com/quietmark/quietmark/agent/internal/trace"
	"github.com/quietmark/quietmark/pkg/types"
)

// ErrMissingPaintMarker means the trace never recorded a first meaningful
// paint, so the interactivity metric cannot be computed from it.
var ErrMissingPaintMarker = errors.New("audit: trace has no first meaningful paint marker")

// OptimalValue is the fixed elapsed-time target the score curve rewards.
const OptimalValue = "1,700 ms"

// curve is built once — it depends only on the calibration constants.
var curve = scoring.NewCurve(scoring.Median, scoring.PointOfDiminishingReturns)

// Extended is the diagnostic payload behind a result's headline numbers.
type Extended struct {
	Match quiet.MatchResult

	// TimestampMs is the absolute trace timestamp at which the page became
	// consistently interactive.
	TimestampMs float64

	// TimeInMs is TimestampMs relative to navigation start.
	TimeInMs float64
}

// Result is one completed interactivity audit.
type Result struct {
	ID        string
	PageURL   string
	AuditedAt time.Time

	Score        int
	RawValue     float64
	DisplayValue string
	OptimalValue string

	Extended Extended
}

// Run computes the time-to-consistently-interactive metric for ex.
//
// The returned error is ErrMissingPaintMarker when the trace lacks the paint
// marker, or wraps a *quiet.NoQuietWindowError when no sustained mutual
// quiet window exists. Both mean the trace cannot support the metric.
func Run(ex *trace.Export) (*Result, error) {
	ts := ex.Timestamps
	if ts.FirstMeaningfulPaint == nil {
		return nil, ErrMissingPaintMarker
	}
	fmp := *ts.FirstMeaningfulPaint

	tasks := trace.NormalizeLongTasks(ex.LongTasks)
	cpuPeriods := quiet.CPUQuietPeriods(tasks, ts)
	networkPeriods := quiet.NetworkQuietPeriods(ex.NetworkRequests, ts)

	match, err := quiet.FindOverlappingQuietPeriods(cpuPeriods, networkPeriods, fmp)
	if err != nil {
		return nil, fmt.Errorf("audit %q: %w", ex.PageURL, err)
	}

	// The interactive point cannot precede meaningful paint or DOM
	// readiness, even if the CPU went idle earlier.
	timestamp := max3(match.CPUQuietPeriod.Start, fmp, ts.DOMContentLoaded)
	timeInMs := timestamp - ts.NavigationStart

	return &Result{
		ID:           uuid.NewString(),
		PageURL:      ex.PageURL,
		AuditedAt:    time.Now().UTC(),
		Score:        curve.Score(timeInMs),
		RawValue:     timeInMs,
		DisplayValue: formatMs(timeInMs),
		OptimalValue: OptimalValue,
		Extended: Extended{
			Match:       *match,
			TimestampMs: timestamp,
			TimeInMs:    timeInMs,
		},
	}, nil
}

// Record converts the result into the wire form shipped to the server.
func (r *Result) Record() types.AuditRecord {
	return types.AuditRecord{
		ID:           r.ID,
		PageURL:      r.PageURL,
		AuditedAt:    r.AuditedAt,
		Score:        r.Score,
		Rating:       types.RatingFor(r.Score),
		RawValue:     r.RawValue,
		DisplayValue: r.DisplayValue,
		OptimalValue: r.OptimalValue,
		Diagnostics: &types.Diagnostics{
			CPUQuietPeriod:      toWindow(r.Extended.Match.CPUQuietPeriod),
			NetworkQuietPeriod:  toWindow(r.Extended.Match.NetworkQuietPeriod),
			CPUQuietPeriods:     toWindows(r.Extended.Match.CPUQuietPeriods),
			NetworkQuietPeriods: toWindows(r.Extended.Match.NetworkQuietPeriods),
			TimestampMs:         r.Extended.TimestampMs,
			TimeInMs:            r.Extended.TimeInMs,
		},
	}
}

// ErrorRecord builds the wire record for a trace whose audit failed.
// Consumers see Score -1 and the reason in ErrorMessage.
func ErrorRecord(pageURL string, err error) types.AuditRecord {
	return types.AuditRecord{
		ID:           uuid.NewString(),
		PageURL:      pageURL,
		AuditedAt:    time.Now().UTC(),
		Score:        -1,
		Rating:       types.RatingPoor,
		OptimalValue: OptimalValue,
		ErrorMessage: err.Error(),
	}
}

func toWindow(p quiet.Period) types.Window {
	return types.Window{Start: p.Start, End: p.End}
}

func toWindows(ps []quiet.Period) []types.Window {
	out := make([]types.Window, len(ps))
	for i, p := range ps {
		out[i] = toWindow(p)
	}
	return out
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

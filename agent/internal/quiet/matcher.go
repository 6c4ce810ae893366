package quiet

import "fmt"

// MatchResult is the earliest mutually-quiet pair, retained together with
// the full filtered candidate lists for diagnostics.
type MatchResult struct {
	CPUQuietPeriod     Period
	NetworkQuietPeriod Period

	CPUQuietPeriods     []Period
	NetworkQuietPeriods []Period
}

// NoQuietWindowError reports that no CPU/network window pair overlapped for
// the required duration. Culprit names the domain whose candidates ran out
// first: "Network" or "CPU".
type NoQuietWindowError struct {
	Culprit string
}

func (e *NoQuietWindowError) Error() string {
	return fmt.Sprintf("no %s quiet period of at least %d ms found after first meaningful paint",
		e.Culprit, RequiredQuietWindowMs)
}

// FindOverlappingQuietPeriods returns the earliest pair of one CPU and one
// network quiet window that are simultaneously quiet for at least
// RequiredQuietWindowMs, considering only windows that end after
// fmp + RequiredQuietWindowMs.
//
// Both inputs must be sorted ascending by start, which the extractors
// guarantee by construction. The search is a greedy synchronized advance
// over the two lists: a discarded window can never be the limiting one for
// any later candidate, because the other list's starts only move forward.
func FindOverlappingQuietPeriods(cpu, network []Period, fmp float64) (*MatchResult, error) {
	cpuQueue := filterCandidates(cpu, fmp)
	networkQueue := filterCandidates(network, fmp)

	cpuIdx, netIdx := 0, 0
	for cpuIdx < len(cpuQueue) && netIdx < len(networkQueue) {
		cpuCandidate := cpuQueue[cpuIdx]
		netCandidate := networkQueue[netIdx]

		if cpuCandidate.Start >= netCandidate.Start {
			// The CPU window starts inside (or at the start of) the network
			// window, so the network window must stay quiet for the full
			// required duration measured from the CPU window's start.
			if netCandidate.End >= cpuCandidate.Start+RequiredQuietWindowMs {
				return &MatchResult{
					CPUQuietPeriod:      cpuCandidate,
					NetworkQuietPeriod:  netCandidate,
					CPUQuietPeriods:     cpuQueue,
					NetworkQuietPeriods: networkQueue,
				}, nil
			}
			netIdx++
			continue
		}

		if cpuCandidate.End >= netCandidate.Start+RequiredQuietWindowMs {
			return &MatchResult{
				CPUQuietPeriod:      cpuCandidate,
				NetworkQuietPeriod:  netCandidate,
				CPUQuietPeriods:     cpuQueue,
				NetworkQuietPeriods: networkQueue,
			}, nil
		}
		cpuIdx++
	}

	// Blame the domain that ran out of candidates while the other still
	// had one to offer.
	culprit := "CPU"
	if cpuIdx < len(cpuQueue) {
		culprit = "Network"
	}
	return nil, &NoQuietWindowError{Culprit: culprit}
}

// filterCandidates keeps windows long enough to satisfy the required quiet
// duration and ending late enough to matter after first meaningful paint.
func filterCandidates(periods []Period, fmp float64) []Period {
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		if p.End > fmp+RequiredQuietWindowMs && p.Duration() >= RequiredQuietWindowMs {
			out = append(out, p)
		}
	}
	return out
}

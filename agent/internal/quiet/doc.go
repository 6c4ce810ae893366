// Package quiet extracts quiet periods from a page-load trace and finds the
// earliest moment at which network and CPU were simultaneously quiet for a
// sustained window.
//
// network.go sweeps request start/end boundaries and emits windows where the
// number of in-flight requests stays at or below AllowedConcurrentRequests.
// cpu.go inverts the long-task sequence into main-thread idle windows.
// matcher.go runs a synchronized two-pointer match over both window lists
// and returns the earliest pair that overlaps for RequiredQuietWindowMs.
//
// All windows are in milliseconds on the trace's absolute timeline.
package quiet

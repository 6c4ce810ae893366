// Package audit computes the time-to-consistently-interactive metric for one
// trace export: it extracts network and CPU quiet windows, matches the
// earliest sustained overlap after first meaningful paint, and scores the
// elapsed time on the shared log-normal curve.
package audit

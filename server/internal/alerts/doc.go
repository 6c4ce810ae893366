// Package alerts evaluates threshold rules against incoming audit records
// and delivers webhook notifications when pages regress. Rules fire per
// page, honor cooldowns, and resolve automatically once the condition
// clears.
package alerts

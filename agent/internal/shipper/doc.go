// Package shipper buffers audit records and delivers them to
// quietmark-server over HTTP. Delivery survives server restarts: records are
// re-queued on transient failures and retried with exponential backoff,
// while permanently rejected records are logged and discarded.
package shipper

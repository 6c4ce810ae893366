// Package store keeps the latest audit record per page in memory, evicting
// pages that have not been re-audited within the configured TTL.
package store

// Package auth provides API-key authentication middleware for the ingest
// endpoints.
package auth

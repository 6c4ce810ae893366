// Package types defines shared Go types used by both the agent and server.
// AuditRecord is the canonical wire representation of one completed
// interactivity audit, shipped by the agent and stored by the server.
package types

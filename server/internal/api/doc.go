// Package api serves the REST surface: audit ingest from agents and
// read-only queries for dashboards. Responses are JSON with snake_case
// fields; snapshot building is shared with the WebSocket hub.
package api

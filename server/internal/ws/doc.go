// Package ws streams live audit snapshots to dashboard clients over
// WebSocket. A single Hub broadcasts the current page scores and any firing
// alerts to every connected client on a fixed interval, so dashboards stay
// current without polling the REST API.
package ws

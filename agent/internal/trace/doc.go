// Package trace defines the structured page-load trace export the agent
// consumes: navigation timestamps, network request records, and main-thread
// long tasks. It loads exports from JSON files and normalizes the long-task
// sequence before the quiet-period extractors run.
package trace

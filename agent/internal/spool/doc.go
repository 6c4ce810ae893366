// Package spool watches a directory for trace export files, audits each new
// export, and hands the resulting record to the shipper. Exports already
// present at startup are processed once before the watch begins.
package spool

// Package config loads and validates the server configuration file: HTTP
// port, client authentication, audit-record retention, and alerting rules.
package config

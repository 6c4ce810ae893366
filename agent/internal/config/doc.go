// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent} — config tree parsed from YAML
//   - AgentConfig — server_endpoint, spool_dir, buffer_size, server_auth
//   - AuthConfig — mode (apikey|none), header, key_env; Key() resolves the
//     secret from an environment variable so it never lives in the file
//
// Load(path) reads the YAML file, applies defaults (buffer 256, header
// x-api-key), then validates required fields and enums.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename→create pattern
// used by atomic-save editors by re-adding the watch after each reload.
package config

// Package config loads the feeder configuration file.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/feeder/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// # TOML Format
//
//	api_base = "https://feeding.example.org"
//	api_token = "..."
//	state_dir = "~/.local/state/feeder"
//	poll_wait = "25s"
//	request_rate = 10
//	admin_bind = "127.0.0.1:9190"
//	log_level = "info"
//
// Every field is optional. String values are trimmed and state_dir gets
// tilde expansion. An empty admin_bind leaves the admin HTTP server off.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML syntax errors and a poll_wait that is not a
// positive Go duration. A missing file is not an error.
package config

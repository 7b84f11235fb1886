// Package config loads honeywatch configuration.
//
// # Resolution Order
//
//  1. Built-in defaults (see Default)
//  2. The TOML file given by --config, or ~/.config/honeywatch/config.toml;
//     a missing file is not an error
//  3. HONEYWATCH_* environment variables
//  4. Command-line flags, applied by the caller before Validate
//
// # TOML Format
//
//	api_url = "http://${HOST_IP}:8000"
//	port = 8000
//	poll_interval = "10s"
//	request_timeout = "5s"
//	record_limit = 100
//	sticky_endpoint = false
//	backoff = false
//	backoff_max = "5m"
//	status_addr = "127.0.0.1:9100"
//	log_file = "~/.local/state/honeywatch/honeywatch.log"
//	log_level = "info"
//
// Durations use Go syntax. A malformed api_url is accepted here and skipped
// by the endpoint resolver, so a typo degrades to the built-in candidates
// instead of preventing startup.
package config

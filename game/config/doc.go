// Package config loads server settings.
//
// Settings come from three layers, later layers winning:
//   - built-in defaults (Default)
//   - an optional YAML file (Load)
//   - REFEREE_* environment variables (ParseEnv), e.g. REFEREE_PORT or
//     REFEREE_ALLOWED_ORIGINS as a comma-separated list
//   - command-line flags and environment variables, applied by main
//
// Example settings file:
//
//	host: 0.0.0.0
//	port: 8080
//	viewer_name: viewer
//	default_seconds_per_turn: 2
//	max_message_size: 4096
//	send_buffer: 64
//	allowed_origins:
//	  - https://board.example.com
//
// Unknown keys are rejected so that typos surface at startup.
package config

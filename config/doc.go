// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, logging, and per-breaker overrides applied on top
// of the built-in dependency profile table.
package config

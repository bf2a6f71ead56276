// Package config loads runtime configuration from TOML.
package config

// Package config loads and validates the TOML configuration shared by the
// faceframed daemon and the faceframe CLI.
package config

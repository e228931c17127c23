// Package logging configures slog handlers for the daemon and CLI and
// provides shared attribute constructors so log fields stay consistent
// across components.
package logging

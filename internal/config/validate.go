package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate reports configuration values the daemon cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		problems = append(problems, "paths.runtime_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Worker.Binary == "" {
		problems = append(problems, "worker.binary must not be empty")
	}
	if c.Worker.StopGraceSeconds < 0 {
		problems = append(problems, "worker.stop_grace_seconds must not be negative")
	}
	if c.Watcher.DebounceSeconds < 0 {
		problems = append(problems, "watcher.debounce_seconds must not be negative")
	}
	if bind := strings.TrimSpace(c.Paths.AssetBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			problems = append(problems, fmt.Sprintf("paths.asset_bind %q is not host:port", bind))
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not console or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

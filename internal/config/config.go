package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	// RuntimeDir holds the daemon socket and lock file.
	RuntimeDir string `toml:"runtime_dir"`
	// LogDir holds the daemon log and the job history database.
	LogDir string `toml:"log_dir"`
	// LibraryDir is the photo folder selected at daemon startup. Optional;
	// a folder can also be selected per scan from the CLI.
	LibraryDir string `toml:"library_dir"`
	// AssetBind is the listen address of the thumbnail/photo asset server.
	// Empty disables the asset server.
	AssetBind string `toml:"asset_bind"`
}

// Worker contains settings for the face detection worker process.
type Worker struct {
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
	// DefaultProvider is used when a scan does not name an execution provider.
	DefaultProvider string `toml:"default_provider"`
	// StopGraceSeconds is how long to wait after SIGTERM before killing.
	StopGraceSeconds int `toml:"stop_grace_seconds"`
}

// Watcher contains settings for automatic rescans of the library folder.
type Watcher struct {
	Enabled         bool `toml:"enabled"`
	DebounceSeconds int  `toml:"debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the FaceFrame host.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Worker  Worker  `toml:"worker"`
	Watcher Watcher `toml:"watcher"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/faceframe/config.toml")
}

// Load locates, parses, and validates a configuration file. When path is
// empty the default location is used; a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RuntimeDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.RuntimeDir, "faceframed.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.RuntimeDir, "faceframed.lock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "faceframed.log")
}

// HistoryDBPath returns the job history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.RuntimeDir, &c.Paths.LogDir, &c.Paths.LibraryDir} {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Worker.Binary = strings.TrimSpace(c.Worker.Binary)
	c.Worker.DefaultProvider = strings.TrimSpace(c.Worker.DefaultProvider)
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

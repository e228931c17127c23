package config

import (
	"os"
	"path/filepath"
)

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			RuntimeDir: defaultStateDir("run"),
			LogDir:     defaultStateDir("log"),
			AssetBind:  "127.0.0.1:8471",
		},
		Worker: Worker{
			Binary:           "faceframe-worker",
			DefaultProvider:  "CPUExecutionProvider",
			StopGraceSeconds: 5,
		},
		Watcher: Watcher{
			Enabled:         false,
			DebounceSeconds: 2,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultStateDir(kind string) string {
	if base, ok := os.LookupEnv("XDG_STATE_HOME"); ok && base != "" {
		return filepath.Join(base, "faceframe", kind)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "faceframe", kind)
	}
	return filepath.Join(home, ".local", "state", "faceframe", kind)
}

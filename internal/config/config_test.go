package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Worker.Binary != "faceframe-worker" {
		t.Fatalf("unexpected default worker binary %q", cfg.Worker.Binary)
	}
	if cfg.Worker.DefaultProvider != "CPUExecutionProvider" {
		t.Fatalf("unexpected default provider %q", cfg.Worker.DefaultProvider)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("unexpected default log level %q", cfg.Logging.Level)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
runtime_dir = "` + filepath.Join(dir, "run") + `"
log_dir = "` + filepath.Join(dir, "log") + `"
asset_bind = ""

[worker]
binary = "/opt/faceframe/worker"
stop_grace_seconds = 10

[watcher]
enabled = true
debounce_seconds = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Worker.Binary != "/opt/faceframe/worker" {
		t.Fatalf("worker binary not overridden: %q", cfg.Worker.Binary)
	}
	if !cfg.Watcher.Enabled || cfg.Watcher.DebounceSeconds != 3 {
		t.Fatalf("watcher settings not applied: %+v", cfg.Watcher)
	}
	if got := cfg.SocketPath(); !strings.HasSuffix(got, "faceframed.sock") {
		t.Fatalf("unexpected socket path %q", got)
	}
}

func TestLoadRejectsBadAssetBind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[paths]\nasset_bind = \"not-an-address\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for malformed asset_bind")
	}
}

func TestValidateRejectsEmptyWorkerBinary(t *testing.T) {
	cfg := Default()
	cfg.Worker.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty worker binary")
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("sample config did not load: %v", err)
	}
}

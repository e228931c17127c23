package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteImage drops a fake image file into dir and returns its path. The
// content is not a decodable image; folder-level code only looks at names.
func WriteImage(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create image dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not-really-a-jpeg"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

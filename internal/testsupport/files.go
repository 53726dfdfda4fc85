package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteMarker writes content to path, creating parent directories. An empty
// content string leaves a zero-byte marker, which is how upstream tools
// signal a request.
func WriteMarker(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadMarker returns the marker content, failing the test when it is absent.
func ReadMarker(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read marker %s: %v", path, err)
	}
	return string(data)
}

package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"signagerec/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The state and log directories are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Content.URL = "http://signage.test/tv"
	cfgVal.Display.ID = ":99"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.History.Path = filepath.Join(base, "history.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithContentURL overrides the slideshow URL.
func WithContentURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Content.URL = url
	}
}

// WithoutHistory disables the capture journal.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg, ffprobe and
// google-chrome are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "google-chrome"}
		}
		for _, name := range names {
			WriteScript(b.t, filepath.Join(b.baseDir, "bin"), name, "exit 0")
		}
		b.t.Setenv("PATH", filepath.Join(b.baseDir, "bin")+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteScript writes an executable shell script named name into dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// Touch creates the named marker inside the config's state directory.
func Touch(t testing.TB, cfg *config.Config, name string) string {
	t.Helper()
	path := cfg.MarkerPath(name)
	WriteMarker(t, path, "")
	return path
}

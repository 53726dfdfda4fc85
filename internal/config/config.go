package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Markers names the marker files and output artifact inside Paths.StateDir.
type Markers struct {
	Start  string `toml:"start"`
	Busy   string `toml:"busy"`
	Done   string `toml:"done"`
	Failed string `toml:"failed"`
	Lock   string `toml:"lock"`
	Output string `toml:"output"`
}

// Content describes the slideshow page the browser renders.
type Content struct {
	URL string `toml:"url"`
	// DurationSelector locates the hidden field holding the playback length in seconds.
	DurationSelector string `toml:"duration_selector"`
	// DurationWait bounds the wait for DurationSelector to appear (seconds).
	DurationWait int `toml:"duration_wait"`
	// NavigationTimeout bounds navigation until network idle (seconds, 0 disables).
	NavigationTimeout int    `toml:"navigation_timeout"`
	CacheBustParam    string `toml:"cache_bust_param"`
}

// Display contains the virtual framebuffer shared by browser and encoder.
type Display struct {
	ID     string `toml:"id"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Browser contains Chrome launch settings.
type Browser struct {
	ExecPath      string   `toml:"exec_path"`
	LaunchTimeout int      `toml:"launch_timeout"`
	ExtraFlags    []string `toml:"extra_flags"`
}

// Capture contains ffmpeg screen-grab settings.
type Capture struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	Framerate     int    `toml:"framerate"`
	Codec         string `toml:"codec"`
	PixelFormat   string `toml:"pixel_format"`
	LogLevel      string `toml:"log_level"`
	// GraceSeconds is added to the capture duration before a hung encoder is terminated.
	GraceSeconds int `toml:"grace_seconds"`
	// Verify runs ffprobe on the output and logs any duration drift.
	Verify                 bool    `toml:"verify"`
	VerifyToleranceSeconds float64 `toml:"verify_tolerance_seconds"`
}

// Policy decides the behaviour left open by the marker protocol.
type Policy struct {
	// DurationPolicy is "reject" or "clamp" and applies when the page reports <= 0 seconds.
	DurationPolicy     string `toml:"duration_policy"`
	MinDurationSeconds int    `toml:"min_duration_seconds"`
	ClearStaleDone     bool   `toml:"clear_stale_done"`
}

// History contains configuration for the capture journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Keep    int    `toml:"keep"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications contains ntfy delivery settings.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	// OnSuccess also notifies completed captures.
	OnSuccess bool `toml:"on_success"`
	// RepeatFailures re-sends a failure identical to the one already in the
	// failed marker. Off by default because a retried start marker fails again
	// on every watch interval or cron tick.
	RepeatFailures bool `toml:"repeat_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for signagerec.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Markers: marker file names and the output video name
//   - Content: slideshow URL and duration field lookup
//   - Display: X display identifier and capture resolution
//   - Browser: Chrome executable and launch ceiling
//   - Capture: ffmpeg encoder settings and output verification
//   - Policy: duration and stale-marker policies
//   - History: SQLite capture journal
//   - Metrics: Prometheus textfile export
//   - Notifications: ntfy capture alerts
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Markers Markers `toml:"markers"`
	Content Content `toml:"content"`
	Display Display `toml:"display"`
	Browser Browser `toml:"browser"`
	Capture Capture `toml:"capture"`
	Policy  Policy  `toml:"policy"`
	History History `toml:"history"`
	Metrics Metrics `toml:"metrics"`

	Notifications Notifications `toml:"notifications"`

	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/signagerec/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
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

	projectPath, err := filepath.Abs("signagerec.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// MarkerPath joins a marker file name onto the state directory.
func (c *Config) MarkerPath(name string) string {
	return filepath.Join(c.Paths.StateDir, name)
}

// OutputPath returns the fixed output video location.
func (c *Config) OutputPath() string {
	return c.MarkerPath(c.Markers.Output)
}

// LogFilePath returns the path of the persistent log file.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "signagerec.log")
}

// Resolution renders the capture size in ffmpeg's WxH form.
func (c *Config) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Display.Width, c.Display.Height)
}

// DurationWait returns the duration field wait as a time.Duration.
func (c *Config) DurationWait() time.Duration {
	return time.Duration(c.Content.DurationWait) * time.Second
}

// NavigationTimeout returns the navigation ceiling, or zero when disabled.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Content.NavigationTimeout) * time.Second
}

// LaunchTimeout returns the browser launch ceiling.
func (c *Config) LaunchTimeout() time.Duration {
	return time.Duration(c.Browser.LaunchTimeout) * time.Second
}

// CaptureGrace returns the slack added to a capture before the encoder is terminated.
func (c *Config) CaptureGrace() time.Duration {
	return time.Duration(c.Capture.GraceSeconds) * time.Second
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
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample atomically writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := renameio.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// NotificationTimeout returns the ntfy request ceiling.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMarkers()
	c.normalizeContent()
	c.normalizeDisplay()
	c.normalizeBrowser()
	c.normalizeCapture()
	c.normalizePolicy()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMarkers() {
	c.Markers.Start = markerName(c.Markers.Start, defaultStartMarker)
	c.Markers.Busy = markerName(c.Markers.Busy, defaultBusyMarker)
	c.Markers.Done = markerName(c.Markers.Done, defaultDoneMarker)
	c.Markers.Failed = markerName(c.Markers.Failed, defaultFailedMarker)
	c.Markers.Lock = markerName(c.Markers.Lock, defaultLockFile)
	c.Markers.Output = markerName(c.Markers.Output, defaultOutputFile)
}

// markerName keeps marker files inside the state directory.
func markerName(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return filepath.Base(value)
}

func (c *Config) normalizeContent() {
	c.Content.URL = strings.TrimSpace(c.Content.URL)
	if c.Content.URL == "" {
		if value, ok := os.LookupEnv(defaultContentURLEnv); ok {
			c.Content.URL = strings.TrimSpace(value)
		}
	}
	c.Content.DurationSelector = strings.TrimSpace(c.Content.DurationSelector)
	if c.Content.DurationSelector == "" {
		c.Content.DurationSelector = defaultDurationSelector
	}
	if c.Content.DurationWait <= 0 {
		c.Content.DurationWait = defaultDurationWait
	}
	if c.Content.NavigationTimeout < 0 {
		c.Content.NavigationTimeout = 0
	}
	c.Content.CacheBustParam = strings.TrimSpace(c.Content.CacheBustParam)
	if c.Content.CacheBustParam == "" {
		c.Content.CacheBustParam = defaultCacheBustParam
	}
}

func (c *Config) normalizeDisplay() {
	c.Display.ID = strings.TrimSpace(c.Display.ID)
	if c.Display.ID == "" {
		if value, ok := os.LookupEnv(defaultDisplayEnv); ok && strings.TrimSpace(value) != "" {
			c.Display.ID = strings.TrimSpace(value)
		} else {
			c.Display.ID = defaultDisplayFallbackName
		}
	}
}

func (c *Config) normalizeBrowser() {
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
	if c.Browser.LaunchTimeout <= 0 {
		c.Browser.LaunchTimeout = defaultLaunchTimeout
	}
	flags := make([]string, 0, len(c.Browser.ExtraFlags))
	for _, flag := range c.Browser.ExtraFlags {
		flag = strings.TrimLeft(strings.TrimSpace(flag), "-")
		if flag == "" {
			continue
		}
		flags = append(flags, flag)
	}
	c.Browser.ExtraFlags = flags
}

func (c *Config) normalizeCapture() {
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	c.Capture.FFprobeBinary = strings.TrimSpace(c.Capture.FFprobeBinary)
	if c.Capture.FFprobeBinary == "" {
		c.Capture.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Capture.Framerate <= 0 {
		c.Capture.Framerate = defaultFramerate
	}
	c.Capture.Codec = strings.TrimSpace(c.Capture.Codec)
	if c.Capture.Codec == "" {
		c.Capture.Codec = defaultCodec
	}
	c.Capture.PixelFormat = strings.TrimSpace(c.Capture.PixelFormat)
	if c.Capture.PixelFormat == "" {
		c.Capture.PixelFormat = defaultPixelFormat
	}
	c.Capture.LogLevel = strings.ToLower(strings.TrimSpace(c.Capture.LogLevel))
	if c.Capture.LogLevel == "" {
		c.Capture.LogLevel = defaultFFmpegLogLevel
	}
	if c.Capture.GraceSeconds < 0 {
		c.Capture.GraceSeconds = 0
	}
	if c.Capture.VerifyToleranceSeconds <= 0 {
		c.Capture.VerifyToleranceSeconds = defaultVerifyTolerance
	}
}

func (c *Config) normalizePolicy() {
	c.Policy.DurationPolicy = strings.ToLower(strings.TrimSpace(c.Policy.DurationPolicy))
	if c.Policy.DurationPolicy == "" {
		c.Policy.DurationPolicy = defaultDurationPolicy
	}
	if c.Policy.MinDurationSeconds <= 0 {
		c.Policy.MinDurationSeconds = defaultMinDurationSeconds
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.Keep <= 0 {
		c.History.Keep = defaultHistoryKeep
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validateMarkers(); err != nil {
		return err
	}
	if err := c.validateDisplay(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validatePolicy(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateContent() error {
	if c.Content.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/signagerec/config.toml"
		}
		return fmt.Errorf("content.url is required. Set %s env var or edit %s (create with 'signagerec config init')", defaultContentURLEnv, defaultPath)
	}
	parsed, err := url.Parse(c.Content.URL)
	if err != nil {
		return fmt.Errorf("content.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("content.url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("content.url must include a host")
	}
	return nil
}

func (c *Config) validateMarkers() error {
	seen := make(map[string]string, 6)
	for key, name := range map[string]string{
		"markers.start":  c.Markers.Start,
		"markers.busy":   c.Markers.Busy,
		"markers.done":   c.Markers.Done,
		"markers.failed": c.Markers.Failed,
		"markers.lock":   c.Markers.Lock,
		"markers.output": c.Markers.Output,
	} {
		if other, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s must name different files (both %q)", key, other, name)
		}
		seen[name] = key
	}
	return nil
}

func (c *Config) validateDisplay() error {
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return errors.New("display.width and display.height must be positive")
	}
	if !strings.Contains(c.Display.ID, ":") {
		return fmt.Errorf("display.id %q is not an X display (expected e.g. :99)", c.Display.ID)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.Framerate > 240 {
		return errors.New("capture.framerate must be 240 or lower")
	}
	switch c.Capture.LogLevel {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
	default:
		return fmt.Errorf("capture.log_level %q is not an ffmpeg log level", c.Capture.LogLevel)
	}
	return nil
}

func (c *Config) validatePolicy() error {
	switch c.Policy.DurationPolicy {
	case DurationPolicyReject, DurationPolicyClamp:
	default:
		return fmt.Errorf("policy.duration_policy must be %q or %q", DurationPolicyReject, DurationPolicyClamp)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil {
		return fmt.Errorf("notifications.ntfy_topic: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) topic url, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

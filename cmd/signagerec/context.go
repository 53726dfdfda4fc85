package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"signagerec/internal/capture"
	"signagerec/internal/config"
	"signagerec/internal/logging"
	"signagerec/internal/render"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// Overridable for tests; a real browser and encoder are not available there.
	newLauncher func(*config.Config, *slog.Logger) render.Launcher
	newRecorder func(*config.Config, *slog.Logger) (capture.Recorder, error)
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		newLauncher: func(cfg *config.Config, logger *slog.Logger) render.Launcher {
			return render.NewChrome(render.OptionsFromConfig(cfg), logger)
		},
		newRecorder: func(cfg *config.Config, logger *slog.Logger) (capture.Recorder, error) {
			return capture.NewFromConfig(cfg, capture.WithLogger(logger))
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) logLevel() string {
	if c.logLevelFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.logLevelFlag)
}

// logger builds the run logger: console or JSON on stdout plus the log file.
func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg, c.logLevel())
}

// consoleLogger is used by inspection commands that should not append to the log file.
func (c *commandContext) consoleLogger() *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:       firstNonEmpty(c.logLevel(), "warn"),
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// skipConfigLoad marks commands that must run before a valid config exists.
const skipConfigLoad = "skipConfigLoad"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigLoad] == "true" {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

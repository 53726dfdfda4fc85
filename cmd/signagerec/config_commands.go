package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"signagerec/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Create or check the configuration file",
		Annotations: map[string]string{skipConfigLoad: "true"},
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
		toStdout   bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the annotated sample configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if toStdout {
				_, err := fmt.Fprint(out, config.Sample())
				return err
			}

			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set content.url (or export SIGNAGEREC_CONTENT_URL) before the first run.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the sample instead of writing it")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if target := strings.TrimSpace(flagValue); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load, normalize and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFlag, _ := cmd.Flags().GetString("config")
			cfg, path, exists, err := config.Load(strings.TrimSpace(configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = path + " (not found, defaults used)"
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, effectiveSettings(cfg, source)))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func effectiveSettings(cfg *config.Config, source string) [][]string {
	return [][]string{
		{"config file", source},
		{"content.url", cfg.Content.URL},
		{"paths.state_dir", cfg.Paths.StateDir},
		{"markers", strings.Join([]string{cfg.Markers.Start, cfg.Markers.Busy, cfg.Markers.Done, cfg.Markers.Failed}, ", ")},
		{"output", cfg.OutputPath()},
		{"display", cfg.Display.ID + " " + cfg.Resolution()},
		{"capture", cfg.Capture.Codec + " @ " + strconv.Itoa(cfg.Capture.Framerate) + " fps"},
		{"policy.duration_policy", cfg.Policy.DurationPolicy},
		{"history", yesNo(cfg.History.Enabled) + " " + cfg.History.Path},
		{"notifications", firstNonEmpty(cfg.Notifications.NtfyTopic, "disabled")},
	}
}

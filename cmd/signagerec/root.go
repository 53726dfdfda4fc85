package main

import (
	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	groupCapture = "capture"
	groupInspect = "inspect"
	groupSetup   = "setup"
)

func newRootCommand() *cobra.Command {
	var configFlag, logLevelFlag string
	return buildRootCommand(newCommandContext(&configFlag, &logLevelFlag))
}

func buildRootCommand(ctx *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "signagerec",
		Short:         "Record digital-signage slideshows on demand",
		Long:          "signagerec turns a start marker into a finished recording of the signage page, signalled back through done and failed markers.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(ctx.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(ctx.logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddGroup(
		&cobra.Group{ID: groupCapture, Title: "Capture:"},
		&cobra.Group{ID: groupInspect, Title: "Inspect:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	addToGroup(root, groupCapture, newRunCommand(ctx), newWatchCommand(ctx))
	addToGroup(root, groupInspect, newStatusCommand(ctx), newLogsCommand(ctx), newProbeCommand(ctx), newDoctorCommand(ctx))
	addToGroup(root, groupSetup, newConfigCommand(), newTestNotifyCommand(ctx))
	return root
}

func addToGroup(root *cobra.Command, group string, cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.GroupID = group
		root.AddCommand(cmd)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signagerec/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test message to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			topic := cfg.Notifications.NtfyTopic
			if topic == "" {
				fmt.Fprintln(out, "Notifications are off; set notifications.ntfy_topic to enable them")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("notify %s: %w", topic, err)
			}
			fmt.Fprintf(out, "Test notification sent to %s\n", topic)
			return nil
		},
	}
}

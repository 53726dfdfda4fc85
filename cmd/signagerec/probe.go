package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"signagerec/internal/contentprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Fetch the content source over HTTP and print its duration field",
		Long: "Fetches the content source without a browser. Pages that fill the\n" +
			"duration field from script report the field as missing here even\n" +
			"though a capture would succeed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := firstNonEmpty(url, cfg.Content.URL)
			result, err := contentprobe.NewFromConfig(cfg).Probe(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("probe %s: %w", target, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "URL:      %s\n", result.URL)
			fmt.Fprintf(out, "Status:   %d (%s)\n", result.StatusCode, result.Elapsed.Round(time.Millisecond))
			if result.Title != "" {
				fmt.Fprintf(out, "Title:    %s\n", result.Title)
			}
			fmt.Fprintf(out, "Duration: %ds\n", result.Seconds)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Probe this URL instead of content.url")
	return cmd
}

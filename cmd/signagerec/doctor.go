package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signagerec/internal/contentprobe"
	"signagerec/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, the display, and the content source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var prober *contentprobe.Prober
			if !offline {
				prober = contentprobe.NewFromConfig(cfg)
			}
			results := preflight.RunAll(cmd.Context(), cfg, prober)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Readiness", colorize))
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, resultKind(r), r.Detail, colorize))
			}
			if blocking := preflight.Blocking(results); len(blocking) > 0 {
				return fmt.Errorf("%d check(s) failed", len(blocking))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the content source check")
	return cmd
}

func resultKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}

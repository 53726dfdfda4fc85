package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signagerec/internal/history"
	"signagerec/internal/trigger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show markers, the last output, and recent captures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			state, err := trigger.NewFromConfig(cfg).State()
			if err != nil {
				return err
			}
			writeMarkerSection(out, state, colorize, time.Now())

			if !cfg.History.Enabled {
				return nil
			}
			journal, err := history.Open(cmd.Context(), cfg.History.Path, cfg.History.Keep)
			if err != nil {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderStatusLine("History", statusWarn, err.Error(), colorize))
				return nil
			}
			defer journal.Close()
			return writeHistorySection(cmd.Context(), out, journal, limit, colorize)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of recent captures to show")
	return cmd
}

func writeMarkerSection(out io.Writer, state trigger.State, colorize bool, now time.Time) {
	fmt.Fprintln(out, renderSectionHeader("Markers", colorize))
	fmt.Fprintln(out, renderStatusLine("Phase", phaseKind(state.Phase()), state.Phase(), colorize))

	rows := make([][]string, 0, len(trigger.Markers))
	for _, m := range trigger.Markers {
		fs := state.Markers[m]
		rows = append(rows, []string{
			string(m),
			fs.Name,
			yesNo(fs.Present),
			formatAge(fs, now),
			summarizePayload(fs.Payload),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Marker", "File", "Present", "Age", "Payload"}, rows))

	output := state.Output
	if output.Present {
		detail := fmt.Sprintf("%s (%s, written %s ago)", output.Path, formatBytes(output.Size), now.Sub(output.ModTime).Round(time.Second))
		fmt.Fprintln(out, renderStatusLine("Output", statusOK, detail, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Output", statusInfo, "none", colorize))
	}
}

func writeHistorySection(ctx context.Context, out io.Writer, journal *history.Store, limit int, colorize bool) error {
	entries, err := journal.Recent(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Recent captures", colorize))
	if len(entries) == 0 {
		fmt.Fprintln(out, renderStatusLine("History", statusInfo, "no captures recorded", colorize))
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(e.RunID),
			e.Outcome,
			strconv.Itoa(e.DurationSeconds),
			exitCodeText(e.CaptureExitCode),
			measuredText(e.MeasuredSeconds),
			e.Elapsed().Round(time.Second).String(),
			truncate(firstNonEmpty(e.Error, e.FailedPhase), 48),
		})
	}
	headers := []string{"Started", "Run", "Outcome", "Seconds", "Exit", "Measured", "Elapsed", "Error"}
	fmt.Fprintln(out, renderTable(headers, rows, 3, 4, 5, 6))
	return nil
}

func phaseKind(phase string) statusKind {
	switch phase {
	case "recorded":
		return statusOK
	case "failed":
		return statusError
	case "recording", "requested":
		return statusWarn
	default:
		return statusInfo
	}
}

func formatAge(fs trigger.FileState, now time.Time) string {
	if !fs.Present {
		return "-"
	}
	return now.Sub(fs.ModTime).Round(time.Second).String()
}

func summarizePayload(payload string) string {
	return truncate(strings.Join(strings.Fields(payload), " "), 60)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func exitCodeText(code int) string {
	if code < 0 {
		return "-"
	}
	return strconv.Itoa(code)
}

func measuredText(seconds *float64) string {
	if seconds == nil {
		return "-"
	}
	return strconv.FormatFloat(*seconds, 'f', 2, 64)
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"signagerec/internal/config"
	"signagerec/internal/history"
	"signagerec/internal/logging"
	"signagerec/internal/media/ffprobe"
	"signagerec/internal/metrics"
	"signagerec/internal/notifications"
	"signagerec/internal/orchestrator"
	"signagerec/internal/preflight"
	"signagerec/internal/trigger"
)

// errPreflight is returned when a requested run cannot start on this host.
var errPreflight = errors.New("preflight failed")

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Perform at most one capture if a start marker is present",
		Long: "Checks the start marker and, when present and no capture is in flight,\n" +
			"renders the content source, records the display for the reported\n" +
			"duration, and finalizes the markers. Exits non-zero only on failure.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			r, err := ctx.newRunner(signalCtx)
			if err != nil {
				return err
			}
			defer r.Close()

			if !skipPreflight {
				if err := r.preflight(); err != nil {
					return err
				}
			}
			report, err := r.runOnce(signalCtx)
			if err != nil {
				return fmt.Errorf("capture %s failed: %w", report.RunID, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not check the display and binaries before arming")
	return cmd
}

// runner couples the orchestrator with the journal and metrics it reports to.
type runner struct {
	cfg      *config.Config
	store    *trigger.FileStore
	orch     *orchestrator.Orchestrator
	history  *history.Store
	metrics  *metrics.Exporter
	textfile string
	notifier notifications.Service
	logger   *slog.Logger
}

func (c *commandContext) newRunner(ctx context.Context) (*runner, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	recorder, err := c.newRecorder(cfg, logger)
	if err != nil {
		return nil, err
	}
	store := trigger.NewFromConfig(cfg)
	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if cfg.Capture.Verify {
		opts = append(opts, orchestrator.WithVerifier(ffprobe.NewVerifier(cfg.Capture.FFprobeBinary, cfg.Capture.VerifyToleranceSeconds)))
	}
	orch, err := orchestrator.New(store, c.newLauncher(cfg, logger), recorder, orchestrator.SettingsFromConfig(cfg), opts...)
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:      cfg,
		store:    store,
		orch:     orch,
		metrics:  metrics.New(),
		textfile: cfg.Metrics.TextfilePath,
		notifier: notifications.NewService(cfg),
		logger:   logging.NewComponentLogger(logger, "cli"),
	}
	if cfg.History.Enabled {
		journal, err := history.Open(ctx, cfg.History.Path, cfg.History.Keep)
		if err != nil {
			// The journal is diagnostic; a broken database must not block captures.
			logging.WarnWithHint(r.logger, "history unavailable", "history_open_failed",
				"check history.path permissions or delete the database",
				logging.String("path", cfg.History.Path), logging.Error(err))
		} else {
			r.history = journal
		}
	}
	return r, nil
}

// preflight runs the local checks only when a capture is actually requested.
func (r *runner) preflight() error {
	requested, err := r.store.Exists(trigger.Start)
	if err != nil || !requested {
		return nil
	}
	blocking := preflight.Blocking(preflight.Local(r.cfg))
	if len(blocking) == 0 {
		return nil
	}
	details := make([]string, 0, len(blocking))
	for _, result := range blocking {
		details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		r.logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.EventType("preflight_failed"))
	}
	return fmt.Errorf("%w: %s", errPreflight, strings.Join(details, "; "))
}

func (r *runner) runOnce(ctx context.Context) (orchestrator.Report, error) {
	previous, hadFailure := r.store.LastFailure()
	report, err := r.orch.RunOnce(ctx)
	r.record(context.WithoutCancel(ctx), report, previous, hadFailure)
	return report, err
}

func (r *runner) record(ctx context.Context, report orchestrator.Report, previous trigger.FailedPayload, hadFailure bool) {
	if err := r.metrics.Export(report, r.textfile); err != nil {
		r.logger.Warn("write metrics textfile failed",
			logging.String("path", r.textfile),
			logging.Error(err))
	}
	if hadFailure && repeatsFailure(previous, report) && !r.cfg.Notifications.RepeatFailures {
		r.logger.Info("repeat failure, notification suppressed",
			logging.String(logging.FieldRunID, report.RunID),
			logging.String("previous_run_id", previous.RunID),
			logging.String("phase", previous.Phase))
	} else if err := r.notifier.NotifyReport(ctx, report); err != nil {
		r.logger.Warn("send notification failed",
			logging.String(logging.FieldRunID, report.RunID),
			logging.Error(err))
	}
	if r.history == nil || report.Outcome.Skipped() {
		return
	}
	if err := r.history.Record(ctx, entryFromReport(report)); err != nil {
		r.logger.Warn("record history failed",
			logging.String(logging.FieldRunID, report.RunID),
			logging.Error(err))
	}
}

func repeatsFailure(previous trigger.FailedPayload, report orchestrator.Report) bool {
	if report.Outcome != orchestrator.OutcomeFailed || report.Err == nil {
		return false
	}
	return previous.Same(string(report.FailedPhase), report.Err.Error())
}

func (r *runner) Close() {
	if r.history != nil {
		_ = r.history.Close()
	}
}

func entryFromReport(report orchestrator.Report) history.Entry {
	entry := history.Entry{
		RunID:           report.RunID,
		Outcome:         string(report.Outcome),
		FailedPhase:     string(report.FailedPhase),
		URL:             report.URL,
		ReportedSeconds: report.ReportedSeconds,
		DurationSeconds: report.DurationSeconds,
		CaptureExitCode: report.ExitCode(),
		StepFailures:    report.StepFailures(),
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
	}
	if report.Verification != nil {
		measured := report.Verification.MeasuredSeconds
		entry.MeasuredSeconds = &measured
	}
	if report.Err != nil {
		entry.Error = report.Err.Error()
	}
	return entry
}

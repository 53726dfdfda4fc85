package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"signagerec/internal/capture"
	"signagerec/internal/config"
	"signagerec/internal/logging"
	"signagerec/internal/media/ffprobe"
	"signagerec/internal/render"
	"signagerec/internal/trigger"
)

var (
	// ErrMutexCreate marks a failure to create the busy marker after the checks passed.
	ErrMutexCreate = errors.New("busy marker create failed")
	// ErrStaleOutput marks a previous output video that could not be removed.
	ErrStaleOutput = errors.New("stale output removal failed")
)

const defaultLockTimeout = 10 * time.Second

// Verifier measures a finished capture.
type Verifier interface {
	Verify(ctx context.Context, path string, expectedSeconds int) (ffprobe.Verification, error)
}

// Settings carries the policy knobs a run needs.
type Settings struct {
	ContentURL         string
	OutputPath         string
	DurationPolicy     string
	MinDurationSeconds int
	ClearStaleDone     bool
	LockTimeout        time.Duration
}

// SettingsFromConfig maps configuration onto run settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ContentURL:         cfg.Content.URL,
		OutputPath:         cfg.OutputPath(),
		DurationPolicy:     cfg.Policy.DurationPolicy,
		MinDurationSeconds: cfg.Policy.MinDurationSeconds,
		ClearStaleDone:     cfg.Policy.ClearStaleDone,
		LockTimeout:        defaultLockTimeout,
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithVerifier enables post-capture verification.
func WithVerifier(v Verifier) Option {
	return func(o *Orchestrator) {
		o.verifier = v
	}
}

// WithClock replaces time.Now (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunIDs replaces the run identifier source (primarily for tests).
func WithRunIDs(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newRunID = next
		}
	}
}

// Orchestrator ties the trigger store, render session and capture process together.
type Orchestrator struct {
	store    trigger.Store
	launcher render.Launcher
	recorder capture.Recorder
	verifier Verifier
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// New constructs an Orchestrator.
func New(store trigger.Store, launcher render.Launcher, recorder capture.Recorder, settings Settings, opts ...Option) (*Orchestrator, error) {
	if store == nil || launcher == nil || recorder == nil {
		return nil, errors.New("orchestrator requires a store, launcher and recorder")
	}
	if strings.TrimSpace(settings.ContentURL) == "" {
		return nil, errors.New("orchestrator requires a content url")
	}
	if strings.TrimSpace(settings.OutputPath) == "" {
		return nil, errors.New("orchestrator requires an output path")
	}
	if settings.LockTimeout <= 0 {
		settings.LockTimeout = defaultLockTimeout
	}
	o := &Orchestrator{
		store:    store,
		launcher: launcher,
		recorder: recorder,
		settings: settings,
		logger:   logging.NewNop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o, nil
}

// RunOnce performs at most one capture attempt. Skips return a nil error;
// failures return the error that ended the attempt, after cleanup.
func (o *Orchestrator) RunOnce(ctx context.Context) (report Report, err error) {
	report = Report{RunID: o.newRunID(), State: StateIdle, StartedAt: o.now()}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, o.logger)
	defer func() {
		report.FinishedAt = o.now()
	}()

	requested, err := o.store.Exists(trigger.Start)
	if err != nil {
		return o.failEarly(logger, &report, fmt.Errorf("check start marker: %w", err))
	}
	if !requested {
		report.Outcome = OutcomeSkippedNoTrigger
		logger.Debug("no capture requested")
		return report, nil
	}

	skipped, err := o.arm(ctx, logger, &report)
	if err != nil {
		return o.failEarly(logger, &report, err)
	}
	switch skipped {
	case OutcomeSkippedBusy:
		report.Outcome = skipped
		logger.Info("capture already in progress; skipping", logging.String(logging.FieldEventType, "skipped_busy"))
		return report, nil
	case OutcomeSkippedNoTrigger:
		report.Outcome = skipped
		logger.Debug("start marker consumed by a concurrent run")
		return report, nil
	}

	// From here the busy marker is held and must be released on every path.
	var page render.Page
	released := false
	defer func() {
		if released {
			return
		}
		recovered := recover()
		cleanupCtx := context.WithoutCancel(ctx)
		fault := fmt.Errorf("capture aborted: %v", recovered)
		o.abort(cleanupCtx, logger, &report, page, fault)
		if recovered != nil {
			panic(recovered)
		}
	}()

	runErr := o.renderAndCapture(ctx, logger, &report, &page)
	cleanupCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		o.abort(cleanupCtx, logger, &report, page, runErr)
		released = true
		return report, runErr
	}
	o.finalize(cleanupCtx, logger, &report, page)
	released = true
	return report, nil
}

// failEarly ends a run that failed before the busy marker was created.
func (o *Orchestrator) failEarly(logger *slog.Logger, report *Report, err error) (Report, error) {
	report.Outcome = OutcomeFailed
	report.FailedPhase = report.State
	report.Err = err
	logging.ErrorWithHint(logger, "capture not started", "run_failed",
		"check permissions on the state directory",
		logging.Error(err),
		logging.String(logging.FieldState, string(report.State)),
	)
	return *report, err
}

// arm holds the arming lock while it checks the markers, clears stale
// artifacts and creates the busy marker. A non-empty Outcome means the run
// must skip without touching anything.
func (o *Orchestrator) arm(ctx context.Context, logger *slog.Logger, report *Report) (Outcome, error) {
	lockCtx, cancel := context.WithTimeout(ctx, o.settings.LockTimeout)
	defer cancel()
	unlock, err := o.store.Lock(lockCtx)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("release arming lock failed", logging.Error(err))
		}
	}()

	busy, err := o.store.Exists(trigger.Busy)
	if err != nil {
		return "", fmt.Errorf("check busy marker: %w", err)
	}
	if busy {
		return OutcomeSkippedBusy, nil
	}
	// A run that finished while this one waited for the lock may have consumed the request.
	requested, err := o.store.Exists(trigger.Start)
	if err != nil {
		return "", fmt.Errorf("check start marker: %w", err)
	}
	if !requested {
		return OutcomeSkippedNoTrigger, nil
	}

	removed, err := o.store.RemoveFile(o.settings.OutputPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStaleOutput, err)
	}
	if removed {
		logger.Info("removed stale output", logging.String("path", o.settings.OutputPath))
	}
	if err := o.store.Remove(trigger.Failed); err != nil {
		logger.Warn("remove stale failed marker", logging.Error(err))
	}
	if o.settings.ClearStaleDone {
		if err := o.store.Remove(trigger.Done); err != nil {
			logger.Warn("remove stale done marker", logging.Error(err))
		}
	}

	payload, err := trigger.Encode(trigger.BusyPayload{
		RunID:     report.RunID,
		PID:       os.Getpid(),
		StartedAt: report.StartedAt.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode payload: %w", ErrMutexCreate, err)
	}
	if err := o.store.CreateExclusive(trigger.Busy, payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMutexCreate, err)
	}

	report.State = StateArmed
	logger.Info("capture armed",
		logging.String(logging.FieldEventType, "armed"),
		logging.String("busy_marker", o.store.Path(trigger.Busy)),
	)
	return "", nil
}

// renderAndCapture drives the browser to the content, reads the duration and
// records it. page is set as soon as a session exists so cleanup can close it.
func (o *Orchestrator) renderAndCapture(ctx context.Context, logger *slog.Logger, report *Report, page *render.Page) error {
	report.State = StateBusyRendering
	session, err := o.launcher.Open(ctx)
	if err != nil {
		return fmt.Errorf("open render session: %w", err)
	}
	*page = session

	loaded, err := session.Load(ctx, o.settings.ContentURL)
	report.URL = loaded
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	reported, err := session.ReadDuration(ctx)
	if err != nil {
		return fmt.Errorf("read duration: %w", err)
	}
	report.ReportedSeconds = reported

	seconds, err := applyDurationPolicy(o.settings.DurationPolicy, o.settings.MinDurationSeconds, reported)
	if err != nil {
		return err
	}
	if seconds != reported {
		logger.Warn("duration clamped",
			logging.Int("reported_seconds", reported),
			logging.Int("seconds", seconds),
		)
	}
	report.DurationSeconds = seconds

	report.State = StateBusyCapturing
	result, err := o.recorder.Record(ctx, seconds, o.settings.OutputPath)
	if err != nil {
		if !result.StartedAt.IsZero() {
			report.Capture = &result
		}
		return fmt.Errorf("capture: %w", err)
	}
	report.Capture = &result

	attrs := []logging.Attr{
		logging.Int("exit_code", result.ExitCode),
		logging.Duration("elapsed", result.Elapsed()),
	}
	if !result.Succeeded() {
		attrs = append(attrs, logging.String("stderr_tail", strings.Join(result.StderrTail, " | ")), logging.Bool("timed_out", result.TimedOut))
		logging.WarnWithHint(logger, "capture exited non-zero", "capture_nonzero_exit",
			"the video may be empty or truncated; the done marker is still written", attrs...)
	} else {
		logger.Info("capture finished", logging.Args(attrs...)...)
	}

	o.verify(ctx, logger, report)
	return nil
}

func (o *Orchestrator) verify(ctx context.Context, logger *slog.Logger, report *Report) {
	if o.verifier == nil || report.Capture == nil || !report.Capture.Succeeded() {
		return
	}
	verification, err := o.verifier.Verify(ctx, o.settings.OutputPath, report.DurationSeconds)
	if err != nil {
		logger.Warn("output verification failed", logging.Error(err))
		return
	}
	report.Verification = &verification
	attrs := []logging.Attr{
		logging.Int("expected_seconds", verification.ExpectedSeconds),
		logging.Float64("measured_seconds", verification.MeasuredSeconds),
		logging.Float64("drift_seconds", verification.DriftSeconds),
	}
	if verification.WithinTolerance() {
		logger.Info("output verified", logging.Args(attrs...)...)
		return
	}
	logging.WarnWithHint(logger, "output duration drift", "capture_drift",
		"check encoder load and display frame rate", attrs...)
}

// finalize runs the terminal steps of a run that reached capture exit.
func (o *Orchestrator) finalize(ctx context.Context, logger *slog.Logger, report *Report, page render.Page) {
	report.State = StateFinalizing
	report.Steps = append(report.Steps, closeStep(page))
	report.Steps = append(report.Steps, StepResult{Name: StepRemoveStart, Err: o.store.Remove(trigger.Start)})
	report.Steps = append(report.Steps, StepResult{Name: StepWriteDone, Err: o.writeDone(report)})
	report.Steps = append(report.Steps, StepResult{Name: StepRemoveBusy, Err: o.store.Remove(trigger.Busy)})
	report.Outcome = OutcomeCompleted
	report.State = StateIdle
	o.logSummary(ctx, logger, report)
}

// abort releases the busy marker after a failure. The start marker is kept so
// the next scheduler tick retries.
func (o *Orchestrator) abort(ctx context.Context, logger *slog.Logger, report *Report, page render.Page, cause error) {
	report.FailedPhase = report.State
	report.Err = cause
	report.State = StateFinalizing
	if page != nil {
		report.Steps = append(report.Steps, closeStep(page))
	}
	report.Steps = append(report.Steps, StepResult{Name: StepWriteFailed, Err: o.writeFailed(report, cause)})
	report.Steps = append(report.Steps, StepResult{Name: StepRemoveBusy, Err: o.store.Remove(trigger.Busy)})
	report.Outcome = OutcomeFailed
	report.State = StateIdle
	o.logSummary(ctx, logger, report)
}

func closeStep(page render.Page) StepResult {
	step := StepResult{Name: StepCloseSession}
	if page != nil {
		step.Err = page.Close()
	}
	return step
}

func (o *Orchestrator) writeDone(report *Report) error {
	payload, err := trigger.Encode(trigger.DonePayload{
		RunID:           report.RunID,
		Video:           o.settings.OutputPath,
		DurationSeconds: report.DurationSeconds,
		CaptureExitCode: report.ExitCode(),
		FinishedAt:      o.now().UTC(),
	})
	if err != nil {
		return err
	}
	return o.store.Write(trigger.Done, payload)
}

func (o *Orchestrator) writeFailed(report *Report, cause error) error {
	payload, err := trigger.Encode(trigger.FailedPayload{
		RunID: report.RunID,
		Phase: string(report.FailedPhase),
		Error: cause.Error(),
		At:    o.now().UTC(),
	})
	if err != nil {
		return err
	}
	return o.store.Write(trigger.Failed, payload)
}

// logSummary emits the single line describing how the run ended.
func (o *Orchestrator) logSummary(ctx context.Context, logger *slog.Logger, report *Report) {
	attrs := []logging.Attr{
		logging.String("outcome", string(report.Outcome)),
		logging.Int("duration_seconds", report.DurationSeconds),
		logging.Int("capture_exit_code", report.ExitCode()),
		logging.Duration("elapsed", o.now().Sub(report.StartedAt)),
	}
	for _, step := range report.Steps {
		value := "ok"
		if step.Err != nil {
			value = step.Err.Error()
		}
		attrs = append(attrs, logging.String("step."+step.Name, value))
	}

	switch {
	case report.Outcome == OutcomeFailed:
		attrs = append(attrs,
			logging.Error(report.Err),
			logging.String("failed_phase", string(report.FailedPhase)),
			logging.String(logging.FieldEventType, "run_failed"),
			logging.String(logging.FieldErrorHint, failureHint(report.Err)),
		)
		logger.ErrorContext(ctx, "capture failed", logging.Args(attrs...)...)
	case report.StepFailures() > 0:
		attrs = append(attrs, logging.Int("step_failures", report.StepFailures()))
		logger.WarnContext(ctx, "capture completed with cleanup failures", logging.Args(attrs...)...)
	default:
		attrs = append(attrs, logging.String(logging.FieldEventType, "run_completed"))
		logger.InfoContext(ctx, "capture completed", logging.Args(attrs...)...)
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, render.ErrDurationFieldTimeout):
		return "the page did not expose the duration field in time; check the content source"
	case errors.Is(err, render.ErrMalformedDuration), errors.Is(err, ErrInvalidDuration):
		return "the content source reported an unusable duration"
	case errors.Is(err, render.ErrNavigationTimeout), errors.Is(err, render.ErrNavigation):
		return "the content source is unreachable or never went idle"
	case errors.Is(err, render.ErrLaunch), errors.Is(err, render.ErrLaunchTimeout):
		return "check the browser installation and the X display"
	case errors.Is(err, capture.ErrSpawn):
		return "check that ffmpeg is installed and executable"
	case errors.Is(err, context.Canceled):
		return "the run was interrupted; the start marker was kept for retry"
	default:
		return "see the error field; the start marker was kept for retry"
	}
}

package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"signagerec/internal/capture"
	"signagerec/internal/config"
	"signagerec/internal/media/ffprobe"
	"signagerec/internal/orchestrator"
	"signagerec/internal/render"
	"signagerec/internal/trigger"
)

type harness struct {
	dir      string
	store    *trigger.FileStore
	launcher *fakeLauncher
	page     *fakePage
	recorder *fakeRecorder
	settings orchestrator.Settings
}

func newHarness(t *testing.T, duration int) *harness {
	t.Helper()
	dir := t.TempDir()
	store := trigger.NewFileStore(dir, trigger.Names{
		Start:  "tv-flag.trigger",
		Busy:   "tv-recording.flag",
		Done:   "tv-recorded.trigger",
		Failed: "tv-failed.trigger",
		Lock:   "signagerec.lock",
		Output: "output.mp4",
	})
	page := &fakePage{duration: duration}
	return &harness{
		dir:      dir,
		store:    store,
		page:     page,
		launcher: &fakeLauncher{page: page},
		recorder: &fakeRecorder{},
		settings: orchestrator.Settings{
			ContentURL:         "http://signage.test/tv",
			OutputPath:         store.OutputPath(),
			DurationPolicy:     config.DurationPolicyReject,
			MinDurationSeconds: 1,
			ClearStaleDone:     true,
		},
	}
}

func (h *harness) orchestrator(t *testing.T, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	return h.orchestratorWithStore(t, h.store, opts...)
}

func (h *harness) orchestratorWithStore(t *testing.T, store trigger.Store, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	o, err := orchestrator.New(store, h.launcher, h.recorder, h.settings, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func (h *harness) touch(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(h.dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

type markerState struct {
	Start, Busy, Done, Failed bool
}

func (h *harness) markers(t *testing.T) markerState {
	t.Helper()
	state, err := h.store.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	return markerState{
		Start:  state.Markers[trigger.Start].Present,
		Busy:   state.Markers[trigger.Busy].Present,
		Done:   state.Markers[trigger.Done].Present,
		Failed: state.Markers[trigger.Failed].Present,
	}
}

type fileSnapshot struct {
	Name    string
	Size    int64
	ModTime time.Time
}

func snapshotDir(t *testing.T, dir string) []fileSnapshot {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]fileSnapshot, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, fileSnapshot{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func TestRunOnceWithoutStartMarkerTouchesNothing(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "output.mp4", "old video")
	h.touch(t, "tv-recorded.trigger", "")
	before := snapshotDir(t, h.dir)

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Outcome != orchestrator.OutcomeSkippedNoTrigger {
		t.Fatalf("unexpected outcome %q", report.Outcome)
	}
	if diff := cmp.Diff(before, snapshotDir(t, h.dir)); diff != "" {
		t.Fatalf("directory changed (-before +after):\n%s", diff)
	}
	if h.launcher.Opens() != 0 || len(h.recorder.Calls()) != 0 {
		t.Fatal("expected no browser or capture work")
	}
}

func TestRunOnceWhileBusyIsNoOp(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	h.touch(t, "tv-recording.flag", "")
	h.touch(t, "output.mp4", "in-flight video")
	before := snapshotDir(t, h.dir)

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Outcome != orchestrator.OutcomeSkippedBusy {
		t.Fatalf("unexpected outcome %q", report.Outcome)
	}
	after := snapshotDir(t, h.dir)
	// The arming lock file may be created; nothing else may change.
	filtered := after[:0]
	for _, f := range after {
		if f.Name != "signagerec.lock" {
			filtered = append(filtered, f)
		}
	}
	if diff := cmp.Diff(before, filtered); diff != "" {
		t.Fatalf("directory changed (-before +after):\n%s", diff)
	}
	if h.launcher.Opens() != 0 {
		t.Fatal("expected no browser launch while busy")
	}
}

func TestSecondInvocationDuringCaptureSkips(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	h.recorder.started = make(chan struct{})
	h.recorder.release = make(chan struct{})

	first := h.orchestrator(t)
	done := make(chan error, 1)
	go func() {
		_, err := first.RunOnce(context.Background())
		done <- err
	}()
	<-h.recorder.started

	second := h.orchestratorWithStore(t, trigger.NewFileStore(h.dir, trigger.Names{
		Start: "tv-flag.trigger", Busy: "tv-recording.flag", Done: "tv-recorded.trigger",
		Failed: "tv-failed.trigger", Lock: "signagerec.lock", Output: "output.mp4",
	}))
	report, err := second.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if report.Outcome != orchestrator.OutcomeSkippedBusy {
		t.Fatalf("expected skipped_busy, got %q", report.Outcome)
	}

	close(h.recorder.release)
	if err := <-done; err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	if h.launcher.Opens() != 1 {
		t.Fatalf("expected exactly one render session, got %d", h.launcher.Opens())
	}
}

func TestConcurrentInvocationsSingleFlight(t *testing.T) {
	h := newHarness(t, 10)
	h.touch(t, "tv-flag.trigger", "")

	const invocations = 6
	var wg sync.WaitGroup
	outcomes := make(chan orchestrator.Outcome, invocations)
	for range invocations {
		store := trigger.NewFileStore(h.dir, trigger.Names{
			Start: "tv-flag.trigger", Busy: "tv-recording.flag", Done: "tv-recorded.trigger",
			Failed: "tv-failed.trigger", Lock: "signagerec.lock", Output: "output.mp4",
		})
		o := h.orchestratorWithStore(t, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := o.RunOnce(context.Background())
			if err != nil {
				t.Errorf("RunOnce: %v", err)
			}
			outcomes <- report.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	completed := 0
	for outcome := range outcomes {
		if outcome == orchestrator.OutcomeCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Fatalf("expected exactly one completed run, got %d", completed)
	}
	if got := h.recorder.maxActive.Load(); got != 1 {
		t.Fatalf("expected at most one active capture, saw %d", got)
	}
}

func TestRunOnceCompletesAndReplacesStaleOutput(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	h.touch(t, "tv-recorded.trigger", "stale")
	h.touch(t, "tv-failed.trigger", "old failure")
	h.touch(t, "output.mp4", "stale video")
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(h.store.OutputPath(), old, old); err != nil {
		t.Fatal(err)
	}

	before := time.Now()
	report, err := h.orchestrator(t, orchestrator.WithRunIDs(func() string { return "run-15" })).RunOnce(context.Background())
	after := time.Now()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Outcome != orchestrator.OutcomeCompleted || report.State != orchestrator.StateIdle {
		t.Fatalf("unexpected report %+v", report)
	}
	if diff := cmp.Diff([]int{15}, h.recorder.Calls()); diff != "" {
		t.Fatalf("capture calls mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(markerState{Done: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(h.store.OutputPath())
	if err != nil {
		t.Fatalf("expected output: %v", err)
	}
	if info.ModTime().Before(before.Add(-time.Second)) || info.ModTime().After(after.Add(time.Second)) {
		t.Fatalf("output mtime %v outside capture window [%v, %v]", info.ModTime(), before, after)
	}
	content, err := os.ReadFile(h.store.OutputPath())
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "fresh video" {
		t.Fatalf("expected fresh video, got %q", content)
	}

	var done trigger.DonePayload
	data, err := os.ReadFile(h.store.Path(trigger.Done))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &done); err != nil {
		t.Fatalf("decode done payload: %v", err)
	}
	if done.RunID != "run-15" || done.DurationSeconds != 15 || done.CaptureExitCode != 0 {
		t.Fatalf("unexpected done payload %+v", done)
	}

	if h.page.closeCalls.Load() != 1 {
		t.Fatalf("expected session closed once, got %d", h.page.closeCalls.Load())
	}
	wantSteps := []string{orchestrator.StepCloseSession, orchestrator.StepRemoveStart, orchestrator.StepWriteDone, orchestrator.StepRemoveBusy}
	var gotSteps []string
	for _, step := range report.Steps {
		gotSteps = append(gotSteps, step.Name)
		if !step.OK() {
			t.Fatalf("step %s failed: %v", step.Name, step.Err)
		}
	}
	if diff := cmp.Diff(wantSteps, gotSteps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunOnceKeepsStaleDoneWhenConfigured(t *testing.T) {
	h := newHarness(t, 10)
	h.settings.ClearStaleDone = false
	h.touch(t, "tv-flag.trigger", "")
	h.touch(t, "tv-recorded.trigger", "stale")
	h.recorder.started = make(chan struct{})
	h.recorder.release = make(chan struct{})

	o := h.orchestrator(t)
	done := make(chan error, 1)
	go func() {
		_, err := o.RunOnce(context.Background())
		done <- err
	}()
	<-h.recorder.started
	if got := h.markers(t); !got.Done || !got.Busy {
		t.Fatalf("expected stale done kept while busy, got %+v", got)
	}
	close(h.recorder.release)
	if err := <-done; err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
}

func TestDurationFidelity(t *testing.T) {
	for _, seconds := range []int{10, 60} {
		h := newHarness(t, seconds)
		h.touch(t, "tv-flag.trigger", "")
		report, err := h.orchestrator(t).RunOnce(context.Background())
		if err != nil {
			t.Fatalf("D=%d: RunOnce: %v", seconds, err)
		}
		if report.DurationSeconds != seconds || report.ReportedSeconds != seconds {
			t.Fatalf("D=%d: unexpected report durations %+v", seconds, report)
		}
		if diff := cmp.Diff([]int{seconds}, h.recorder.Calls()); diff != "" {
			t.Fatalf("D=%d: capture calls mismatch (-want +got):\n%s", seconds, diff)
		}
		args := capture.BuildArgs(capture.Settings{Resolution: "1920x1080", Framerate: 30, Display: ":99", Codec: "libx264", PixelFormat: "yuv420p"}, report.DurationSeconds, h.store.OutputPath())
		if args[len(args)-2] != strconv.Itoa(report.DurationSeconds) {
			t.Fatalf("D=%d: encoder would run for %s", seconds, args[len(args)-2])
		}
	}
}

func TestZeroDurationRejected(t *testing.T) {
	h := newHarness(t, 0)
	h.touch(t, "tv-flag.trigger", "")

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if !errors.Is(err, orchestrator.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if report.Outcome != orchestrator.OutcomeFailed || report.FailedPhase != orchestrator.StateBusyRendering {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(h.recorder.Calls()) != 0 {
		t.Fatal("expected no capture for zero duration")
	}
	if diff := cmp.Diff(markerState{Start: true, Failed: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
}

func TestZeroDurationClamped(t *testing.T) {
	h := newHarness(t, 0)
	h.settings.DurationPolicy = config.DurationPolicyClamp
	h.settings.MinDurationSeconds = 5
	h.touch(t, "tv-flag.trigger", "")

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.ReportedSeconds != 0 || report.DurationSeconds != 5 {
		t.Fatalf("unexpected durations %+v", report)
	}
	if diff := cmp.Diff([]int{5}, h.recorder.Calls()); diff != "" {
		t.Fatalf("capture calls mismatch (-want +got):\n%s", diff)
	}
}

func TestDurationFieldTimeoutReleasesBusy(t *testing.T) {
	h := newHarness(t, 15)
	h.page.readErr = render.ErrDurationFieldTimeout
	h.touch(t, "tv-flag.trigger", "")

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if !errors.Is(err, render.ErrDurationFieldTimeout) {
		t.Fatalf("expected ErrDurationFieldTimeout, got %v", err)
	}
	if report.Outcome != orchestrator.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %q", report.Outcome)
	}
	if diff := cmp.Diff(markerState{Start: true, Failed: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
	if h.page.closeCalls.Load() != 1 {
		t.Fatalf("expected session closed once, got %d", h.page.closeCalls.Load())
	}

	var failed trigger.FailedPayload
	data, err := os.ReadFile(h.store.Path(trigger.Failed))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &failed); err != nil {
		t.Fatalf("decode failed payload: %v", err)
	}
	if failed.Phase != string(orchestrator.StateBusyRendering) || failed.Error == "" {
		t.Fatalf("unexpected failed payload %+v", failed)
	}

	// The retained start marker lets the next run retry and clear the failure.
	h.page.readErr = nil
	report, err = h.orchestrator(t).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("retry RunOnce: %v", err)
	}
	if report.Outcome != orchestrator.OutcomeCompleted {
		t.Fatalf("expected retry to complete, got %q", report.Outcome)
	}
	if diff := cmp.Diff(markerState{Done: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
}

func TestLaunchFailureReleasesBusy(t *testing.T) {
	h := newHarness(t, 15)
	h.launcher.openErr = render.ErrLaunchTimeout
	h.touch(t, "tv-flag.trigger", "")

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if !errors.Is(err, render.ErrLaunchTimeout) {
		t.Fatalf("expected ErrLaunchTimeout, got %v", err)
	}
	for _, step := range report.Steps {
		if step.Name == orchestrator.StepCloseSession {
			t.Fatal("no session existed, close must not be attempted")
		}
	}
	if got := h.markers(t); got.Busy {
		t.Fatalf("busy marker leaked: %+v", got)
	}
}

func TestCaptureNonZeroExitStillSignalsDone(t *testing.T) {
	h := newHarness(t, 15)
	h.recorder.exitCode = 1
	h.touch(t, "tv-flag.trigger", "")

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.Outcome != orchestrator.OutcomeCompleted || report.ExitCode() != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if diff := cmp.Diff(markerState{Done: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
	var done trigger.DonePayload
	data, err := os.ReadFile(h.store.Path(trigger.Done))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &done); err != nil {
		t.Fatal(err)
	}
	if done.CaptureExitCode != 1 {
		t.Fatalf("expected exit code in payload, got %+v", done)
	}
}

func TestCaptureSpawnFailureIsFailure(t *testing.T) {
	h := newHarness(t, 15)
	h.recorder.err = capture.ErrSpawn
	h.touch(t, "tv-flag.trigger", "")

	report, err := h.orchestrator(t).RunOnce(context.Background())
	if !errors.Is(err, capture.ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if report.FailedPhase != orchestrator.StateBusyCapturing {
		t.Fatalf("unexpected failed phase %q", report.FailedPhase)
	}
	if diff := cmp.Diff(markerState{Start: true, Failed: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
}

func TestMutexCreateFailureAbortsBeforeBrowser(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	store := &faultyStore{Store: h.store, createErr: trigger.ErrAlreadyExists}

	report, err := h.orchestratorWithStore(t, store).RunOnce(context.Background())
	if !errors.Is(err, orchestrator.ErrMutexCreate) {
		t.Fatalf("expected ErrMutexCreate, got %v", err)
	}
	if report.Outcome != orchestrator.OutcomeFailed || report.FailedPhase != orchestrator.StateIdle {
		t.Fatalf("unexpected report %+v", report)
	}
	if h.launcher.Opens() != 0 {
		t.Fatal("expected no browser work after mutex failure")
	}
}

func TestCleanupStepFailuresAreIndependent(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	h.page.closeErr = errBoom
	store := &faultyStore{Store: h.store, removeErr: map[trigger.Marker]error{trigger.Start: errBoom}}

	report, err := h.orchestratorWithStore(t, store).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.StepFailures() != 2 {
		t.Fatalf("expected two failed steps, got %+v", report.Steps)
	}
	if diff := cmp.Diff(markerState{Start: true, Done: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
}

func TestCancellationDuringCaptureReleasesBusy(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	h.recorder.started = make(chan struct{})
	h.recorder.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var report orchestrator.Report
	o := h.orchestrator(t)
	go func() {
		var err error
		report, err = o.RunOnce(ctx)
		done <- err
	}()
	<-h.recorder.started
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Capture == nil {
		t.Fatal("expected partial capture result on report")
	}
	if diff := cmp.Diff(markerState{Start: true, Failed: true}, h.markers(t)); diff != "" {
		t.Fatalf("final markers mismatch (-want +got):\n%s", diff)
	}
}

func TestPanicReleasesBusyAndPropagates(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	h.recorder.panicMsg = "encoder exploded"

	o := h.orchestrator(t)
	func() {
		defer func() {
			if recovered := recover(); recovered != "encoder exploded" {
				t.Fatalf("expected panic to propagate, got %v", recovered)
			}
		}()
		_, _ = o.RunOnce(context.Background())
	}()

	if got := h.markers(t); got.Busy || !got.Failed || !got.Start {
		t.Fatalf("unexpected markers after panic: %+v", got)
	}
	if h.page.closeCalls.Load() != 1 {
		t.Fatalf("expected session closed once, got %d", h.page.closeCalls.Load())
	}
}

type stubVerifier struct {
	measured float64
	calls    int
}

func (v *stubVerifier) Verify(_ context.Context, _ string, expected int) (ffprobe.Verification, error) {
	v.calls++
	return ffprobe.Verification{
		ExpectedSeconds: expected,
		MeasuredSeconds: v.measured,
		DriftSeconds:    v.measured - float64(expected),
		Tolerance:       2,
	}, nil
}

func TestVerificationIsRecordedButNeverFails(t *testing.T) {
	h := newHarness(t, 15)
	h.touch(t, "tv-flag.trigger", "")
	verifier := &stubVerifier{measured: 3}

	report, err := h.orchestrator(t, orchestrator.WithVerifier(verifier)).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if verifier.calls != 1 || report.Verification == nil {
		t.Fatalf("expected verification, got %+v", report.Verification)
	}
	if report.Verification.WithinTolerance() {
		t.Fatal("expected drift outside tolerance")
	}
	if report.Outcome != orchestrator.OutcomeCompleted {
		t.Fatalf("verification must not change the outcome, got %q", report.Outcome)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	h := newHarness(t, 15)
	if _, err := orchestrator.New(nil, h.launcher, h.recorder, h.settings); err == nil {
		t.Fatal("expected error for nil store")
	}
	settings := h.settings
	settings.ContentURL = ""
	if _, err := orchestrator.New(h.store, h.launcher, h.recorder, settings); err == nil {
		t.Fatal("expected error for missing content url")
	}
}

func TestFailedPayloadAndReportUseClock(t *testing.T) {
	h := newHarness(t, 15)
	h.page.readErr = render.ErrDurationFieldTimeout
	h.touch(t, "tv-flag.trigger", "")

	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	report, err := h.orchestrator(t,
		orchestrator.WithClock(func() time.Time { return fixed }),
		orchestrator.WithRunIDs(func() string { return "run-clock" }),
	).RunOnce(context.Background())
	if !errors.Is(err, render.ErrDurationFieldTimeout) {
		t.Fatalf("expected duration field timeout, got %v", err)
	}
	if !report.StartedAt.Equal(fixed) || !report.FinishedAt.Equal(fixed) {
		t.Fatalf("report timings %v..%v, want %v", report.StartedAt, report.FinishedAt, fixed)
	}

	data, err := os.ReadFile(h.store.Path(trigger.Failed))
	if err != nil {
		t.Fatal(err)
	}
	var failed trigger.FailedPayload
	if err := json.Unmarshal(data, &failed); err != nil {
		t.Fatalf("decode failed payload: %v", err)
	}
	want := trigger.FailedPayload{
		RunID: "run-clock",
		Phase: string(orchestrator.StateBusyRendering),
		Error: failed.Error,
		At:    fixed,
	}
	if diff := cmp.Diff(want, failed); diff != "" {
		t.Fatalf("failed payload mismatch (-want +got):\n%s", diff)
	}
}

package orchestrator

import (
	"time"

	"signagerec/internal/capture"
	"signagerec/internal/media/ffprobe"
)

// State is a position in the capture state machine.
type State string

const (
	StateIdle          State = "idle"
	StateArmed         State = "armed"
	StateBusyRendering State = "busy_rendering"
	StateBusyCapturing State = "busy_capturing"
	StateFinalizing    State = "finalizing"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeSkippedNoTrigger Outcome = "skipped_no_trigger"
	OutcomeSkippedBusy      Outcome = "skipped_busy"
	OutcomeCompleted        Outcome = "completed"
	OutcomeFailed           Outcome = "failed"
)

// Skipped reports whether the run was a precondition no-op.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedNoTrigger || o == OutcomeSkippedBusy
}

// Step names recorded in Report.Steps.
const (
	StepCloseSession = "close_session"
	StepRemoveStart  = "remove_start"
	StepWriteDone    = "write_done"
	StepWriteFailed  = "write_failed"
	StepRemoveBusy   = "remove_busy"
)

// StepResult is the outcome of one terminal step.
type StepResult struct {
	Name string
	Err  error
}

// OK reports whether the step succeeded.
func (s StepResult) OK() bool {
	return s.Err == nil
}

// Report summarises one RunOnce call.
type Report struct {
	RunID      string
	Outcome    Outcome
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	URL        string
	// ReportedSeconds is the raw value read from the page.
	ReportedSeconds int
	// DurationSeconds is the capture length after the duration policy.
	DurationSeconds int
	Capture         *capture.Result
	Verification    *ffprobe.Verification
	// FailedPhase is the state the run was in when it failed.
	FailedPhase State
	Steps       []StepResult
	Err         error
}

// StepFailures counts terminal steps that returned an error.
func (r Report) StepFailures() int {
	failures := 0
	for _, step := range r.Steps {
		if !step.OK() {
			failures++
		}
	}
	return failures
}

// Elapsed returns the wall time of the run.
func (r Report) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExitCode returns the capture exit code, or -1 when no capture ran.
func (r Report) ExitCode() int {
	if r.Capture == nil {
		return -1
	}
	return r.Capture.ExitCode
}

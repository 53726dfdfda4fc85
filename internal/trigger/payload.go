package trigger

import (
	"encoding/json"
	"time"
)

// BusyPayload is stored in the busy marker so an operator can see who holds it.
type BusyPayload struct {
	RunID     string    `json:"run_id"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// DonePayload is stored in the done marker.
type DonePayload struct {
	RunID           string    `json:"run_id"`
	Video           string    `json:"video"`
	DurationSeconds int       `json:"duration_seconds"`
	CaptureExitCode int       `json:"capture_exit_code"`
	FinishedAt      time.Time `json:"finished_at"`
}

// FailedPayload is stored in the failed marker.
type FailedPayload struct {
	RunID string    `json:"run_id"`
	Phase string    `json:"phase"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// Encode renders a payload as a single JSON line.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Same reports whether p describes the same failure as phase and message.
func (p FailedPayload) Same(phase, message string) bool {
	return p.Phase == phase && p.Error == message
}

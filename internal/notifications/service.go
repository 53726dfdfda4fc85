package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"signagerec/internal/config"
	"signagerec/internal/orchestrator"
)

const userAgent = "signagerec/0.1"

// Service defines the notification surface exposed to the CLI.
type Service interface {
	// NotifyReport sends the notification appropriate for a run outcome.
	// Skipped runs never notify.
	NotifyReport(ctx context.Context, report orchestrator.Report) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		onSuccess: cfg.Notifications.OnSuccess,
		host:      cfg.Display.ID,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	onSuccess bool
	host      string
}

func (n *ntfyService) NotifyReport(ctx context.Context, report orchestrator.Report) error {
	switch report.Outcome {
	case orchestrator.OutcomeFailed:
		return n.send(ctx, failedPayload(report))
	case orchestrator.OutcomeCompleted:
		if !n.onSuccess && report.StepFailures() == 0 {
			return nil
		}
		return n.send(ctx, completedPayload(report))
	default:
		return nil
	}
}

func completedPayload(report orchestrator.Report) payload {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Recorded %ds in %s", report.DurationSeconds, report.Elapsed().Round(time.Second))
	if code := report.ExitCode(); code != 0 {
		fmt.Fprintf(&builder, "\nEncoder exited %d; the video may be truncated", code)
	}
	if v := report.Verification; v != nil {
		fmt.Fprintf(&builder, "\nMeasured %.2fs (drift %+.2fs)", v.MeasuredSeconds, v.DriftSeconds)
	}
	data := payload{
		title:   "signagerec - Capture Complete",
		message: builder.String(),
		tags:    []string{"signagerec", "capture", "completed"},
	}
	if failures := report.StepFailures(); failures > 0 {
		fmt.Fprintf(&builder, "\n%d finalize step(s) failed; check the markers", failures)
		data.message = builder.String()
		data.tags = append(data.tags, "warning")
		data.priority = "high"
	}
	return data
}

func failedPayload(report orchestrator.Report) payload {
	var builder strings.Builder
	builder.WriteString("Capture failed")
	if phase := strings.TrimSpace(string(report.FailedPhase)); phase != "" {
		builder.WriteString(" during ")
		builder.WriteString(phase)
	}
	if report.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(report.Err.Error())
	}
	if report.RunID != "" {
		fmt.Fprintf(&builder, "\nRun %s; the start marker was kept for retry", report.RunID)
	}
	return payload{
		title:    "signagerec - Capture Failed",
		message:  builder.String(),
		tags:     []string{"signagerec", "capture", "failed"},
		priority: "high",
	}
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	message := "Notification system test"
	if n.host != "" {
		message = fmt.Sprintf("%s (display %s)", message, n.host)
	}
	return n.send(ctx, payload{
		title:    "signagerec - Test",
		message:  message,
		tags:     []string{"signagerec", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReport(context.Context, orchestrator.Report) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }

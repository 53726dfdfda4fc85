package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"signagerec/internal/capture"
	"signagerec/internal/config"
	"signagerec/internal/notifications"
	"signagerec/internal/orchestrator"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), requests...)
	}
}

func serviceFor(url string, onSuccess bool) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.OnSuccess = onSuccess
	cfg.Display.ID = ":99"
	return notifications.NewService(&cfg)
}

func completedReport() orchestrator.Report {
	started := time.Unix(1000, 0)
	return orchestrator.Report{
		RunID:           "run-1",
		Outcome:         orchestrator.OutcomeCompleted,
		StartedAt:       started,
		FinishedAt:      started.Add(17 * time.Second),
		DurationSeconds: 15,
		Capture:         &capture.Result{ExitCode: 0},
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := serviceFor("", true)
	if err := svc.NotifyReport(context.Background(), orchestrator.Report{Outcome: orchestrator.OutcomeFailed}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop test notification to return nil, got %v", err)
	}
}

func TestNotifyFailedReport(t *testing.T) {
	srv, requests := newNtfyServer(t)
	report := orchestrator.Report{
		RunID:       "run-9",
		Outcome:     orchestrator.OutcomeFailed,
		FailedPhase: orchestrator.StateBusyRendering,
		Err:         errors.New("read duration: duration field did not appear"),
	}
	if err := serviceFor(srv.URL, false).NotifyReport(context.Background(), report); err != nil {
		t.Fatalf("NotifyReport: %v", err)
	}
	got := requests()
	if len(got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(got))
	}
	if got[0].title != "signagerec - Capture Failed" || got[0].priority != "high" || got[0].tags != "signagerec,capture,failed" {
		t.Fatalf("unexpected headers %+v", got[0])
	}
	want := "Capture failed during busy_rendering: read duration: duration field did not appear\nRun run-9; the start marker was kept for retry"
	if got[0].body != want {
		t.Fatalf("unexpected body:\n%s", got[0].body)
	}
}

func TestNotifyCompletedRespectsOnSuccess(t *testing.T) {
	srv, requests := newNtfyServer(t)
	if err := serviceFor(srv.URL, false).NotifyReport(context.Background(), completedReport()); err != nil {
		t.Fatal(err)
	}
	if len(requests()) != 0 {
		t.Fatal("completed capture should not notify without on_success")
	}

	if err := serviceFor(srv.URL, true).NotifyReport(context.Background(), completedReport()); err != nil {
		t.Fatal(err)
	}
	got := requests()
	if len(got) != 1 || got[0].body != "Recorded 15s in 17s" || got[0].priority != "" {
		t.Fatalf("unexpected requests %+v", got)
	}
}

func TestNotifyCompletedWithStepFailuresAlwaysSends(t *testing.T) {
	srv, requests := newNtfyServer(t)
	report := completedReport()
	report.Steps = []orchestrator.StepResult{{Name: orchestrator.StepRemoveBusy, Err: errors.New("permission denied")}}
	if err := serviceFor(srv.URL, false).NotifyReport(context.Background(), report); err != nil {
		t.Fatal(err)
	}
	got := requests()
	if len(got) != 1 || got[0].priority != "high" || !strings.Contains(got[0].body, "1 finalize step(s) failed") {
		t.Fatalf("unexpected requests %+v", got)
	}
}

func TestSkippedReportsNeverNotify(t *testing.T) {
	srv, requests := newNtfyServer(t)
	svc := serviceFor(srv.URL, true)
	for _, outcome := range []orchestrator.Outcome{orchestrator.OutcomeSkippedBusy, orchestrator.OutcomeSkippedNoTrigger} {
		if err := svc.NotifyReport(context.Background(), orchestrator.Report{Outcome: outcome}); err != nil {
			t.Fatal(err)
		}
	}
	if len(requests()) != 0 {
		t.Fatal("skipped runs should not notify")
	}
}

func TestSendSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic reserved", http.StatusForbidden)
	}))
	defer srv.Close()

	err := serviceFor(srv.URL, false).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403: topic reserved") {
		t.Fatalf("expected ntfy error, got %v", err)
	}
}

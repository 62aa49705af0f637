package notifier

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	messages []string
	err      error
}

func (r *recordingNotifier) Send(subject, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.messages = append(r.messages, message)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subjects)
}

func TestFormatAlert(t *testing.T) {
	tests := []struct {
		name        string
		event       *Event
		wantSubject string
		wantBody    []string
	}{
		{
			name: "breaker open",
			event: NewEvent(EventCircuitBreakerOpen, SeverityCritical, "").
				WithData("name", "genius").WithData("failures", 5).WithData("cooldown", "5m0s"),
			wantSubject: "🚨 Provider Circuit Breaker OPEN",
			wantBody:    []string{"genius", "5 consecutive", "5m0s"},
		},
		{
			name: "all providers failed lists reasons sorted",
			event: NewEvent(EventAllProvidersFailed, SeverityCritical, "").
				WithData("query", "A - B").
				WithData("reasons", map[string]string{"ovh": "timeout", "lrclib": "network"}),
			wantSubject: "🚨 All Providers Failed",
			wantBody:    []string{"\"A - B\"", "lrclib: network\n  • ovh: timeout"},
		},
		{
			name:        "durable failure",
			event:       NewEvent(EventDurableCacheFailure, SeverityWarning, "").WithData("op", "put").WithData("error", "boom"),
			wantSubject: "⚠️ Durable Cache Failure",
			wantBody:    []string{"put failed: boom"},
		},
		{
			name: "server started",
			event: NewEvent(EventServerStarted, SeverityInfo, "").WithData("port", "8080").
				WithData("providers", []string{"lrclib", "ovh"}).WithData("providers_unconfigured", []string{"genius"}),
			wantSubject: "ℹ️ Server Started",
			wantBody:    []string{"port 8080", "lrclib, ovh", "Not configured: genius"},
		},
		{
			name:        "missing data does not panic",
			event:       NewEvent(EventHighFailureRate, SeverityWarning, ""),
			wantSubject: "⚠️ High Provider Failure Rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, message := formatAlert(tt.event)
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			for _, want := range tt.wantBody {
				if !strings.Contains(message, want) {
					t.Errorf("message %q missing %q", message, want)
				}
			}
		})
	}

	if subject, _ := formatAlert(NewEvent("unknown", SeverityInfo, "")); subject != "" {
		t.Errorf("Expected empty subject for unknown event, got %q", subject)
	}
}

func TestAlertHandler_Cooldown(t *testing.T) {
	rec := &recordingNotifier{}
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{rec}, CooldownDuration: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	event := NewEvent(EventCacheCleared, SeverityInfo, "").WithData("backup_path", "/b")

	h.HandleEvent(event)
	h.HandleEvent(event)
	if rec.count() != 1 {
		t.Fatalf("Expected 1 alert during cooldown, got %d", rec.count())
	}

	now = now.Add(time.Minute)
	h.HandleEvent(event)
	if rec.count() != 2 {
		t.Fatalf("Expected alert after cooldown, got %d", rec.count())
	}

	h.ResetCooldown(EventCacheCleared)
	h.HandleEvent(event)
	if rec.count() != 3 {
		t.Fatalf("Expected alert after reset, got %d", rec.count())
	}
}

func TestAlertHandler_CooldownIsPerType(t *testing.T) {
	rec := &recordingNotifier{}
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{rec}})

	h.HandleEvent(NewEvent(EventCacheCleared, SeverityInfo, ""))
	h.HandleEvent(NewEvent(EventCircuitBreakerRecovered, SeverityInfo, "").WithData("name", "ovh"))
	if rec.count() != 2 {
		t.Errorf("Expected one alert per type, got %d", rec.count())
	}

	h.ResetAllCooldowns()
	h.HandleEvent(NewEvent(EventCacheCleared, SeverityInfo, ""))
	if rec.count() != 3 {
		t.Errorf("Expected alert after ResetAllCooldowns, got %d", rec.count())
	}
}

func TestAlertHandler_NotifierErrorDoesNotStopOthers(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("down")}
	ok := &recordingNotifier{}
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{failing, ok}})

	h.HandleEvent(NewEvent(EventCacheBackupFailed, SeverityWarning, "").WithData("error", "disk"))

	if failing.count() != 1 || ok.count() != 1 {
		t.Errorf("Expected both notifiers to be tried, got %d and %d", failing.count(), ok.count())
	}
}

func TestAlertHandler_Start(t *testing.T) {
	rec := &recordingNotifier{}
	h := NewAlertHandler(AlertConfig{Notifiers: []Notifier{rec}})
	bus := NewEventBus()
	h.Start(bus)

	bus.Publish(NewEvent(EventCacheCleared, SeverityInfo, "").WithData("backup_path", "/b"))

	deadline := time.Now().Add(time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Errorf("Expected alert delivered through bus, got %d", rec.count())
	}
}

package notifier

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lyrics-resolver-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	// Default cooldown between alerts of the same type
	DefaultAlertCooldown = 15 * time.Minute
)

// AlertHandler turns bus events into notifications, rate limited per event type
type AlertHandler struct {
	notifiers        []Notifier
	cooldowns        map[EventType]time.Time
	cooldownDuration time.Duration
	now              func() time.Time
	mu               sync.Mutex
}

// AlertConfig holds configuration for the alert handler
type AlertConfig struct {
	Notifiers        []Notifier
	CooldownDuration time.Duration
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(config AlertConfig) *AlertHandler {
	cooldown := config.CooldownDuration
	if cooldown == 0 {
		cooldown = DefaultAlertCooldown
	}

	return &AlertHandler{
		notifiers:        config.Notifiers,
		cooldowns:        make(map[EventType]time.Time),
		cooldownDuration: cooldown,
		now:              time.Now,
	}
}

// Start subscribes the handler to the given bus
func (h *AlertHandler) Start(bus *EventBus) {
	bus.SubscribeAll(h.HandleEvent)
	log.Infof("%s Alert handler started (cooldown: %v, notifiers: %d)",
		logcolors.LogAlerts, h.cooldownDuration, len(h.notifiers))
}

// HandleEvent formats an event and sends it unless its type is cooling down
func (h *AlertHandler) HandleEvent(event *Event) {
	subject, message := formatAlert(event)
	if subject == "" {
		return
	}

	if !h.shouldAlert(event.Type) {
		log.Debugf("%s Skipping alert for %s (cooldown active)", logcolors.LogAlerts, event.Type)
		return
	}

	h.sendAlert(subject, message)
}

func (h *AlertHandler) shouldAlert(eventType EventType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	lastAlert, exists := h.cooldowns[eventType]
	if !exists || now.Sub(lastAlert) >= h.cooldownDuration {
		h.cooldowns[eventType] = now
		return true
	}
	return false
}

// formatAlert renders an event. Unknown types return an empty subject.
func formatAlert(event *Event) (subject, message string) {
	str := func(key string) string {
		v, _ := event.Data[key].(string)
		return v
	}
	num := func(key string) int {
		v, _ := event.Data[key].(int)
		return v
	}

	switch event.Type {
	case EventCircuitBreakerOpen:
		subject = "Provider Circuit Breaker OPEN"
		message = fmt.Sprintf(
			"The %s provider has been disabled after %d consecutive failures.\n\n"+
				"It will be skipped by resolutions for %s.\n\n"+
				"Action: Check the upstream service status and credentials.",
			str("name"), num("failures"), str("cooldown"))

	case EventAllProvidersFailed:
		subject = "All Providers Failed"
		message = fmt.Sprintf("Every provider failed while resolving %q:\n\n", str("query"))
		if reasons, ok := event.Data["reasons"].(map[string]string); ok {
			names := make([]string, 0, len(reasons))
			for name := range reasons {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				message += fmt.Sprintf("  • %s: %s\n", name, reasons[name])
			}
		}
		message += "\nResolutions are returning not found until providers recover."

	case EventServerStartupFailed:
		subject = "Server Startup FAILED"
		message = fmt.Sprintf(
			"The server failed to start.\n\n"+
				"Component: %s\n"+
				"Error: %s",
			str("component"), str("error"))

	case EventHighFailureRate:
		subject = "High Provider Failure Rate"
		message = fmt.Sprintf(
			"The %s provider has recorded %d/%d consecutive failures.\n\n"+
				"If failures continue, the provider will be disabled.",
			str("name"), num("failures"), num("threshold"))

	case EventDurableCacheFailure:
		subject = "Durable Cache Failure"
		message = fmt.Sprintf(
			"A durable cache %s failed: %s\n\n"+
				"Results are still served but not persisted.",
			str("op"), str("error"))

	case EventCacheBackupFailed:
		subject = "Cache Backup Failed"
		message = fmt.Sprintf(
			"Failed to create cache backup.\n\n"+
				"Error: %s\n\n"+
				"Action: Check disk space and permissions.",
			str("error"))

	case EventCircuitBreakerRecovered:
		subject = "Provider Circuit Breaker Recovered"
		message = fmt.Sprintf("The %s provider has recovered and is back in rotation.", str("name"))

	case EventServerStarted:
		subject = "Server Started"
		configured, _ := event.Data["providers"].([]string)
		unconfigured, _ := event.Data["providers_unconfigured"].([]string)
		message = fmt.Sprintf("Server started on port %s.\n\nProviders: %s", str("port"), strings.Join(configured, ", "))
		if len(unconfigured) > 0 {
			message += fmt.Sprintf("\nNot configured: %s", strings.Join(unconfigured, ", "))
		}

	case EventCacheCleared:
		subject = "Cache Cleared"
		message = fmt.Sprintf("Cache has been cleared.\n\nBackup saved to: %s", str("backup_path"))

	default:
		return "", ""
	}

	switch event.Severity {
	case SeverityCritical:
		subject = "🚨 " + subject
	case SeverityWarning:
		subject = "⚠️ " + subject
	case SeverityInfo:
		subject = "ℹ️ " + subject
	}

	return subject, message
}

func (h *AlertHandler) sendAlert(subject, message string) {
	if len(h.notifiers) == 0 {
		log.Warnf("%s No notifiers configured, skipping alert: %s", logcolors.LogAlerts, subject)
		return
	}

	log.Infof("%s Sending alert: %s", logcolors.LogAlerts, subject)

	successCount := 0
	for _, n := range h.notifiers {
		if err := n.Send(subject, message); err != nil {
			log.Errorf("%s Failed to send alert via %s: %v", logcolors.LogAlerts, TypeName(n), err)
		} else {
			successCount++
		}
	}

	if successCount > 0 {
		log.Infof("%s Alert sent via %d/%d notifiers", logcolors.LogAlerts, successCount, len(h.notifiers))
	}
}

// ResetCooldown clears the cooldown for one event type
func (h *AlertHandler) ResetCooldown(eventType EventType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cooldowns, eventType)
}

// ResetAllCooldowns clears every cooldown
func (h *AlertHandler) ResetAllCooldowns() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cooldowns = make(map[EventType]time.Time)
}

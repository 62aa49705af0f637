package notifier

import (
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Critical events
	EventCircuitBreakerOpen  EventType = "circuit_breaker_open"
	EventAllProvidersFailed  EventType = "all_providers_failed"
	EventServerStartupFailed EventType = "server_startup_failed"

	// Warning events
	EventHighFailureRate     EventType = "high_failure_rate"
	EventDurableCacheFailure EventType = "durable_cache_failure"
	EventCacheBackupFailed   EventType = "cache_backup_failed"

	// Info events
	EventCircuitBreakerRecovered EventType = "circuit_breaker_recovered"
	EventServerStarted           EventType = "server_started"
	EventCacheCleared            EventType = "cache_cleared"
)

// Severity represents the severity level of an event
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Event represents a system event
type Event struct {
	Type      EventType
	Severity  Severity
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, severity Severity, message string) *Event {
	return &Event{
		Type:      eventType,
		Severity:  severity,
		Message:   message,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// WithData adds data to the event (chainable)
func (e *Event) WithData(key string, value interface{}) *Event {
	e.Data[key] = value
	return e
}

// EventHandler is a function that handles events
type EventHandler func(event *Event)

// EventBus fans events out to subscribers. Handlers run on their own goroutine.
type EventBus struct {
	handlers    map[EventType][]EventHandler
	allHandlers []EventHandler
	mu          sync.RWMutex
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[EventType][]EventHandler)}
}

var (
	globalBus *EventBus
	busOnce   sync.Once
)

// GetEventBus returns the process-wide event bus
func GetEventBus() *EventBus {
	busOnce.Do(func() {
		globalBus = NewEventBus()
	})
	return globalBus
}

// Subscribe adds a handler for a specific event type
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler that receives all events
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, handler)
}

// Publish sends an event to all subscribed handlers
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.allHandlers {
		go handler(event)
	}
}

// PublishCircuitBreakerOpen publishes a circuit breaker open event
func PublishCircuitBreakerOpen(provider string, failures int, cooldown time.Duration) {
	GetEventBus().Publish(NewEvent(EventCircuitBreakerOpen, SeverityCritical,
		"Provider circuit breaker opened after consecutive failures").
		WithData("name", provider).
		WithData("failures", failures).
		WithData("cooldown", cooldown.String()))
}

// PublishCircuitBreakerRecovered publishes a circuit breaker recovery event
func PublishCircuitBreakerRecovered(provider string) {
	GetEventBus().Publish(NewEvent(EventCircuitBreakerRecovered, SeverityInfo,
		"Provider circuit breaker recovered").
		WithData("name", provider))
}

// PublishHighFailureRate warns before a breaker trips
func PublishHighFailureRate(provider string, failures, threshold int) {
	GetEventBus().Publish(NewEvent(EventHighFailureRate, SeverityWarning,
		"High provider failure rate, circuit breaker may trip soon").
		WithData("name", provider).
		WithData("failures", failures).
		WithData("threshold", threshold))
}

// PublishAllProvidersFailed is emitted when a fan-out produced only
// transport-level failures (not plain "not found" answers)
func PublishAllProvidersFailed(query string, reasons map[string]string) {
	GetEventBus().Publish(NewEvent(EventAllProvidersFailed, SeverityCritical,
		"Every provider failed for a resolution").
		WithData("query", query).
		WithData("reasons", reasons))
}

// PublishDurableCacheFailure reports a durable tier read or write error
func PublishDurableCacheFailure(op string, err error) {
	GetEventBus().Publish(NewEvent(EventDurableCacheFailure, SeverityWarning,
		"Durable cache operation failed").
		WithData("op", op).
		WithData("error", err.Error()))
}

// PublishCacheBackupFailed publishes when cache backup fails
func PublishCacheBackupFailed(err error) {
	GetEventBus().Publish(NewEvent(EventCacheBackupFailed, SeverityWarning,
		"Cache backup operation failed").
		WithData("error", err.Error()))
}

// PublishCacheCleared publishes when cache is cleared
func PublishCacheCleared(backupPath string) {
	GetEventBus().Publish(NewEvent(EventCacheCleared, SeverityInfo,
		"Cache has been cleared").
		WithData("backup_path", backupPath))
}

// PublishServerStarted publishes when server starts successfully
func PublishServerStarted(port string, configured, unconfigured []string) {
	GetEventBus().Publish(NewEvent(EventServerStarted, SeverityInfo,
		"Server started successfully").
		WithData("port", port).
		WithData("providers", configured).
		WithData("providers_unconfigured", unconfigured))
}

// PublishServerStartupFailed publishes when server fails to start
func PublishServerStartupFailed(component string, err error) {
	GetEventBus().Publish(NewEvent(EventServerStartupFailed, SeverityCritical,
		"Server failed to start").
		WithData("component", component).
		WithData("error", err.Error()))
}

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// EventBus fans events out to in-process subscribers. It carries operator
// alerts, so a failing or panicking handler never reaches the publisher.
type EventBus struct {
	handlers map[string][]Handler
	logger   *slog.Logger
	mu       sync.RWMutex
	inflight sync.WaitGroup
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("event handler registered", "event_type", eventType, "total_handlers", len(eb.handlers[eventType]))
}

func (eb *EventBus) subscribers(eventType string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.handlers[eventType]
}

// Publish runs every subscriber on its own goroutine and returns at once.
// Handlers outlive the caller's request, so they get a context that is
// never cancelled.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers := eb.subscribers(event.EventType())
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		eb.inflight.Add(1)
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := eb.dispatch(detached, h, event); err != nil {
				eb.logger.Error("event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(handler)
	}

	return nil
}

// PublishSync runs subscribers in order and stops at the first error.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, handler := range eb.subscribers(event.EventType()) {
		if err := eb.dispatch(ctx, handler, event); err != nil {
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (eb *EventBus) dispatch(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, fmt.Errorf("handler panicked: %v", r))
		}
	}()
	return h(ctx, event)
}

// Wait blocks until every handler started by Publish has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

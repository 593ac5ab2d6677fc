// internal/events/types.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// Portfolio events
	PortfolioUpdated EventType = "portfolio.updated"

	// Position events
	PositionValuated EventType = "position.valuated"
	PositionFailed   EventType = "position.failed"
	PositionClosed   EventType = "position.closed"

	// Refresh cycle events
	RefreshStarted   EventType = "refresh.started"
	RefreshCompleted EventType = "refresh.completed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events. Payload types embed it.
type BaseEvent struct {
	EventID   string    `json:"id"`
	EventType EventType `json:"type"`
	EventTime time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a new event of the given type.
func NewBaseEvent(t EventType) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: t,
		EventTime: time.Now(),
	}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ID returns the unique event id.
func (e BaseEvent) ID() string {
	return e.EventID
}

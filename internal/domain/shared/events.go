// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the journal.
const (
	// Session events
	EventSessionCreated EventType = "session.created"
	EventSessionSaved   EventType = "session.saved"
	EventSessionDeleted EventType = "session.deleted"

	// Roster events
	EventRosterImported EventType = "roster.imported"
	EventGroupAdded     EventType = "roster.group_added"
	EventGroupRemoved   EventType = "roster.group_removed"

	// Statistics events
	EventStatisticsRebuilt EventType = "statistics.rebuilt"

	// Storage events
	EventBackupCreated  EventType = "storage.backup_created"
	EventBackupRestored EventType = "storage.backup_restored"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// Payload implements Event interface with an empty payload.
// Concrete events override this with their own data.
func (e BaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewBaseEvent creates a BaseEvent with the current UTC timestamp.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// SessionSavedEvent is published after a session is successfully persisted.
type SessionSavedEvent struct {
	BaseEvent
	Group string `json:"group"`
	Date  string `json:"date"`
}

// NewSessionSavedEvent creates a SessionSavedEvent.
func NewSessionSavedEvent(sessionID, group, date string) SessionSavedEvent {
	return SessionSavedEvent{
		BaseEvent: NewBaseEvent(EventSessionSaved, sessionID),
		Group:     group,
		Date:      date,
	}
}

// Payload implements Event interface.
func (e SessionSavedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group": e.Group,
		"date":  e.Date,
	}
}

// SessionDeletedEvent is published after a persisted session is removed.
type SessionDeletedEvent struct {
	BaseEvent
	Group string `json:"group"`
	Date  string `json:"date"`
}

// NewSessionDeletedEvent creates a SessionDeletedEvent.
func NewSessionDeletedEvent(group, date string) SessionDeletedEvent {
	return SessionDeletedEvent{
		BaseEvent: NewBaseEvent(EventSessionDeleted, group+"_"+date),
		Group:     group,
		Date:      date,
	}
}

// Payload implements Event interface.
func (e SessionDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group": e.Group,
		"date":  e.Date,
	}
}

// RosterImportedEvent is published after a roster import commits.
type RosterImportedEvent struct {
	BaseEvent
	GroupCount   int      `json:"group_count"`
	SkippedNames []string `json:"skipped_names,omitempty"`
}

// NewRosterImportedEvent creates a RosterImportedEvent.
func NewRosterImportedEvent(groupCount int, skipped []string) RosterImportedEvent {
	return RosterImportedEvent{
		BaseEvent:    NewBaseEvent(EventRosterImported, "roster"),
		GroupCount:   groupCount,
		SkippedNames: skipped,
	}
}

// Payload implements Event interface.
func (e RosterImportedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"group_count":   e.GroupCount,
		"skipped_names": e.SkippedNames,
	}
}

// StatisticsRebuiltEvent is published after a full statistics rebuild.
type StatisticsRebuiltEvent struct {
	BaseEvent
	SessionsScanned int `json:"sessions_scanned"`
	SessionsCounted int `json:"sessions_counted"`
}

// NewStatisticsRebuiltEvent creates a StatisticsRebuiltEvent.
func NewStatisticsRebuiltEvent(scanned, counted int) StatisticsRebuiltEvent {
	return StatisticsRebuiltEvent{
		BaseEvent:       NewBaseEvent(EventStatisticsRebuilt, "statistics"),
		SessionsScanned: scanned,
		SessionsCounted: counted,
	}
}

// Payload implements Event interface.
func (e StatisticsRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"sessions_scanned": e.SessionsScanned,
		"sessions_counted": e.SessionsCounted,
	}
}

// EventHandler processes domain events.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, not propagated
	// to the publisher.
	Handle(event Event) error

	// Name returns a unique handler name for logging.
	Name() string
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc struct {
	HandlerName string
	Fn          func(event Event) error
}

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(event Event) error {
	return f.Fn(event)
}

// Name implements EventHandler.
func (f EventHandlerFunc) Name() string {
	return f.HandlerName
}

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	Publish(event Event)
}

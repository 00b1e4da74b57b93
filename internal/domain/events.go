package domain

import "time"

// EventKind identifies a domain event.
type EventKind string

const (
	EventGroupCreated         EventKind = "group.created"
	EventMemberJoined         EventKind = "member.joined"
	EventGroupActivated       EventKind = "group.activated"
	EventContributionRecorded EventKind = "contribution.recorded"
	EventPayoutReady          EventKind = "payout.ready"
	EventPayoutClaimed        EventKind = "payout.claimed"
	EventGroupCompleted       EventKind = "group.completed"
)

// Event is a domain notification emitted once per successful mutation,
// after the new state has been persisted. Payload keys are event-specific;
// Recipients lists the addresses the dispatcher should notify.
type Event struct {
	Kind       EventKind      `json:"kind"`
	GroupID    string         `json:"groupId"`
	GroupName  string         `json:"groupName"`
	Recipients []string       `json:"recipients"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Sink consumes domain events. Emit must not block and must never fail the
// emitting operation.
type Sink interface {
	Emit(Event)
}

// Notification is a persisted, per-address rendering of a domain event.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	Address   string           `json:"address" db:"address"`
	GroupID   string           `json:"groupId" db:"group_id"`
	Kind      NotificationKind `json:"kind" db:"kind"`
	Message   string           `json:"message" db:"message"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}

// NotificationKind mirrors the severity levels the UI renders.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
)

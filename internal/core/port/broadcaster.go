// Package port defines interfaces (contracts) for adapters.
// These interfaces are defined by what the domain/service layer needs,
// following the Dependency Inversion Principle.
package port

import "time"

// EventType represents the type of real-time event broadcast to operators.
type EventType string

// Event types emitted by the attendance and enrollment orchestrators and
// the decision arbiter (spec.md §4.8, §4.9, §4.11).
const (
	EventCapture           EventType = "capture"
	EventApproved          EventType = "approved"
	EventRejected          EventType = "rejected"
	EventOfflineCapture    EventType = "offline_capture"
	EventDecisionRequest   EventType = "decision_request"
	EventAssistantApproved EventType = "assistant_approved"
	EventAssistantRejected EventType = "assistant_rejected"
)

// Event is a structured envelope broadcast to every connected operator.
// Decision events use the envelope form verbatim; every other broadcast
// additionally carries a human-readable Message line, since spec.md §4.11
// requires the two formats ("a structured envelope... for decision events
// and a line-formatted log string for every other broadcast") to coexist.
type Event struct {
	Type       EventType `json:"type"`
	StudentUID int       `json:"student_uid,omitempty"`
	DecisionID string    `json:"decision_id,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent stamps the current time onto a new Event.
func NewEvent(t EventType, message string) Event {
	return Event{Type: t, Message: message, Timestamp: time.Now()}
}

// Broadcaster pushes events to every connected operator. Broadcasting is
// fire-and-forget: a failed send evicts that subscriber but never fails the
// caller (spec.md §4.11, §5).
type Broadcaster interface {
	Broadcast(event Event)
}

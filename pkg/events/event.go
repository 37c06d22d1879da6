package events

import "time"

// Event type codes carried on the bus and pushed to websocket clients.
const (
	TypeSessionCreated  = "SESSION_CREATED"
	TypeSessionDeleted  = "SESSION_DELETED"
	TypeSessionsExpired = "SESSIONS_EXPIRED"
	TypeTurnCompleted   = "TURN_COMPLETED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionCreated is emitted after a document is loaded into a fresh session.
func NewSessionCreated(sessionID, title, sourceURL string, chunkCount int) BaseEvent {
	return BaseEvent{
		Type: TypeSessionCreated,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"article_title": title,
			"article_url":   sourceURL,
			"chunk_count":   chunkCount,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionDeleted is emitted after a session is explicitly removed.
func NewSessionDeleted(sessionID string) BaseEvent {
	return BaseEvent{
		Type: TypeSessionDeleted,
		Data: map[string]interface{}{
			"session_id": sessionID,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionsExpired is emitted when the background sweeper evicts idle sessions.
func NewSessionsExpired(count int) BaseEvent {
	return BaseEvent{
		Type: TypeSessionsExpired,
		Data: map[string]interface{}{
			"expired_count": count,
		},
		OccurredAt: time.Now(),
	}
}

// NewTurnCompleted is emitted after a chat turn has been answered.
func NewTurnCompleted(sessionID string, topics []string, sourceCount int) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":   sessionID,
			"topics":       topics,
			"source_count": sourceCount,
		},
		OccurredAt: time.Now(),
	}
}

// Envelope is the JSON wire form of an event on the in-process bus
// and on the websocket feed.
type Envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Wrap converts any Event into its wire form.
func Wrap(evt Event) Envelope {
	return Envelope{
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp(),
	}
}

// Event converts a decoded envelope back into a bus event.
func (e Envelope) Event() BaseEvent {
	return BaseEvent{
		Type:       e.Type,
		Data:       e.Data,
		OccurredAt: e.OccurredAt,
	}
}

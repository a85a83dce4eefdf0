package comm

import (
	"encoding/json"
	"time"
)

// Subject carrying arena change notifications between services.
const EventsSubject = "arena.events"

// Event names pushed to dashboards.
const (
	EventGameUpdated   = "gameUpdated"
	EventPlayerUpdated = "playerUpdated"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "gameUpdated", "playerUpdated"
	Data     json.RawMessage `json:"data,omitempty"`
	SocketId string          `json:"socketid,omitempty"`
}

// EventData is the payload of a change notification.
type EventData struct {
	Source    string    `json:"source"` // publishing service instance
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds the envelope for a change notification.
func NewEvent(event, source string, at time.Time) (*WSMessage, error) {
	data, err := json.Marshal(EventData{Source: source, Timestamp: at})
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: event, Data: data}, nil
}

func IsArenaEvent(t string) bool {
	return t == EventGameUpdated || t == EventPlayerUpdated
}

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	AddAccount    = "AddAccount"
	RemoveAccount = "RemoveAccount"
)

// Stream names
const (
	RegistryEventsStream = "registry.events"
)

// Base event structure
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// AccountEvent is the payload of both AddAccount and RemoveAccount.
type AccountEvent struct {
	Account string `json:"account"`
	Caller  string `json:"caller"`
}

func NewEvent(eventType string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// DecodeData converts the generic Data of a consumed event into out.
// After a JSON round trip Data is a map, so it is re-encoded first.
func DecodeData(event Event, out any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s event data: %w", event.Type, err)
	}
	return nil
}

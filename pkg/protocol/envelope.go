package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Action      Action          `json:"action"`
	Data        json.RawMessage `json:"data"`
	TriggeredBy *uuid.UUID      `json:"triggered_by,omitempty"`
}

// Event is an outbound message before encoding.
type Event struct {
	Action      Action
	TriggeredBy *uuid.UUID
	Data        interface{}
}

func NewEvent(action Action, triggeredBy uuid.UUID, data interface{}) Event {
	return Event{Action: action, TriggeredBy: &triggeredBy, Data: data}
}

// Encode renders the event as a JSON envelope.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		Action:      e.Action,
		Data:        data,
		TriggeredBy: e.TriggeredBy,
	})
}

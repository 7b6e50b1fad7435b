// Package comm defines the message shapes exchanged between the card
// service, the NATS broker and WebSocket clients.
package comm

import (
	"encoding/json"
	"time"
)

// WSMessage is the envelope for messages over a WebSocket connection.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "state", "location", "card_event"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// CardEvent announces a card lifecycle change on the events topic.
type CardEvent struct {
	Event      string    `json:"event"` // card.registered, card.selected, card.deleted
	Serial     string    `json:"serial"`
	InstanceId string    `json:"instance_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// LocationReport is a device location fix posted by a client.
type LocationReport struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ServiceHeartbeat is published periodically so peers can tell the service
// instance is alive.
type ServiceHeartbeat struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

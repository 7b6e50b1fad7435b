// Package ws pushes card state snapshots and location fixes to connected
// WebSocket clients. This is how the presentation layer observes the core's
// state.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/vblancom/tullave-services/internal/cardsvc/service"
	"github.com/vblancom/tullave-services/internal/comm"
	"github.com/vblancom/tullave-services/internal/location"
)

type Hub struct {
	connMap sync.Map // socketId -> *websocket.Conn
	writeMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) StoreConnection(socketId string, conn *websocket.Conn) {
	h.connMap.Store(socketId, conn)
}

func (h *Hub) HandleDisconnect(socketId string) {
	h.connMap.Delete(socketId)
}

// BroadcastState pushes a card state snapshot to every connected client.
func (h *Hub) BroadcastState(state service.State) {
	h.broadcast("state", state)
}

// BroadcastLocation pushes a device location fix to every connected client.
func (h *Hub) BroadcastLocation(fix location.Fix) {
	h.broadcast("location", fix)
}

func (h *Hub) broadcast(msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal %s payload: %v", msgType, err)
		return
	}

	msg := comm.WSMessage{Type: msgType, Data: data}
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("failed to marshal ws message: %v", err)
		return
	}

	h.connMap.Range(func(key, value any) bool {
		socketId := key.(string)
		conn := value.(*websocket.Conn)

		h.writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, bytes)
		h.writeMu.Unlock()
		if err != nil {
			log.Infof("dropping socket %s: %v", socketId, err)
			conn.Close()
			h.connMap.Delete(socketId)
		}
		return true
	})
}

// PumpStates forwards snapshots from the card service subscription until
// the channel closes.
func (h *Hub) PumpStates(states <-chan service.State) {
	for state := range states {
		h.BroadcastState(state)
	}
}

// PumpLocations forwards fixes from the location provider subscription.
func (h *Hub) PumpLocations(fixes <-chan location.Fix) {
	for fix := range fixes {
		h.BroadcastLocation(fix)
	}
}

package socket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// LowStockAlert is broadcast whenever a committed dispense drops an item's
// total quantity below its minimum threshold.
type LowStockAlert struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Total       int    `json:"total"`
	MinQuantity int    `json:"minQuantity"`
}

// Hub tracks connected WebSocket clients, keyed by user email.
type Hub struct {
	clients map[string]*websocket.Conn
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
	}
}

// Register adds a client connection to the hub.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = conn
	log.Printf("WebSocket client registered: %s", userID)
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		log.Printf("WebSocket client unregistered: %s", userID)
	}
}

// Broadcast sends a message to every connected client. A dead connection is
// logged and skipped; the next read loop failure will unregister it.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("Failed to send WebSocket message to %s: %v", userID, err)
		}
	}
}

// BroadcastLowStock serializes and broadcasts a low-stock alert.
func (h *Hub) BroadcastLowStock(alert LowStockAlert) {
	message, err := json.Marshal(alert)
	if err != nil {
		log.Printf("Failed to marshal low-stock alert: %v", err)
		return
	}
	h.Broadcast(message)
}
